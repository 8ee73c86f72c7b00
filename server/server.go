package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/moonraker-sim/moonraker-sim/sim"
)

// Config is the transport-level configuration. Flags populate it first; env
// vars override when set (ApplyEnv).
type Config struct {
	Host        string `env:"MOONRAKER_HOST"`
	Port        int    `env:"MOONRAKER_PORT"`
	ServiceName string `env:"MOONRAKER_SERVICE_NAME"`
	Advertise   bool   `env:"MOONRAKER_ADVERTISE"`
}

// DefaultConfig matches the original server's defaults.
func DefaultConfig() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        7125,
		ServiceName: "Moonraker Simulator",
		Advertise:   true,
	}
}

// ApplyEnv overrides fields from MOONRAKER_* environment variables.
func (c *Config) ApplyEnv() error {
	return env.Parse(c)
}

// Server ties the engine loop, the HTTP surface, and the discovery
// advertisement together.
type Server struct {
	cfg  Config
	loop *sim.Loop
	hub  *Hub
	adv  Advertiser
	mux  http.Handler
}

// New assembles a server. A nil advertiser disables discovery; a nil files
// collaborator gets the simulated listing.
func New(cfg Config, loop *sim.Loop, files FileLister, adv Advertiser) *Server {
	if files == nil {
		files = SimulatedFiles{}
	}
	if adv == nil {
		adv = NoopAdvertiser{}
	}
	hub := NewHub()
	disp := NewDispatcher(loop, files, hub.Count)
	return &Server{
		cfg:  cfg,
		loop: loop,
		hub:  hub,
		adv:  adv,
		mux:  Handler(loop, disp, hub, files),
	}
}

// Handler exposes the HTTP surface, mainly for tests over httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the engine loop and serves HTTP until ctx is cancelled. The
// advertisement is withdrawn and every websocket torn down on the way out.
func (s *Server) Run(ctx context.Context) error {
	go s.loop.Run(ctx)

	if s.cfg.Advertise {
		hostname, _ := os.Hostname()
		props := map[string]string{
			"version":  SimulatorVersion,
			"hostname": hostname,
		}
		if err := s.adv.Advertise(s.cfg.ServiceName, s.cfg.Port, props); err != nil {
			// Discovery is best-effort; the server still runs without it.
			logrus.Warnf("server: advertisement failed: %v", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	httpSrv := &http.Server{Addr: addr, Handler: s.mux}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("server: listening on %s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.adv.StopAdvertising()
		s.hub.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		logrus.Info("server: stopped")
		return nil
	case err := <-errCh:
		s.adv.StopAdvertising()
		return err
	}
}
