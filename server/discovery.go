package server

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"github.com/sirupsen/logrus"
)

// moonrakerService is the mDNS service type Moonraker clients browse for.
const moonrakerService = "_moonraker._tcp"

// Advertiser announces the server on the local network. The discovery protocol
// itself is a collaborator; the engine only calls these two methods.
type Advertiser interface {
	Advertise(name string, port int, properties map[string]string) error
	StopAdvertising()
}

// ZeroconfAdvertiser registers the service over mDNS/Bonjour.
type ZeroconfAdvertiser struct {
	srv *zeroconf.Server
}

// NewZeroconfAdvertiser builds an unstarted advertiser.
func NewZeroconfAdvertiser() *ZeroconfAdvertiser {
	return &ZeroconfAdvertiser{}
}

// Advertise registers name under _moonraker._tcp on all interfaces.
func (a *ZeroconfAdvertiser) Advertise(name string, port int, properties map[string]string) error {
	txt := make([]string, 0, len(properties))
	for k, v := range properties {
		txt = append(txt, fmt.Sprintf("%s=%s", k, v))
	}
	srv, err := zeroconf.Register(name, moonrakerService, "local.", port, txt, nil)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	a.srv = srv
	logrus.Infof("discovery: advertising %q on %s port %d", name, moonrakerService, port)
	return nil
}

// StopAdvertising withdraws the registration. Safe without a prior Advertise.
func (a *ZeroconfAdvertiser) StopAdvertising() {
	if a.srv != nil {
		a.srv.Shutdown()
		a.srv = nil
		logrus.Info("discovery: advertisement withdrawn")
	}
}

// NoopAdvertiser satisfies Advertiser for tests and --advertise=false runs.
type NoopAdvertiser struct{}

func (NoopAdvertiser) Advertise(string, int, map[string]string) error { return nil }
func (NoopAdvertiser) StopAdvertising()                               {}
