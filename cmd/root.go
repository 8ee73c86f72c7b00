package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moonraker-sim/moonraker-sim/server"
	"github.com/moonraker-sim/moonraker-sim/sim"
)

var (
	// CLI flags for the HTTP/websocket surface
	host        string // Bind address
	port        int    // Bind port
	logLevel    string // Log verbosity level
	advertise   bool   // Announce the server over mDNS
	serviceName string // mDNS instance name

	// CLI flags for the simulated printer
	tickPeriod   time.Duration // Interval between simulation ticks
	heaterStep   float64       // Max heater temperature change per tick (degrees)
	progressRate float64       // Print progress gained per printing tick
	catalogPath  string        // Optional YAML catalog override
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "moonraker-sim",
	Short: "Simulated Moonraker printer host API for client development",
}

// runCmd starts the simulator server using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulator server",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		catalog := sim.DefaultCatalog()
		if catalogPath != "" {
			catalog, err = sim.LoadCatalog(catalogPath)
			if err != nil {
				logrus.Fatalf("Unable to load catalog %s: %v", catalogPath, err)
			}
		}

		engine, err := sim.NewEngine(sim.Config{
			Catalog:      catalog,
			TickPeriod:   tickPeriod,
			HeaterStep:   heaterStep,
			ProgressRate: progressRate,
		})
		if err != nil {
			logrus.Fatalf("Unable to build engine: %v", err)
		}

		cfg := server.Config{
			Host:        host,
			Port:        port,
			ServiceName: serviceName,
			Advertise:   advertise,
		}
		if err := cfg.ApplyEnv(); err != nil {
			logrus.Fatalf("Invalid environment configuration: %v", err)
		}

		logrus.Infof("Starting Moonraker simulator on %s:%d (tick %s, heater step %.1f, progress rate %.3f)",
			cfg.Host, cfg.Port, tickPeriod, heaterStep, progressRate)

		var adv server.Advertiser = server.NoopAdvertiser{}
		if cfg.Advertise {
			adv = server.NewZeroconfAdvertiser()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(cfg, sim.NewLoop(engine), server.SimulatedFiles{}, adv)
		if err := srv.Run(ctx); err != nil {
			logrus.Fatalf("Server error: %v", err)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&host, "host", "0.0.0.0", "Host to bind to")
	runCmd.Flags().IntVar(&port, "port", 7125, "Port to bind to")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().BoolVar(&advertise, "advertise", true, "Advertise the server over mDNS/Bonjour")
	runCmd.Flags().StringVar(&serviceName, "service-name", "Moonraker Simulator", "mDNS service instance name")

	runCmd.Flags().DurationVar(&tickPeriod, "tick-period", 250*time.Millisecond, "Interval between simulation ticks")
	runCmd.Flags().Float64Var(&heaterStep, "heater-step", 5.0, "Max heater temperature change per tick (degrees)")
	runCmd.Flags().Float64Var(&progressRate, "progress-rate", 0.01, "Print progress gained per printing tick")
	runCmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog override file")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
