package server

import (
	"github.com/moonraker-sim/moonraker-sim/sim"
)

// SimulatorVersion is reported wherever real Moonraker reports its version.
const SimulatorVersion = "0.1.0"

// serverInfo builds the server.info result.
func serverInfo(websocketCount int) map[string]any {
	return map[string]any{
		"klippy_connected":       true,
		"klippy_state":           "ready",
		"components":             []string{"server", "database", "file_manager", "machine"},
		"failed_components":      []string{},
		"registered_directories": []string{"config", "logs", "gcodes"},
		"warnings":               []string{},
		"websocket_count":        websocketCount,
		"moonraker_version":      SimulatorVersion,
	}
}

// printerInfo builds the printer.info result from the current job view.
func printerInfo(job *sim.Job) map[string]any {
	state := "ready"
	message := "Printer is ready"
	if job != nil {
		switch job.State {
		case sim.JobPrinting:
			state = "printing"
			message = "Printing " + job.Filename
		case sim.JobPaused:
			state = "paused"
			message = "Paused " + job.Filename
		}
	}
	return map[string]any{
		"state":            state,
		"state_message":    message,
		"hostname":         "moonraker-simulator",
		"software_version": "Moonraker Simulator v" + SimulatorVersion,
		"cpu_info":         "Simulated CPU",
		"klipper_path":     "/fake/path/klippy",
		"python_path":      "/fake/path/python",
		"log_file":         "/fake/path/klippy.log",
		"config_file":      "/fake/path/printer.cfg",
	}
}
