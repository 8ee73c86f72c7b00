// Package sim provides the simulated printer state engine behind the Moonraker API.
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - store.go: the object state store and its deterministic per-tick advancement
//   - job.go: the print-job state machine (idle → printing ⇄ paused → terminal)
//   - engine.go: the single-owner engine that advances both and broadcasts deltas
//
// # Architecture
//
// The engine is single-threaded. One Tick advances every object and the active job,
// then computes per-subscriber deltas against each connection's last-sent baseline
// (broadcast.go). Command handlers (job control, gcode) mutate the store through the
// same timeline, so observers never see the store mid-mutation.
//
// loop.go wraps the engine in a goroutine: a fixed-period ticker drives Tick, and all
// external access funnels through a closure channel instead of a lock.
//
// Field values are the tagged variant in value.go (number/bool/string); the object
// catalog is fixed at startup (catalog.go) and may be replaced from a YAML file.
package sim
