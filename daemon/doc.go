// Package daemon implements the supervisor half of serverino (spec.md §4):
// the Poller-driven event loop that accepts client connections, frames
// requests off the wire, dispatches them to worker processes over a
// control channel, and relays responses back — all without the daemon
// process ever touching application code.
//
// The event-loop shape is grounded in the teacher's reactor package
// (reactor/reactor_linux.go, reactor/reactor_windows.go): one OS-specific
// Poller implementation behind a tiny interface, driven by a single
// goroutine. Where the teacher reacts to raw fd readiness and dispatches
// to an in-process handler, the Scheduler here reacts the same way but
// dispatches across a process boundary via ctrlchan instead.
package daemon
