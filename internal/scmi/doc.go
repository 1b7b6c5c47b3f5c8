// Package scmi owns the server side of the System Control and Management
// Interface: message envelope, protocol dispatch, payload-size gating and the
// Base, Clock, Reset Domain and Voltage Domain command handlers.
//
// Ownership boundary:
// - protocol routing (closed set of protocols)
// - per-protocol handler and payload-size tables
// - command semantics on top of the Platform provider interfaces
//
// Transport framing (SMT) and resource back-ends live outside this package.
// Dispatch is synchronous and run-to-completion; callers serialize entry.
package scmi
