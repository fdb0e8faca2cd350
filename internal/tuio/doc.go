// Package tuio owns the /tuio/2Dcur cursor session.
//
// Ownership boundary:
// - cursor records and the sessionId-keyed index (Registry)
// - cursor identity, frame sequencing and subscriber fan-out (Manager)
//
// Lifecycle order per frame:
// - InitFrame -> Add/Update/Remove* -> CommitFrame
//
// The package performs no I/O. Encoding and delivery live in internal/server.
package tuio
