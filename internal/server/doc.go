// Package server turns committed cursor frames into TUIO network traffic.
//
// Ownership boundary:
// - CursorServer: lifecycle delegation to tuio.Manager plus frame encoding
// - UDP bundle assembly with capacity splitting and keepalive frames
// - XMLSocket packets for the TCP channel
// - channel enable flags, source naming, startup and shutdown frames
// - read-only HTTP status routes
package server
