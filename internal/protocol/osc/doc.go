// Package osc encodes and decodes OSC 1.0 messages and bundles.
//
// Ownership boundary:
// - binary layout of messages (4-byte aligned strings, big-endian int32/float32)
// - fixed-capacity bundle assembly with exact size accounting
// - parsing of bundles for receivers and tests
package osc
