// Package transport owns the network endpoints that carry encoded TUIO frames.
//
// Ownership boundary:
// - connected UDP senders with loopback-aware datagram sizing
// - a TCP broadcast server with per-client failure isolation
// - channel running state for status queries
package transport
