// Package protocol owns the TUIO 1.1 /tuio/2Dcur message contract.
//
// Ownership boundary:
// - typed OSC argument and message primitives shared by every wire encoding
// - /tuio/2Dcur source, alive, set and fseq message builders
// - semantic decoding of a message sequence back into a cursor frame
//
// Wire encodings live in subpackages:
// - osc: binary OSC 1.0 bundles (UDP)
// - xmlosc: Flash XMLSocket <OSCPACKET> documents (TCP)
package protocol
