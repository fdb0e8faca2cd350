// Package xmlosc renders OSC messages as Flash XMLSocket documents.
//
// Ownership boundary:
// - <OSCPACKET>/<MESSAGE>/<ARGUMENT> document layout
// - number formatting compatible with C++ ostream defaults
// - parsing documents back into protocol messages
package xmlosc
