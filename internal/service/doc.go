// Package service runs touch2tuio as a process: it opens the UDP and XMLSocket
// channels, drives the cursor server from the input bridge, and exposes a
// diagnostics HTTP server and a JSON-lines control endpoint.
package service
