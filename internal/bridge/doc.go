// Package bridge feeds platform pointer events into the cursor engine.
//
// Ownership boundary:
// - raw screen coordinates to normalized TUIO coordinates and back
// - pointer id to cursor session id mapping
// - one frame per pointer event and one frame per reaper sweep
// - idle cursor expiry
package bridge
