//go:build nohook

package main

import "github.com/danmuck/touch2tuio/internal/service"

// Built without gohook; use_global_hook is logged and ignored.
func serviceOptions() []service.Option {
	return nil
}
