//go:build !nohook

package main

import (
	"github.com/danmuck/touch2tuio/internal/bridge"
	"github.com/danmuck/touch2tuio/internal/hookinput"
	"github.com/danmuck/touch2tuio/internal/service"
)

func serviceOptions() []service.Option {
	return []service.Option{
		service.WithInputFactory(func(l *bridge.Listener) service.InputSource {
			return hookinput.New(l)
		}),
	}
}
