package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/danmuck/touch2tuio/internal/config"
	"github.com/danmuck/touch2tuio/internal/logging"
	"github.com/danmuck/touch2tuio/internal/observability"
	"github.com/danmuck/touch2tuio/internal/service"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "touch2tuio.toml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "settings file (TOML)")
	hook := flag.Bool("hook", false, "install the global mouse hook regardless of settings")
	flag.Parse()

	logging.ConfigureRuntime()
	observability.InitLogger(service.AppName)

	settings, err := loadSettings(*configPath, flagPassed("config"))
	if err != nil {
		log.Error().Err(err).Msg("touch2tuio settings")
		os.Exit(1)
	}
	if *hook {
		settings.Hooks.UseGlobalHook = true
	}

	svc := service.New(settings, *configPath, serviceOptions()...)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "touch2tuio: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads path over the defaults. A missing file falls back to the
// defaults unless the path was chosen explicitly.
func loadSettings(path string, explicit bool) (config.Settings, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			log.Info().Str("path", path).Msg("touch2tuio no settings file, using defaults")
			return config.Defaults(), nil
		}
		return config.Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return config.Load(path)
}

func flagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
