package config

import (
	"fmt"
	"os"
)

const templateHeader = `# touch2tuio settings
# Durations use Go syntax (300ms, 1s). Omitted keys keep their defaults.

`

// Template returns the default settings as a commented TOML document.
func Template() (string, error) {
	body, err := Encode(Defaults())
	if err != nil {
		return "", err
	}
	return templateHeader + string(body), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
