package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"kofnote/internal/records"
)

const (
	appDirName     = "kofnote"
	fileName       = "settings.json"
	legacyFileName = "config.yaml"
	envPrefix      = "KOFNOTE"
)

// Dir returns the OS-specific config directory for this application,
// falling back to $HOME/.config the same way the teacher's
// internal/config.Load does when os.UserConfigDir is unavailable.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.ExpandEnv("$HOME/.config")
	}
	return filepath.Join(dir, appDirName)
}

// Path returns the absolute path to settings.json.
func Path() string {
	return filepath.Join(Dir(), fileName)
}

func legacyPath() string {
	return filepath.Join(Dir(), legacyFileName)
}

// Load reads settings.json (layering KOFNOTE_-prefixed environment
// variables over it), migrates a legacy config.yaml on first run when no
// settings.json exists yet, or returns normalized defaults when neither
// file is present. The result is always normalized.
func Load() (Settings, error) {
	path := Path()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if data, err := os.ReadFile(legacyPath()); err == nil {
			var legacy legacyConfig
			if yamlErr := yaml.Unmarshal(data, &legacy); yamlErr == nil {
				migrated := migrateLegacy(legacy)
				if saveErr := Save(migrated); saveErr != nil {
					return migrated, nil
				}
				return migrated, nil
			}
		}
		fresh := Normalize(Default())
		return fresh, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	return Normalize(s), nil
}

// Save normalizes and pretty-prints settings to settings.json via an
// atomic replace.
func Save(s Settings) error {
	s = Normalize(s)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := records.WriteAtomic(Path(), data); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
