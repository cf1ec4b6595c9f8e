package cli

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

//go:embed tripctl.toml
var defaultConfigFile []byte

// DefaultConfigFile is tripctl.toml under the XDG config directory.
func DefaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, "tripboard", "tripctl.toml")
}

func defaultSessionDB() string {
	return filepath.Join(xdg.DataHome, "tripboard", "session.db")
}

// initConfig reads file into v. A missing file is created from the embedded default.
func initConfig(v *viper.Viper, file string) error {
	v.SetConfigType("toml")
	v.SetEnvPrefix("tripctl")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file == "" {
		return v.ReadConfig(bytes.NewReader(defaultConfigFile))
	}
	v.SetConfigFile(file)

	if _, err := os.Stat(file); err != nil {
		if err := v.ReadConfig(bytes.NewReader(defaultConfigFile)); err != nil {
			return fmt.Errorf("error reading default embedded config: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
		if err := os.WriteFile(file, defaultConfigFile, 0o600); err != nil {
			return fmt.Errorf("error writing default config: %w", err)
		}
		return nil
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func sessionDBPath(v *viper.Viper) string {
	if p := strings.TrimSpace(v.GetString("session-db")); p != "" {
		return p
	}
	return defaultSessionDB()
}
