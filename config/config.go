// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RuntimeOS is the OS used to pick configuration paths. Tests override it.
var RuntimeOS = runtime.GOOS

const (
	appName        = "keyring"
	configFileName = appName + ".yaml"
	envPrefix      = appName
)

// Config is the full application configuration.
type Config struct {
	Keystore struct {
		Root string `mapstructure:"root" yaml:"root"`
	} `mapstructure:"keystore" yaml:"keystore"`
	Keygen struct {
		Backend string        `mapstructure:"backend" yaml:"backend"`
		Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	} `mapstructure:"keygen" yaml:"keygen"`
	Audit struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"audit" yaml:"audit"`
	Database struct {
		Type string `mapstructure:"type" yaml:"type"`
		Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"database" yaml:"database"`
	Security struct {
		Encryption bool   `mapstructure:"encryption" yaml:"encryption"`
		KeyFile    string `mapstructure:"key_file" yaml:"key_file"`
	} `mapstructure:"security" yaml:"security"`
	Language string `mapstructure:"language" yaml:"language"`
	Log      struct {
		Level string `mapstructure:"level" yaml:"level"`
	} `mapstructure:"log" yaml:"log"`
}

// flagAliases maps short CLI flag names onto configuration keys.
var flagAliases = map[string]string{
	"root":      "keystore.root",
	"backend":   "keygen.backend",
	"lang":      "language",
	"log-level": "log.level",
}

// Defaults returns the default value of every configuration key.
func Defaults() map[string]any {
	dataDir := "."
	if dir, err := userConfigDir(); err == nil {
		dataDir = dir
	}
	return map[string]any{
		"keystore.root":       filepath.Join("~", ".ssh"),
		"keygen.backend":      "auto",
		"keygen.timeout":      "60s",
		"audit.enabled":       true,
		"database.type":       "sqlite",
		"database.dsn":        filepath.Join(dataDir, "audit.db"),
		"security.encryption": false,
		"security.key_file":   filepath.Join(dataDir, "gate.key"),
		"language":            "en",
		"log.level":           "info",
	}
}

func userConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// GetConfigPath returns the full path of the user or system configuration
// file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch RuntimeOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Keyring")
		default:
			configDir = "/etc/keyring"
		}
	} else {
		dir, err := userConfigDir()
		if err != nil {
			return "", err
		}
		configDir = dir
	}
	return filepath.Join(configDir, configFileName), nil
}

// LoadConfig merges defaults, the configuration file, KEYRING_* environment
// variables and the flags of cmd into a T. When no configuration file was
// read the populated T is returned together with a
// viper.ConfigFileNotFoundError, which callers may ignore.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	if configFile != nil && *configFile != "" {
		if fi, err := os.Stat(*configFile); err != nil || fi.Size() == 0 {
			// Missing and zero-length files count as "no configuration".
			c, uerr := finish[T](v, cmd)
			if uerr != nil {
				return c, uerr
			}
			return c, viper.ConfigFileNotFoundError{}
		}
		v.SetConfigFile(*configFile)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	var notFound error
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return c, err
		}
		notFound = nf
	}

	c, err := finish[T](v, cmd)
	if err != nil {
		return c, err
	}
	return c, notFound
}

// finish layers environment variables and flags over v and decodes it.
func finish[T any](v *viper.Viper, cmd *cobra.Command) (T, error) {
	var c T
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
		for flag, key := range flagAliases {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// WriteConfigFile writes c to the user or system configuration path with
// mode 0600.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}
	return WriteConfigFileTo(c, path)
}

// WriteConfigFileTo writes c as YAML to path, creating parent directories.
func WriteConfigFileTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
