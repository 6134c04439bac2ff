// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cfg "github.com/toeirei/keyring/config"
)

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil && !isNotFound(err) {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Keygen.Backend != "auto" || got.Database.Type != "sqlite" || got.Language != "en" {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if got.Keygen.Timeout != 60*time.Second {
		t.Fatalf("timeout = %v, want 60s", got.Keygen.Timeout)
	}
	if !got.Audit.Enabled || got.Security.Encryption {
		t.Fatalf("boolean defaults wrong: %+v", got)
	}
}

func TestLoadConfig_EmptyCandidate_TreatedAsNotFound(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	emptyPath := filepath.Join(tmp, "keyring.yaml")
	if err := os.WriteFile(emptyPath, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &emptyPath)
	if !isNotFound(err) {
		t.Fatalf("expected ConfigFileNotFoundError, got %T %v", err, err)
	}
	if got.Language != "en" {
		t.Fatalf("defaults missing: %+v", got)
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	file := filepath.Join(tmp, "cfg.yaml")
	content := "keystore:\n  root: /srv/keys\nkeygen:\n  backend: native\n  timeout: 5s\nsecurity:\n  encryption: true\nlanguage: zh\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Keystore.Root != "/srv/keys" || got.Keygen.Backend != "native" || got.Language != "zh" {
		t.Fatalf("file values not applied: %+v", got)
	}
	if got.Keygen.Timeout != 5*time.Second || !got.Security.Encryption {
		t.Fatalf("typed values not decoded: %+v", got)
	}
	if got.Database.Type != "sqlite" {
		t.Fatalf("defaults lost for keys absent from the file")
	}
}

func TestLoadConfig_BrokenConfig_ReturnsParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	file := filepath.Join(tmp, "broken.yaml")
	if err := os.WriteFile(file, []byte("keygen: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err == nil || isNotFound(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_EnvVarParsing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("KEYRING_DATABASE_TYPE", "postgres")
	t.Setenv("KEYRING_DATABASE_DSN", "postgresql://envuser@/envdb")
	t.Setenv("KEYRING_KEYSTORE_ROOT", "/env/keys")

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil && !isNotFound(err) {
		t.Fatal(err)
	}
	if got.Database.Type != "postgres" || got.Database.Dsn != "postgresql://envuser@/envdb" {
		t.Fatalf("env database values not applied: %+v", got.Database)
	}
	if got.Keystore.Root != "/env/keys" {
		t.Fatalf("root = %q", got.Keystore.Root)
	}
}

func TestLoadConfig_FlagAliasOverridesEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("KEYRING_LANGUAGE", "zh")

	cmd := &cobra.Command{}
	cmd.Flags().String("lang", "", "language")
	cmd.Flags().String("root", "", "key store root")
	if err := cmd.Flags().Set("lang", "en"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("root", "/flag/keys"); err != nil {
		t.Fatal(err)
	}

	got, err := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), nil)
	if err != nil && !isNotFound(err) {
		t.Fatal(err)
	}
	if got.Language != "en" {
		t.Fatalf("expected en from flag (not zh from env), got %q", got.Language)
	}
	if got.Keystore.Root != "/flag/keys" {
		t.Fatalf("root = %q", got.Keystore.Root)
	}
}

func TestWriteConfigFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	c := cfg.Config{}
	c.Database.Type = "mysql"
	c.Database.Dsn = "user:pw@/audit?parseTime=true"
	c.Keygen.Backend = "ssh-keygen"
	c.Language = "zh"
	if err := cfg.WriteConfigFile(&c, false); err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}

	path, err := cfg.GetConfigPath(false)
	if err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}
	if runtime.GOOS != "windows" && fi.Mode().Perm() != 0o600 {
		t.Fatalf("config file mode = %v", fi.Mode().Perm())
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Database.Type != "mysql" || got.Keygen.Backend != "ssh-keygen" || got.Language != "zh" {
		t.Fatalf("round trip lost values: %+v", got)
	}
}

func TestGetConfigPath(t *testing.T) {
	orig := cfg.RuntimeOS
	defer func() { cfg.RuntimeOS = orig }()

	cfg.RuntimeOS = "linux"
	p, err := cfg.GetConfigPath(true)
	if err != nil || p != filepath.Join("/etc/keyring", "keyring.yaml") {
		t.Fatalf("system path = %q, %v", p, err)
	}

	cfg.RuntimeOS = "windows"
	t.Setenv("ProgramData", filepath.Join(t.TempDir(), "pd"))
	p, err = cfg.GetConfigPath(true)
	if err != nil || p != filepath.Join(os.Getenv("ProgramData"), "Keyring", "keyring.yaml") {
		t.Fatalf("windows system path = %q, %v", p, err)
	}

	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		p, err = cfg.GetConfigPath(false)
		if err != nil || p != "/tmp/xdg/keyring/keyring.yaml" {
			t.Fatalf("user path = %q, %v", p, err)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := cfg.ExpandHome(filepath.Join("~", ".ssh"))
	if err != nil || got != filepath.Join(home, ".ssh") {
		t.Fatalf("ExpandHome = %q, %v", got, err)
	}
	if got, _ := cfg.ExpandHome("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path changed: %q", got)
	}
	if got, _ := cfg.ExpandHome("~user/x"); got != "~user/x" {
		t.Fatalf("~user form changed: %q", got)
	}
}
