// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/toeirei/keyring/buildvars"
	"github.com/toeirei/keyring/config"
	"github.com/toeirei/keyring/internal/audit"
	"github.com/toeirei/keyring/internal/core"
	"github.com/toeirei/keyring/internal/i18n"
	"github.com/toeirei/keyring/internal/keygen"
	"github.com/toeirei/keyring/internal/keystore"
	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/security"
	"github.com/toeirei/keyring/internal/tui"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)
var cfgFile string
var verbose bool

var appConfig config.Config

// manager and auditStore are built by setupDefaultServices before any
// subcommand runs.
var (
	manager    *core.Manager
	auditStore *audit.Store
)

func setupDefaultServices(cmd *cobra.Command, _ []string) error {
	configPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), configPath)
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		// First run: persist the defaults so users have a file to edit.
		// An explicit --config path is never created behind the user's back.
		if configPath == nil {
			if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
				logging.Warnf("could not write default config file: %v", writeErr)
			} else if p, perr := config.GetConfigPath(false); perr == nil {
				logging.L.Info(i18n.T("config.created", p))
			}
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	i18n.Init(appConfig.Language)
	if verbose {
		appConfig.Log.Level = "debug"
	}
	if appConfig.Log.Level != "" {
		if err := logging.SetLevel(appConfig.Log.Level); err != nil {
			return err
		}
	}

	return buildServices(cmd.Context(), appConfig)
}

// buildServices opens the key store, the audit store and the gate described
// by cfg and assembles the manager.
func buildServices(ctx context.Context, cfg config.Config) error {
	closeServices()

	root, err := config.ExpandHome(cfg.Keystore.Root)
	if err != nil {
		return err
	}
	store, err := keystore.New(root)
	if err != nil {
		return err
	}
	backend, err := keygen.NewBackend(cfg.Keygen.Backend, cfg.Keygen.Timeout)
	if err != nil {
		return err
	}

	var gateOpts []security.Option
	if cfg.Security.Encryption {
		keyFile, err := config.ExpandHome(cfg.Security.KeyFile)
		if err != nil {
			return err
		}
		key, err := security.LoadOrCreateKey(keyFile)
		if err != nil {
			return err
		}
		gateOpts = append(gateOpts, security.WithFernetKey(key))
	}

	opts := core.Options{Backend: backend}
	if cfg.Audit.Enabled {
		dsn, err := config.ExpandHome(cfg.Database.Dsn)
		if err != nil {
			return err
		}
		if ctx == nil {
			ctx = context.Background()
		}
		st, err := audit.Open(ctx, cfg.Database.Type, dsn)
		if err != nil {
			return err
		}
		auditStore = st
		gateOpts = append(gateOpts, security.WithAuditSink(st))
		opts.Audit = st
	}
	opts.Gate = security.NewGate(gateOpts...)

	manager = core.NewManager(store, opts)
	logging.L.Debug("services ready", "root", root, "backend", backend.Name(), "audit", cfg.Audit.Enabled)
	return nil
}

func closeServices() {
	if auditStore != nil {
		if err := auditStore.Close(); err != nil {
			logging.Warnf("closing audit store: %v", err)
		}
		auditStore = nil
	}
	manager = nil
}

// Execute runs the CLI entrypoint. Errors are printed as one localized line;
// the caller decides the exit code.
func Execute() error {
	defer closeServices()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		return err
	}
	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only an explicitly set --config flag counts.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	return &path, nil
}

// NewRootCmd creates and configures a new root cobra command. Tests call it
// repeatedly to get isolated command trees.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Keyring manages the SSH key pairs in your ~/.ssh directory.",
		Long: `Keyring generates, lists and deletes SSH key pairs in a single key
directory and keeps the SSH client config in step, so every managed key is
offered to servers without editing ~/.ssh/config by hand.

Running without a subcommand launches the interactive key browser.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupDefaultServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(cmd.Context(), manager, manager.Store().Root())
		},
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("root", "", "Key directory (default ~/.ssh)")
	cmd.PersistentFlags().String("backend", "", `Key generator backend ("auto", "ssh-keygen", "native")`)
	cmd.PersistentFlags().String("lang", "", `Message language ("en", "zh")`)
	cmd.PersistentFlags().String("log-level", "", `Log level ("debug", "info", "warn", "error")`)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		// The version command needs no key store.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}

	cmd.AddCommand(
		newListCmd(),
		newGenerateCmd(),
		newDeleteCmd(),
		newShowCmd(),
		newCopyCmd(),
		newSyncCmd(),
		newAgentAddCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newAuditCmd(),
		newTUICmd(),
		versionCmd,
	)
	return cmd
}

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive key browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(cmd.Context(), manager, manager.Store().Root())
		},
	}
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If info is nil, it reads build info from the
// runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := buildvars.CommitOrDefault(gitCommit)
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}

	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record the module as a dependency.
		if (resolvedVersion == "dev" || resolvedVersion == "(devel)") && info.Deps != nil {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}

		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}

	return resolvedVersion, resolvedCommit, resolvedDate
}

const modulePath = "github.com/toeirei/keyring"
