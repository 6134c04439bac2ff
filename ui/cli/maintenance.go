// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	keyagent "github.com/toeirei/keyring/internal/agent"
	"github.com/toeirei/keyring/internal/core"
	"github.com/toeirei/keyring/internal/i18n"
	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/model"
	"golang.org/x/crypto/ssh/agent"
)

// connectAgent is replaced in tests.
var connectAgent = func() (agent.Agent, func() error, error) {
	conn, err := keyagent.Connect()
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}

func newSyncCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Repair the SSH config entries of all managed keys",
		Long: `Add a missing IdentityFile entry for every listed key and remove entries
that point into the key directory at private keys which no longer exist.
Entries for files outside the key directory are never touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := manager.SyncConfig(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !rep.Changed() {
				fmt.Fprintln(out, i18n.T("sync.up_to_date"))
				return nil
			}
			for _, p := range rep.Added {
				fmt.Fprintln(out, i18n.T("sync.added", p))
			}
			for _, p := range rep.Removed {
				fmt.Fprintln(out, i18n.T("sync.removed", p))
			}
			if rep.DryRun {
				fmt.Fprintln(out, i18n.T("sync.dry_run"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing the config")
	return cmd
}

func newAgentAddCmd() *cobra.Command {
	var lifetime time.Duration
	cmd := &cobra.Command{
		Use:   "agent-add <name>",
		Short: "Load a managed private key into the running ssh-agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeAgent, err := connectAgent()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := closeAgent(); cerr != nil {
					logging.L.Debug("closing agent connection", "err", cerr)
				}
			}()
			if err := manager.AddToAgent(cmd.Context(), a, args[0], lifetime); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("agent.success", args[0]))
			return nil
		},
	}
	cmd.Flags().DurationVar(&lifetime, "lifetime", 0, "Remove the key from the agent after this long (0 keeps it)")
	return cmd
}

func newBackupCmd() *cobra.Command {
	var plaintext bool
	cmd := &cobra.Command{
		Use:   "backup <file>",
		Short: "Write all managed key pairs to a compressed, encrypted archive",
		Long: `Write every key pair to a zstd-compressed archive. The archive is
encrypted with the key configured under security.key_file; without
security.encryption the backup is refused unless --plaintext is given.
An existing file is overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("%w: create backup file: %w", model.ErrStorage, err)
			}
			n, err := manager.Backup(cmd.Context(), f, plaintext)
			if cerr := f.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("%w: write backup file: %w", model.ErrStorage, cerr)
			}
			if err != nil {
				_ = os.Remove(path)
				return err
			}
			if !manager.Gate().Encrypts() {
				fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("backup.plaintext_warning"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("backup.success", n, path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&plaintext, "plaintext", false, "Allow an unencrypted backup when encryption is not configured")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore key pairs from a backup archive",
		Long: `Restore every key pair of a backup archive into the key directory and
add SSH config entries for them. Keys that already exist are skipped and
never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("%w: backup file %s", model.ErrNotFound, args[0])
				}
				return fmt.Errorf("%w: open backup file: %w", model.ErrStorage, err)
			}
			defer f.Close()

			rep, err := manager.Restore(cmd.Context(), f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			skipped := make([]string, 0, len(rep.Skipped))
			for name := range rep.Skipped {
				skipped = append(skipped, name)
			}
			sort.Strings(skipped)
			for _, name := range skipped {
				fmt.Fprintln(out, i18n.T("restore.skipped", name, rep.Skipped[name]))
			}
			fmt.Fprintln(out, i18n.T("restore.success", len(rep.Restored), args[0]))
			return nil
		},
	}
}

func newAuditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent key operations from the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := manager.AuditLog(cmd.Context(), limit)
			if errors.Is(err, core.ErrAuditDisabled) {
				fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("audit.disabled"))
				return nil
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ops) == 0 {
				fmt.Fprintln(out, i18n.T("audit.empty"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				i18n.T("audit.header_time"), i18n.T("audit.header_user"), i18n.T("audit.header_action"),
				i18n.T("audit.header_subject"), i18n.T("audit.header_outcome"), i18n.T("audit.header_details"))
			for _, op := range ops {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					op.Timestamp.Local().Format(time.DateTime), op.Username, op.Action, op.Subject, op.Outcome, op.Details)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}
