// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/toeirei/keyring/internal/i18n"
	"github.com/toeirei/keyring/internal/model"
	"golang.org/x/term"
)

// Replaced in tests.
var (
	writeClipboard = clipboard.WriteAll
	isTerminal     = func(r io.Reader) bool {
		f, ok := r.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
)

func newListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List managed key pairs",
		Long: `List every key pair in the key directory with its type, SHA256
fingerprint and the modification time of the private key. Public keys
without a private key next to them are not listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := manager.ListKeys(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(keys)
			}
			if len(keys) == 0 {
				fmt.Fprintln(out, i18n.T("list.empty", manager.Store().Root()))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				i18n.T("list.header_name"), i18n.T("list.header_type"), i18n.T("list.header_fingerprint"),
				i18n.T("list.header_last_used"), i18n.T("list.header_comment"))
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", k.Name, k.KeyType, k.Fingerprint, k.LastUsed, k.Comment)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the keys as JSON")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var keyType, comment, email string
	cmd := &cobra.Command{
		Use:   "generate <name>",
		Short: "Generate a new key pair and add it to the SSH config",
		Long: `Generate a key pair named <name> in the key directory. The private key
has no passphrase and is written with mode 0600. An IdentityFile entry for
it is added to the SSH config in the same directory. --email takes
precedence over --comment as the key comment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := manager.GenerateKey(cmd.Context(), args[0], keyType, comment, email); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("generate.success", strings.ToLower(keyType), args[0]))
			return nil
		},
	}
	cmd.Flags().StringVarP(&keyType, "type", "t", model.KeyTypeEd25519, `Key type ("ed25519", "rsa", "ecdsa")`)
	cmd.Flags().StringVarP(&comment, "comment", "C", "", "Key comment")
	cmd.Flags().StringVarP(&email, "email", "E", "", "Email address used as the key comment")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a key pair and its SSH config entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !yes {
				in := cmd.InOrStdin()
				if !isTerminal(in) {
					return fmt.Errorf("%w: refusing to delete %q without --yes when stdin is not a terminal", model.ErrValidation, name)
				}
				answer := promptForConfirmation(in, cmd.OutOrStdout(), i18n.T("delete.confirm", name))
				if answer != "y" && answer != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("delete.aborted"))
					return nil
				}
			}
			if err := manager.DeleteKey(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("delete.success", name))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print the public key of a key pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := manager.GetPublicKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pub)
			return nil
		},
	}
}

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <name>",
		Short: "Copy the public key of a key pair to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := manager.GetPublicKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := writeClipboard(pub); err != nil {
				return &model.ToolError{Tool: "clipboard", Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("copy.success", args[0]))
			return nil
		},
	}
}

// promptForConfirmation displays a prompt and reads one answer line.
func promptForConfirmation(in io.Reader, out io.Writer, prompt string) string {
	fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(strings.ToLower(answer))
}
