// Package cli implements ctxcli, the owner's tool for producing and reading
// ciphertext. The passphrase is prompted for on the terminal and never
// leaves the process.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmitrijs2005/ctxvault/internal/common"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Server     string
	Token      string
}

var (
	readPassword = term.ReadPassword
	stdinFd      = func() int { return int(os.Stdin.Fd()) }
)

// NewRootCommand creates the root command for ctxcli.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "ctxcli",
		Short:         "Owner tool for a ctxvault server",
		Long:          "Encrypts values, computes blind indexes and reads records back from a ctxvault server, decrypting them locally.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "server base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "access token")

	cmd.AddCommand(NewEncryptCommand(opts))
	cmd.AddCommand(NewDecryptCommand(opts))
	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

// promptPassphrase reads the passphrase without echo. The caller wipes the
// returned bytes.
func promptPassphrase(cmd *cobra.Command) ([]byte, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Passphrase: ")
	p, err := readPassword(stdinFd())
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	if len(p) == 0 {
		return nil, errors.New("empty passphrase")
	}
	return p, nil
}

// withPassphrase prompts once and hands the passphrase to fn.
func withPassphrase(cmd *cobra.Command, fn func(passphrase string) error) error {
	p, err := promptPassphrase(cmd)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(p)
	return fn(string(p))
}
