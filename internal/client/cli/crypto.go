package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ctxvault/internal/blindindex"
	"github.com/dmitrijs2005/ctxvault/internal/cryptox"
)

// cannotDecrypt is shown in place of a value the passphrase does not open.
const cannotDecrypt = "[cannot decrypt]"

// ErrNoIndex is returned when a value normalizes to nothing.
var ErrNoIndex = errors.New("value has no blind index")

// NewEncryptCommand creates the encrypt command.
func NewEncryptCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt [text]",
		Short: "Encrypt text into an envelope",
		Long:  "Encrypts the argument, or standard input when no argument is given, and prints the text envelope.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plaintext string
			if len(args) == 1 {
				plaintext = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				plaintext = strings.TrimRight(string(b), "\r\n")
			}

			return withPassphrase(cmd, func(passphrase string) error {
				codec, err := cryptox.NewCodec(passphrase)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), codec.EncryptString(plaintext))
				return nil
			})
		},
	}
}

// NewDecryptCommand creates the decrypt command.
func NewDecryptCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <value>",
		Short: "Decrypt a text envelope",
		Long:  "Prints the plaintext of an envelope. Values that are not envelopes are printed unchanged.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPassphrase(cmd, func(passphrase string) error {
				codec, err := cryptox.NewCodec(passphrase)
				if err != nil {
					return err
				}
				r := codec.Reveal(args[0])
				if r.Status == cryptox.RevealFailed {
					fmt.Fprintln(cmd.OutOrStdout(), cannotDecrypt)
					return r.Err
				}
				fmt.Fprintln(cmd.OutOrStdout(), r.Text)
				return nil
			})
		},
	}
}

// NewIndexCommand creates the index command.
func NewIndexCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index phone|text|name <value>",
		Short: "Compute blind indexes for a value",
		Long: `Computes the blind index a sync client stores next to an encrypted field.

  phone  digits-only phone index (handleIndex, phoneIndex)
  text   normalized text index (titleIndex, emailIndex, nameIndex)
  name   full, first and last name indexes as JSON`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"phone", "text", "name"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, value := args[0], args[1]
			switch mode {
			case "phone", "text", "name":
			default:
				return fmt.Errorf("unknown index type %q: must be phone, text or name", mode)
			}

			return withPassphrase(cmd, func(passphrase string) error {
				x := blindindex.New(passphrase)
				defer x.Wipe()

				switch mode {
				case "name":
					n := x.NameIndexes(value)
					if n.Full == "" {
						return ErrNoIndex
					}
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(n)
				case "phone":
					return printIndex(cmd, x.Phone(value))
				default:
					return printIndex(cmd, x.Text(value))
				}
			})
		},
	}
}

func printIndex(cmd *cobra.Command, idx string) error {
	if idx == "" {
		return ErrNoIndex
	}
	fmt.Fprintln(cmd.OutOrStdout(), idx)
	return nil
}
