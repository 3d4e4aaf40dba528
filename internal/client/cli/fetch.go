package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ctxvault/internal/client/api"
	"github.com/dmitrijs2005/ctxvault/internal/client/config"
	"github.com/dmitrijs2005/ctxvault/internal/cryptox"
	"github.com/dmitrijs2005/ctxvault/internal/schema"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	Limit   int
	Offset  int
	Filters []string
}

// RevealedField replaces an encrypted value in fetch output.
type RevealedField struct {
	Status cryptox.RevealStatus `json:"status"`
	Text   string               `json:"text"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <kind>",
		Short: "Read records from the server and decrypt them locally",
		Long: `Reads one page of a record kind and prints it as JSON with every
encrypted field replaced by {"status", "text"}. Fields the passphrase cannot
open are shown as "[cannot decrypt]".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (server default when 0)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "records to skip")
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "exact-match filter name=value (repeatable)")

	return cmd
}

func runFetch(cmd *cobra.Command, rootOpts *RootOptions, opts *FetchOptions, kindName string) error {
	kind, ok := schema.Lookup(kindName)
	if !ok {
		return fmt.Errorf("unknown kind %q", kindName)
	}

	query, err := fetchQuery(kind, opts)
	if err != nil {
		return err
	}

	cfg, err := config.Load(rootOpts.ConfigPath, os.LookupEnv)
	if err != nil {
		return err
	}
	if rootOpts.Server != "" {
		cfg.ServerURL = rootOpts.Server
	}
	if rootOpts.Token != "" {
		cfg.Token = rootOpts.Token
	}
	if cfg.Token == "" {
		return fmt.Errorf("no access token: use --token or %sTOKEN", config.EnvPrefix)
	}

	return withPassphrase(cmd, func(passphrase string) error {
		codec, err := cryptox.NewCodec(passphrase)
		if err != nil {
			return err
		}

		doc, err := api.New(cfg.ServerURL, cfg.Token, cfg.Timeout).Fetch(cmd.Context(), kind.Name, query)
		if err != nil {
			return err
		}
		revealItems(codec, kind, doc)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	})
}

func fetchQuery(kind *schema.Kind, opts *FetchOptions) (url.Values, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	for _, f := range opts.Filters {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid filter %q: want name=value", f)
		}
		field, found := kind.Field(name)
		if !found || !field.Filter {
			return nil, fmt.Errorf("%s cannot be filtered by %q", kind.Name, name)
		}
		q.Add(name, value)
	}
	return q, nil
}

// revealItems rewrites every encrypted field of the kind's items, and of
// their children, in place.
func revealItems(codec *cryptox.Codec, kind *schema.Kind, doc map[string]any) {
	items, _ := doc[kind.ItemsField].([]any)
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		revealFields(codec, kind, item)
		if kind.Child != nil {
			revealItems(codec, kind.Child, item)
		}
	}
}

func revealFields(codec *cryptox.Codec, kind *schema.Kind, item map[string]any) {
	for _, f := range kind.EncryptedFields() {
		v, ok := item[f.Name].(string)
		if !ok {
			continue
		}
		r := codec.Reveal(v)
		out := RevealedField{Status: r.Status, Text: r.Text}
		if r.Status == cryptox.RevealFailed {
			out.Text = cannotDecrypt
		}
		item[f.Name] = out
	}
}
