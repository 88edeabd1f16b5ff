package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/partplan/pkg/io"
)

// defaultShareBase points share links at a locally running "partplan serve".
const defaultShareBase = "http://localhost" + defaultAddr + "/v1/layout"

// urlCommand groups the share URL subcommands.
func (c *CLI) urlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Encode and decode share URLs",
		Long: `Encode and decode share URLs.

A share URL carries a whole partition table in its "partitions" query
parameter, base64 encoded. Opening it against "partplan serve" returns the
laid-out table.`,
	}

	cmd.AddCommand(c.urlEncodeCommand())
	cmd.AddCommand(c.urlDecodeCommand())

	return cmd
}

func (c *CLI) urlEncodeCommand() *cobra.Command {
	var (
		base   string
		reflow bool
	)

	cmd := &cobra.Command{
		Use:   "encode <table.csv|->",
		Short: "Print a share URL for a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.loadEnvironment()
			if err != nil {
				return err
			}
			tbl, err := c.readTable(env, args[0], reflow)
			if err != nil {
				return err
			}
			var csv bytes.Buffer
			if err := pkgio.WriteCSV(&csv, tbl.Partitions()); err != nil {
				return err
			}
			link, err := pkgio.EncodeShareURL(base, csv.Bytes())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", defaultShareBase, "base URL the payload is attached to")
	cmd.Flags().BoolVar(&reflow, "reflow", false, "ignore offsets in the input and lay the table out from scratch")
	return cmd
}

func (c *CLI) urlDecodeCommand() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "decode <url>",
		Short: "Lay out the table carried by a share URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.loadEnvironment()
			if err != nil {
				return err
			}
			raw := args[0]
			// A bare query string is accepted as well as a full URL.
			if strings.HasPrefix(raw, pkgio.ShareParam+"=") {
				raw = "?" + raw
			}
			csv, err := pkgio.DecodeShareURL(raw)
			if err != nil {
				return err
			}
			entries, err := pkgio.ReadCSV(bytes.NewReader(csv))
			if err != nil {
				return err
			}
			tbl := c.newTable(env)
			opts := pkgio.LoadOptions{KeepCapacity: env.keepCapacity, KeepLocation: env.keepLocation}
			if err := pkgio.Load(entries, tbl, opts); err != nil {
				return err
			}
			return writeLayoutTo(cmd.OutOrStdout(), output, tbl, format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	registerFormatFlag(cmd, &format)
	return cmd
}
