package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// presetCommand groups the preset subcommands.
func (c *CLI) presetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "List and print preset partition tables",
		Long: `List and print preset partition tables.

Besides the built-in presets, presets can be defined in the config file as
[[preset]] entries; a config preset with a built-in's name replaces it.`,
	}

	cmd.AddCommand(c.presetListCommand())
	cmd.AddCommand(c.presetShowCommand())

	return cmd
}

func (c *CLI) presetListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.loadEnvironment()
			if err != nil {
				return err
			}

			rows := [][]string{}
			for _, p := range env.presets.List() {
				rows = append(rows, []string{
					p.Name,
					p.Description,
					humanize.IBytes(uint64(p.Size())),
					fmt.Sprintf("%d", len(p.Entries)),
				})
			}
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
				Headers("Preset", "Description", "Size", "Partitions").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					switch {
					case row == table.HeaderRow:
						return tableHeaderStyle.Padding(0, 1)
					case col == 0:
						return StyleTitle.Padding(0, 1)
					case col == 2:
						return tableNumberStyle
					default:
						return tableCellStyle
					}
				})
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			printNextStep("Print one", appName+" preset show "+env.presets.Names()[0])
			return nil
		},
	}
}

func (c *CLI) presetShowCommand() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a preset laid out for the configured device",
		Example: `  partplan preset show two-ota > partitions.csv
  partplan preset show 4mb-spiffs -f table`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			env, err := c.loadEnvironment()
			if err != nil || len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return env.presets.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.loadEnvironment()
			if err != nil {
				return err
			}
			p, err := env.presets.Get(args[0])
			if err != nil {
				return err
			}
			tbl := c.newTable(env)
			if err := p.Apply(tbl); err != nil {
				return err
			}
			if !tbl.Fits() {
				printWarning("Preset %s does not fit %s of flash", p.Name, humanize.IBytes(uint64(env.device.FlashCapacity)))
			}
			return writeLayoutTo(cmd.OutOrStdout(), output, tbl, format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	registerFormatFlag(cmd, &format)
	return cmd
}
