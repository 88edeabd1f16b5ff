package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/partplan/pkg/partition"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for partplan.

Besides subcommands and flags, the scripts complete preset names for
"preset show", output formats for --format, and the standard flash sizes
for --flash-size and "flash-size". Table arguments complete to files.

Load completions into the current shell:

  $ source <(partplan completion bash)
  $ source <(partplan completion zsh)
  $ partplan completion fish | source
  PS> partplan completion powershell | Out-String | Invoke-Expression

To keep them, write the script to your shell's completion directory, for
example:

  $ partplan completion bash > /etc/bash_completion.d/partplan
  $ partplan completion zsh > "${fpath[1]}/_partplan"
  $ partplan completion fish > ~/.config/fish/completions/partplan.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// completeFormats completes --format values.
func completeFormats(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return outputFormats, cobra.ShellCompDirectiveNoFileComp
}

// completeFlashSizes suggests the standard flash chip sizes.
func completeFlashSizes(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	sizes := make([]string, 0, len(partition.FlashSizes))
	for _, s := range partition.FlashSizes {
		sizes = append(sizes, fmt.Sprintf("%dM", s/partition.MiB))
	}
	return sizes, cobra.ShellCompDirectiveNoFileComp
}

// registerFormatFlag adds the --format flag with completion.
func registerFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "format", "f", formatCSV, "output format: "+strings.Join(outputFormats, ", "))
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
}
