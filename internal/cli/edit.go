package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/partplan/pkg/errors"
	pkgio "github.com/matzehuels/partplan/pkg/io"
	"github.com/matzehuels/partplan/pkg/partition"
)

// editOptions are the flags shared by every command that reads a table and
// writes it back.
type editOptions struct {
	output  string
	format  string
	inPlace bool
	reflow  bool
}

func (o *editOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default: stdout)")
	registerFormatFlag(cmd, &o.format)
	cmd.Flags().BoolVarP(&o.inPlace, "write", "w", false, "write the result back to the input file")
	cmd.Flags().BoolVar(&o.reflow, "reflow", false, "ignore offsets in the input and lay the table out from scratch")
}

// readTable loads the CSV at path ("-" for stdin) into a table for the
// configured device.
func (c *CLI) readTable(env *environment, path string, reflow bool) (*partition.Table, error) {
	var (
		entries []pkgio.Entry
		err     error
	)
	if path == "-" {
		entries, err = pkgio.ReadCSV(c.stdin)
	} else {
		entries, err = pkgio.ImportCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if reflow {
		for i := range entries {
			entries[i].HasOffset = false
		}
	}

	prog := newProgress(c.Logger)
	tbl := c.newTable(env)
	opts := pkgio.LoadOptions{KeepCapacity: env.keepCapacity, KeepLocation: env.keepLocation}
	if err := pkgio.Load(entries, tbl, opts); err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Laid out %d partitions", tbl.Len()))
	return tbl, nil
}

// runEdit loads the input table, applies edit and writes the result.
func (c *CLI) runEdit(cmd *cobra.Command, input string, opts editOptions, edit func(*partition.Table) error) error {
	if opts.inPlace && input == "-" {
		return errors.New(errors.ErrCodeInvalidInput, "--write needs an input file, not stdin")
	}
	if opts.inPlace && opts.output != "" {
		return errors.New(errors.ErrCodeInvalidInput, "--write and --output are mutually exclusive")
	}

	env, err := c.loadEnvironment()
	if err != nil {
		return err
	}
	tbl, err := c.readTable(env, input, opts.reflow)
	if err != nil {
		return err
	}
	if edit != nil {
		if err := edit(tbl); err != nil {
			return err
		}
	}

	dest := opts.output
	if opts.inPlace {
		dest = input
	}
	if err := writeLayoutTo(cmd.OutOrStdout(), dest, tbl, opts.format); err != nil {
		return err
	}
	printSummary(tbl)
	return nil
}

// =============================================================================
// Commands
// =============================================================================

// layoutCommand re-runs the layout on a table without changing it.
func (c *CLI) layoutCommand() *cobra.Command {
	var opts editOptions

	cmd := &cobra.Command{
		Use:   "layout <table.csv|->",
		Short: "Lay out a partition table",
		Long: `Lay out a partition table.

Reads a partition CSV, places every partition (OTA data behind the partition
table, apps on 64 KiB boundaries) and writes the table with explicit offsets.
Partitions without an offset are placed automatically; partitions with one
keep it as long as it does not overlap an earlier partition.

Unless --flash-size is given, the smallest standard flash size (4, 8 or
16 MiB) that holds the table is used.`,
		Example: `  partplan layout partitions.csv
  partplan layout --reflow -w partitions.csv
  cat partitions.csv | partplan layout - -f yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd, args[0], opts, nil)
		},
	}
	opts.register(cmd)
	return cmd
}

// showCommand prints a table for reading.
func (c *CLI) showCommand() *cobra.Command {
	var reflow bool

	cmd := &cobra.Command{
		Use:   "show <table.csv|->",
		Short: "Show a partition table with sizes and free space",
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
			return writeLayout(cmd.OutOrStdout(), tbl, formatTable)
		},
	}
	cmd.Flags().BoolVar(&reflow, "reflow", false, "ignore offsets in the input and lay the table out from scratch")
	return cmd
}

// addCommand appends a partition.
func (c *CLI) addCommand() *cobra.Command {
	var (
		opts   editOptions
		offset string
		flags  string
	)

	cmd := &cobra.Command{
		Use:   "add <table.csv|-> <name> <type> <subtype> <size>",
		Short: "Add a partition",
		Long: `Add a partition to the end of the table and lay it out again.

The size is rounded up to the partition's alignment: 64 KiB for apps, 4 KiB
for data. The new partition is placed automatically unless --offset is given.`,
		Example: `  partplan add partitions.csv spiffs data spiffs 1M -w
  partplan add partitions.csv ota_1 app ota_1 1536K --offset 0x190000`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			kind, sub, err := parseKinds(args[2], args[3])
			if err != nil {
				return err
			}
			size, err := parseSizeArg("size", args[4])
			if err != nil {
				return err
			}
			if err := errors.ValidateFlags(flags); err != nil {
				return err
			}
			return c.runEdit(cmd, args[0], opts, func(tbl *partition.Table) error {
				before := tbl.Partitions()
				if offset == "" {
					if err := tbl.AddPartition(name, kind, sub, size, flags); err != nil {
						return err
					}
				} else {
					off, err := parseSizeArg("offset", offset)
					if err != nil {
						return err
					}
					if err := tbl.AddFixedPartition(name, kind, sub, off, size, flags); err != nil {
						return err
					}
				}
				p := addedPartition(before, tbl.Partitions())
				printSuccess("Added %s at %s (%s)", name, hex(p.Offset), humanize.IBytes(uint64(p.Size)))
				return nil
			})
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&offset, "offset", "", "place the partition at this offset")
	cmd.Flags().StringVar(&flags, "flags", "", "partition flags: encrypted, readonly (colon separated)")
	return cmd
}

// addedPartition returns the partition in after that has no counterpart in
// before. Offsets are not compared since a relayout may move every
// partition; among identical duplicates the last one is the new one.
func addedPartition(before, after []partition.Partition) partition.Partition {
	type identity struct {
		name, flags string
		kind        partition.Kind
		sub         partition.SubKind
		size        int64
		fixed       bool
	}
	key := func(p partition.Partition) identity {
		return identity{p.Name, p.Flags, p.Kind, p.SubKind, p.Size, p.FixedOffset}
	}

	seen := make(map[identity]int, len(before))
	for _, p := range before {
		seen[key(p)]++
	}
	var added partition.Partition
	for _, p := range after {
		if k := key(p); seen[k] > 0 {
			seen[k]--
			continue
		}
		added = p
	}
	return added
}

// removeCommand deletes a partition.
func (c *CLI) removeCommand() *cobra.Command {
	var opts editOptions

	cmd := &cobra.Command{
		Use:     "remove <table.csv|-> <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a partition",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return c.runEdit(cmd, args[0], opts, func(tbl *partition.Table) error {
				if err := tbl.RemovePartition(name); err != nil {
					return err
				}
				printSuccess("Removed %s", name)
				return nil
			})
		},
	}
	opts.register(cmd)
	return cmd
}

// resizeCommand changes the size of one partition.
func (c *CLI) resizeCommand() *cobra.Command {
	var opts editOptions

	cmd := &cobra.Command{
		Use:   "resize <table.csv|-> <name> <size|max>",
		Short: "Resize a partition",
		Long: `Resize a partition to the largest size up to the requested one that fits.

The request is rounded down to the partition's alignment, then reduced one
alignment step at a time until the whole table fits the flash. Resizing
ota_0 or ota_1 resizes both slots. If no size fits, the table is left
unchanged and the command fails.

"max" grows the partition into the free space directly behind it without
moving any other partition.`,
		Example: `  partplan resize partitions.csv factory 2M -w
  partplan resize partitions.csv spiffs max`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return c.runEdit(cmd, args[0], opts, func(tbl *partition.Table) error {
				var (
					requested int64
					err       error
				)
				if strings.EqualFold(args[2], "max") {
					requested, err = tbl.MaxSizeFor(name)
				} else {
					requested, err = parseSizeArg("size", args[2])
				}
				if err != nil {
					return err
				}

				committed, err := tbl.Resize(name, requested)
				if err != nil {
					return err
				}
				if committed < requested {
					printWarning("%s resized to %s, %s was requested", name, hex(committed), hex(requested))
				} else {
					printSuccess("Resized %s to %s (%s)", name, hex(committed), humanize.IBytes(uint64(committed)))
				}
				return nil
			})
		},
	}
	opts.register(cmd)
	return cmd
}

// flashSizeCommand changes the flash capacity.
func (c *CLI) flashSizeCommand() *cobra.Command {
	var opts editOptions

	cmd := &cobra.Command{
		Use:   "flash-size <table.csv|-> <size>",
		Short: "Change the flash size",
		Long: `Change the flash size the table is laid out for.

When the table no longer fits, partitions are removed from the end of the
table until it does. Removed partitions are reported.`,
		Example: `  partplan flash-size partitions.csv 8M -w`,
		Args:    cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 1 {
				return completeFlashSizes(cmd, args, toComplete)
			}
			return nil, cobra.ShellCompDirectiveDefault
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := parseSizeArg("size", args[1])
			if err != nil {
				return err
			}
			if size <= 0 {
				return errors.New(errors.ErrCodeInvalidSize, "flash size must be positive")
			}
			return c.runEdit(cmd, args[0], opts, func(tbl *partition.Table) error {
				evicted, err := tbl.SetFlashCapacity(size)
				reportEvicted(evicted)
				return err
			})
		},
	}
	opts.register(cmd)
	return cmd
}

// relocateCommand moves the partition table.
func (c *CLI) relocateCommand() *cobra.Command {
	var opts editOptions

	cmd := &cobra.Command{
		Use:   "relocate <table.csv|-> <offset>",
		Short: "Move the partition table",
		Long: `Move the partition table to a new location.

The offset must be a multiple of 4 KiB. All partitions, including the pinned
OTA data, move with the table. Partitions that no longer fit are removed from
the end of the table.`,
		Example: `  partplan relocate partitions.csv 0x1000 -w`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			off, err := parseSizeArg("offset", args[1])
			if err != nil {
				return err
			}
			return c.runEdit(cmd, args[0], opts, func(tbl *partition.Table) error {
				evicted, err := tbl.SetPartitionTableLocation(off)
				reportEvicted(evicted)
				return err
			})
		},
	}
	opts.register(cmd)
	return cmd
}

// =============================================================================
// Helpers
// =============================================================================

func parseKinds(kindArg, subArg string) (partition.Kind, partition.SubKind, error) {
	kind, err := partition.ParseKind(kindArg)
	if err != nil {
		return 0, 0, err
	}
	sub, err := partition.ParseSubKind(subArg)
	if err != nil {
		return 0, 0, err
	}
	if sub.NativeKind() != kind {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "subtype %s is not valid for type %s", sub, kind)
	}
	return kind, sub, nil
}

func parseSizeArg(what, s string) (int64, error) {
	n, err := pkgio.ParseSize(s)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s", what)
	}
	return n, nil
}

func reportEvicted(evicted []partition.Partition) {
	for _, p := range evicted {
		printWarning("Removed %s (%s) to make the table fit", p.Name, humanize.IBytes(uint64(p.Size)))
	}
}
