// Package cli implements the partplan command-line interface.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/partplan/pkg/buildinfo"
	"github.com/matzehuels/partplan/pkg/config"
	"github.com/matzehuels/partplan/pkg/observability"
	"github.com/matzehuels/partplan/pkg/partition"
	"github.com/matzehuels/partplan/pkg/preset"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Global flag values, bound in RootCommand.
	configPath  string
	flashSize   string
	tableOffset string

	stdin io.Reader
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		stdin:  os.Stdin,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Partplan lays out flash partition tables",
		Long: `Partplan edits flash partition tables for ESP32-class devices.

Tables are read from and written to the standard partition CSV format. Every
edit re-runs the layout: OTA data is pinned behind the partition table, apps
start on 64 KiB boundaries and partitions that no longer fit are reported.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/partplan/config.toml)")
	flags.StringVar(&c.flashSize, "flash-size", "", "flash size, e.g. 4M or 0x800000 (default: picked from the table)")
	flags.StringVar(&c.tableOffset, "table-offset", "", "partition table location (default: derived from the table)")
	_ = root.RegisterFlagCompletionFunc("flash-size", completeFlashSizes)

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.addCommand())
	root.AddCommand(c.removeCommand())
	root.AddCommand(c.resizeCommand())
	root.AddCommand(c.flashSizeCommand())
	root.AddCommand(c.relocateCommand())
	root.AddCommand(c.presetCommand())
	root.AddCommand(c.urlCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// environment is the resolved configuration for one command invocation.
type environment struct {
	cfg     config.Config
	path    string
	device  partition.Device
	presets *preset.Registry

	// Set when the device came from --flash-size or --table-offset rather
	// than from the table being loaded.
	keepCapacity bool
	keepLocation bool
}

// loadEnvironment reads the config file and applies the global flags.
func (c *CLI) loadEnvironment() (*environment, error) {
	path := c.configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "path", path)

	env := &environment{cfg: cfg, path: path}
	if c.flashSize != "" {
		cfg.Device.FlashSize = c.flashSize
		env.keepCapacity = true
	}
	if c.tableOffset != "" {
		cfg.Device.TableLocation = c.tableOffset
		env.keepLocation = true
	}
	if env.device, err = cfg.DeviceProfile(); err != nil {
		return nil, err
	}
	if env.presets, err = cfg.Registry(); err != nil {
		return nil, err
	}
	return env, nil
}

// newTable creates an empty table for the environment's device that logs
// layout events.
func (c *CLI) newTable(env *environment) *partition.Table {
	return partition.New(env.device, partition.WithHooks(observability.NewLogHooks(c.Logger)))
}
