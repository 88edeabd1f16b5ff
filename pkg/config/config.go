// Package config loads partplan's TOML configuration file.
//
// The file lives at $XDG_CONFIG_HOME/partplan/config.toml, falling back to
// ~/.config/partplan/config.toml. It is optional: a missing file yields
// [Default].
//
//	[device]
//	flash_size = "4M"
//	table_location = "0x0"
//	table_reserved = "0x9000"
//	ota_state_delta = "0x5000"
//
//	[[preset]]
//	name = "my-board"
//	description = "nvs and one big app"
//	csv = """
//	# Name, Type, SubType, Offset, Size, Flags
//	nvs, data, nvs, , 0x5000,
//	factory, app, factory, , 3M,
//	"""
//
// Numeric values are strings using the CSV literal syntax (decimal, K/M
// suffix, or 0x hex). Presets defined here are merged over the built-ins by
// name.
package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/partplan/pkg/errors"
	pkgio "github.com/matzehuels/partplan/pkg/io"
	"github.com/matzehuels/partplan/pkg/partition"
	"github.com/matzehuels/partplan/pkg/preset"
)

// AppName names the config directory.
const AppName = "partplan"

// Config is the decoded configuration file.
type Config struct {
	Device  DeviceConfig   `toml:"device"`
	Presets []PresetConfig `toml:"preset" validate:"unique=Name,dive"`
}

// DeviceConfig holds the default device profile.
type DeviceConfig struct {
	FlashSize     string `toml:"flash_size" validate:"omitempty,size"`
	TableLocation string `toml:"table_location" validate:"omitempty,size"`
	TableReserved string `toml:"table_reserved" validate:"omitempty,size"`
	OtaStateDelta string `toml:"ota_state_delta" validate:"omitempty,size"`
}

// PresetConfig is a user-defined preset.
type PresetConfig struct {
	Name        string `toml:"name" validate:"required"`
	Description string `toml:"description"`
	CSV         string `toml:"csv" validate:"required"`
}

// Default returns the built-in configuration: a 4 MiB device with the
// partition table at address 0.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			FlashSize:     "4M",
			TableLocation: "0x0",
			TableReserved: "0x9000",
			OtaStateDelta: "0x5000",
		},
	}
}

// Dir returns the configuration directory, honouring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// Path returns the default configuration file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the configuration at path. Values missing from the file keep
// their defaults; a missing file is not an error. Unknown keys are rejected
// so typos do not pass silently.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.New(errors.ErrCodeInvalidFormat,
			"%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "%s", path)
	}
	return cfg, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		})
		// size accepts the CSV numeric literal syntax.
		_ = validate.RegisterValidation("size", func(fl validator.FieldLevel) bool {
			_, err := pkgio.ParseSize(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate checks the shape of the configuration: numeric device values must
// parse and every preset needs a unique name and a CSV body. Whether a
// preset's CSV is well formed is checked by [Config.Registry].
func (c Config) Validate() error {
	err := structValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = describeFieldError(fe)
	}
	return errors.New(errors.ErrCodeInvalidFormat, "%s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "size":
		return fmt.Sprintf("%s: invalid size %q", field, fe.Value())
	case "unique":
		return field + " names must be unique"
	default:
		return fmt.Sprintf("%s fails %s", field, fe.Tag())
	}
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// DeviceProfile parses the [device] section into engine parameters.
func (c Config) DeviceProfile() (partition.Device, error) {
	dev := partition.DefaultDevice(4 * partition.MiB)
	fields := []struct {
		key   string
		value string
		dst   *int64
	}{
		{"flash_size", c.Device.FlashSize, &dev.FlashCapacity},
		{"table_location", c.Device.TableLocation, &dev.TableLocation},
		{"table_reserved", c.Device.TableReserved, &dev.TableReservedSize},
		{"ota_state_delta", c.Device.OtaStateDelta, &dev.OtaStateDelta},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		n, err := pkgio.ParseSize(f.value)
		if err != nil {
			return partition.Device{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "device.%s", f.key)
		}
		*f.dst = n
	}

	if dev.FlashCapacity <= 0 {
		return partition.Device{}, errors.New(errors.ErrCodeInvalidSize, "device.flash_size must be positive")
	}
	if dev.TableReservedSize <= 0 {
		return partition.Device{}, errors.New(errors.ErrCodeInvalidSize, "device.table_reserved must be positive")
	}
	for _, f := range fields[1:] {
		if !partition.IsAligned(*f.dst, partition.DataAlignment) {
			return partition.Device{}, errors.New(errors.ErrCodeMisalignedOffset,
				"device.%s 0x%x is not a multiple of 0x%x", f.key, *f.dst, partition.DataAlignment)
		}
	}
	return dev, nil
}

// Registry returns the built-in presets merged with the presets defined in
// the configuration.
func (c Config) Registry() (*preset.Registry, error) {
	r, err := preset.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, pc := range c.Presets {
		p, err := preset.Parse(pc.Name, pc.Description, pc.CSV)
		if err != nil {
			return nil, err
		}
		r.Add(p)
	}
	return r, nil
}
