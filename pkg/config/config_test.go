package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/partplan/pkg/errors"
	"github.com/matzehuels/partplan/pkg/partition"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".config", AppName); dir != want {
		t.Errorf("Dir() = %q, want %q", dir, want)
	}
}

func TestDirXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	path, err := Path()
	if err != nil {
		t.Fatalf("Path() error: %v", err)
	}
	if want := filepath.Join("/tmp/xdg", AppName, "config.toml"); path != want {
		t.Errorf("Path() = %q, want %q", path, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	dev, err := cfg.DeviceProfile()
	if err != nil {
		t.Fatalf("DeviceProfile() error: %v", err)
	}
	if dev != partition.DefaultDevice(4*partition.MiB) {
		t.Errorf("DeviceProfile() = %+v, want default", dev)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[device]
flash_size = "8M"
table_location = "0x1000"

[[preset]]
name = "board"
description = "custom board"
csv = """
# Name, Type, SubType, Offset, Size, Flags
nvs, data, nvs, , 0x5000,
factory, app, factory, , 3M,
"""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	dev, err := cfg.DeviceProfile()
	if err != nil {
		t.Fatalf("DeviceProfile() error: %v", err)
	}
	if dev.FlashCapacity != 8*partition.MiB {
		t.Errorf("FlashCapacity = 0x%x, want 0x%x", dev.FlashCapacity, 8*partition.MiB)
	}
	if dev.TableLocation != 0x1000 {
		t.Errorf("TableLocation = 0x%x, want 0x1000", dev.TableLocation)
	}
	if dev.TableReservedSize != partition.DefaultTableReservedSize {
		t.Errorf("TableReservedSize = 0x%x, want default", dev.TableReservedSize)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry() error: %v", err)
	}
	p, err := reg.Get("board")
	if err != nil {
		t.Fatalf("Get(board) error: %v", err)
	}
	if len(p.Entries) != 2 || p.Description != "custom board" {
		t.Errorf("preset = %+v", p)
	}
	if _, err := reg.Get("two-ota"); err != nil {
		t.Errorf("built-in preset missing: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.Code
	}{
		{"syntax", "[device\n", errors.ErrCodeInvalidFormat},
		{"unknown key", "[device]\nflash = \"4M\"\n", errors.ErrCodeInvalidFormat},
		{"bad size", "[device]\nflash_size = \"four\"\n", errors.ErrCodeInvalidFormat},
		{"preset without csv", "[[preset]]\nname = \"x\"\n", errors.ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, tt.code) {
				t.Errorf("Load() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}

	tests := []struct {
		name    string
		presets []PresetConfig
		want    string
	}{
		{"duplicate names", []PresetConfig{{Name: "a", CSV: "x"}, {Name: "a", CSV: "y"}}, "preset names must be unique"},
		{"missing name", []PresetConfig{{Name: "a", CSV: "x"}, {CSV: "z"}}, "preset[1].name is required"},
		{"missing csv", []PresetConfig{{Name: "a"}}, "preset[0].csv is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Presets = tt.presets
			err := cfg.Validate()
			if !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Fatalf("Validate() error = %v, want INVALID_FORMAT", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error %q does not mention %q", err, tt.want)
			}
		})
	}

	cfg := Default()
	cfg.Device.TableLocation = "nowhere"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "device.table_location") {
		t.Errorf("Validate() error = %v, want device.table_location", err)
	}
}

func TestDeviceProfileErrors(t *testing.T) {
	tests := []struct {
		name   string
		device DeviceConfig
		code   errors.Code
	}{
		{"bad literal", DeviceConfig{FlashSize: "four"}, errors.ErrCodeInvalidFormat},
		{"zero flash", DeviceConfig{FlashSize: "0"}, errors.ErrCodeInvalidSize},
		{"misaligned location", DeviceConfig{TableLocation: "0x800"}, errors.ErrCodeMisalignedOffset},
		{"misaligned delta", DeviceConfig{OtaStateDelta: "0x5100"}, errors.ErrCodeMisalignedOffset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Config{Device: tt.device}.DeviceProfile()
			if !errors.Is(err, tt.code) {
				t.Errorf("DeviceProfile() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRegistryRejectsBadPreset(t *testing.T) {
	cfg := Config{Presets: []PresetConfig{{Name: "broken", CSV: "not a table"}}}
	if _, err := cfg.Registry(); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Registry() error = %v, want INVALID_FORMAT", err)
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Default()); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !strings.Contains(buf.String(), `flash_size = "4M"`) {
		t.Errorf("Encode() = %q", buf.String())
	}
}
