// Package preset provides named partition table layouts.
//
// The built-in presets are embedded CSV files covering the stock layouts
// (single factory app, two OTA slots, 4 MiB OTA layouts with a filesystem).
// A [Registry] starts from the built-ins and lets user-defined presets, for
// example from the config file, add to or replace them by name.
package preset

import (
	"embed"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/partplan/pkg/errors"
	pkgio "github.com/matzehuels/partplan/pkg/io"
	"github.com/matzehuels/partplan/pkg/partition"
)

//go:embed presets/*.csv
var builtinFS embed.FS

// Preset is a named partition layout.
type Preset struct {
	Name        string
	Description string
	Entries     []pkgio.Entry
}

// Parse builds a preset from CSV text.
func Parse(name, description, csv string) (Preset, error) {
	if name == "" {
		return Preset{}, errors.New(errors.ErrCodeInvalidName, "preset name is empty")
	}
	entries, err := pkgio.ReadCSV(strings.NewReader(csv))
	if err != nil {
		return Preset{}, errors.Wrap(errors.GetCode(err), err, "preset %q", name)
	}
	return Preset{Name: name, Description: description, Entries: entries}, nil
}

// Apply replaces the contents of tbl with the preset's partitions. The
// table keeps its flash capacity and partition table location.
func (p Preset) Apply(tbl *partition.Table) error {
	return pkgio.Load(p.Entries, tbl, pkgio.LoadOptions{KeepCapacity: true, KeepLocation: true})
}

// Size returns the sum of the preset's partition sizes after alignment.
func (p Preset) Size() int64 {
	var total int64
	for _, e := range p.Entries {
		total += partition.AlignUp(e.Size, partition.AlignmentFor(e.Kind))
	}
	return total
}

var builtinDescriptions = []struct{ name, description string }{
	{"singleapp", "Single factory app, no OTA"},
	{"singleapp-large", "Single large factory app, no OTA"},
	{"two-ota", "Factory app and two OTA slots"},
	{"4mb-spiffs", "4 MiB: two 1.25 MiB OTA slots, 1.4 MiB SPIFFS, core dump"},
	{"4mb-fat", "4 MiB: two 1.25 MiB OTA slots, 1.4 MiB FAT, core dump"},
}

var (
	builtins     []Preset
	builtinsErr  error
	builtinsOnce sync.Once
)

// Builtins returns the embedded presets in display order. The files are
// parsed once on first access.
func Builtins() ([]Preset, error) {
	builtinsOnce.Do(func() {
		for _, b := range builtinDescriptions {
			data, err := builtinFS.ReadFile("presets/" + b.name + ".csv")
			if err != nil {
				builtinsErr = errors.Wrap(errors.ErrCodeInternal, err, "read preset %q", b.name)
				return
			}
			p, err := Parse(b.name, b.description, string(data))
			if err != nil {
				builtinsErr = err
				return
			}
			builtins = append(builtins, p)
		}
	})
	return slices.Clone(builtins), builtinsErr
}

// Registry is a set of presets addressable by name.
type Registry struct {
	presets []Preset
}

// NewRegistry returns a registry holding the built-in presets.
func NewRegistry() (*Registry, error) {
	b, err := Builtins()
	if err != nil {
		return nil, err
	}
	return &Registry{presets: b}, nil
}

// Add registers p, replacing any preset with the same name in place.
func (r *Registry) Add(p Preset) {
	if i := r.index(p.Name); i >= 0 {
		r.presets[i] = p
		return
	}
	r.presets = append(r.presets, p)
}

// List returns all presets: built-ins first, then added ones in insertion
// order.
func (r *Registry) List() []Preset {
	return slices.Clone(r.presets)
}

// Get returns the preset named name, or an UNKNOWN_PRESET error.
func (r *Registry) Get(name string) (Preset, error) {
	if i := r.index(name); i >= 0 {
		return r.presets[i], nil
	}
	return Preset{}, errors.New(errors.ErrCodeUnknownPreset, "unknown preset %q (available: %s)",
		name, strings.Join(r.Names(), ", "))
}

// Names returns the preset names in List order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.presets))
	for i, p := range r.presets {
		out[i] = p.Name
	}
	return out
}

func (r *Registry) index(name string) int {
	return slices.IndexFunc(r.presets, func(p Preset) bool { return p.Name == name })
}
