package partition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/partplan/pkg/errors"
)

// Kind is the partition type: application image or data store. The kind
// decides the partition's alignment class.
type Kind uint8

const (
	// KindApp marks an application image. App partitions are aligned to
	// 64 KiB and never start below [AppBoundary].
	KindApp Kind = iota
	// KindData marks a data store (nvs, filesystems, OTA state, ...).
	KindData
)

var kindNames = [...]string{KindApp: "app", KindData: "data"}

// String returns the CSV spelling of the kind ("app" or "data").
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind parses the CSV spelling of a kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "app":
		return KindApp, nil
	case "data":
		return KindData, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown partition type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// SubKind is the closed set of partition subtypes. OTA application slots are
// a contiguous range of values; use [OtaSlot] to build one and
// [SubKind.OtaSlotIndex] to take one apart.
type SubKind uint8

const (
	SubKindFactory SubKind = iota
	SubKindTest
	// SubKindOtaState is the OTA state record ("ota"), a data partition that
	// tracks which application slot boots. It is not an application slot.
	SubKindOtaState
	SubKindPhy
	SubKindNvs
	SubKindNvsKeys
	SubKindCoredump
	SubKindEfuse
	SubKindFat
	SubKindSpiffs
	SubKindLittleFS

	// subKindOtaSlot0 is ota_0; ota_1..ota_15 follow it.
	subKindOtaSlot0
)

// MaxOtaSlots is the number of OTA application slots the bootloader supports.
const MaxOtaSlots = 16

var subKindNames = map[SubKind]string{
	SubKindFactory:  "factory",
	SubKindTest:     "test",
	SubKindOtaState: "ota",
	SubKindPhy:      "phy",
	SubKindNvs:      "nvs",
	SubKindNvsKeys:  "nvs_keys",
	SubKindCoredump: "coredump",
	SubKindEfuse:    "efuse",
	SubKindFat:      "fat",
	SubKindSpiffs:   "spiffs",
	SubKindLittleFS: "littlefs",
}

// OtaSlot returns the subkind of OTA application slot n (ota_n).
// It panics if n is outside [0, MaxOtaSlots).
func OtaSlot(n int) SubKind {
	if n < 0 || n >= MaxOtaSlots {
		panic(fmt.Sprintf("partition: OTA slot %d out of range", n))
	}
	return subKindOtaSlot0 + SubKind(n)
}

// IsOtaSlot reports whether s is one of ota_0..ota_15.
func (s SubKind) IsOtaSlot() bool {
	return s >= subKindOtaSlot0 && s < subKindOtaSlot0+MaxOtaSlots
}

// OtaSlotIndex returns n for ota_n, or -1 if s is not an OTA slot.
func (s SubKind) OtaSlotIndex() int {
	if !s.IsOtaSlot() {
		return -1
	}
	return int(s - subKindOtaSlot0)
}

// NativeKind returns the kind a subkind normally belongs to: factory, test
// and the OTA slots are applications, everything else is data.
func (s SubKind) NativeKind() Kind {
	if s == SubKindFactory || s == SubKindTest || s.IsOtaSlot() {
		return KindApp
	}
	return KindData
}

// String returns the CSV spelling of the subkind.
func (s SubKind) String() string {
	if s.IsOtaSlot() {
		return "ota_" + strconv.Itoa(s.OtaSlotIndex())
	}
	if name, ok := subKindNames[s]; ok {
		return name
	}
	return "SubKind(" + strconv.Itoa(int(s)) + ")"
}

// ParseSubKind parses the CSV spelling of a subkind. Matching is
// case-insensitive.
func ParseSubKind(s string) (SubKind, error) {
	lower := strings.ToLower(s)
	if rest, ok := strings.CutPrefix(lower, "ota_"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || n >= MaxOtaSlots || strconv.Itoa(n) != rest {
			return 0, errors.New(errors.ErrCodeInvalidInput, "unknown partition subtype %q", s)
		}
		return OtaSlot(n), nil
	}
	for sub, name := range subKindNames {
		if name == lower {
			return sub, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown partition subtype %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s SubKind) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SubKind) UnmarshalText(b []byte) error {
	v, err := ParseSubKind(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// AppSubKinds lists the subkinds valid for application partitions, in the
// order a picker would present them.
func AppSubKinds() []SubKind {
	out := []SubKind{SubKindFactory, SubKindTest}
	for i := range MaxOtaSlots {
		out = append(out, OtaSlot(i))
	}
	return out
}

// DataSubKinds lists the subkinds valid for data partitions.
func DataSubKinds() []SubKind {
	return []SubKind{
		SubKindOtaState, SubKindPhy, SubKindNvs, SubKindNvsKeys, SubKindCoredump,
		SubKindEfuse, SubKindFat, SubKindSpiffs, SubKindLittleFS,
	}
}
