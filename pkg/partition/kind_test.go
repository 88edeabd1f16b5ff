package partition

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/partplan/pkg/errors"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"app", KindApp, false},
		{"DATA", KindData, false},
		{"bootloader", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ParseKind(%q) code = %s", tt.in, errors.GetCode(err))
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSubKindRoundTrip(t *testing.T) {
	all := append(AppSubKinds(), DataSubKinds()...)
	for _, s := range all {
		got, err := ParseSubKind(s.String())
		if err != nil {
			t.Errorf("ParseSubKind(%q): %v", s, err)
			continue
		}
		if got != s {
			t.Errorf("ParseSubKind(%q) = %v", s, got)
		}
	}
}

func TestParseSubKind(t *testing.T) {
	tests := []struct {
		in      string
		want    SubKind
		wantErr bool
	}{
		{"ota", SubKindOtaState, false},
		{"ota_0", OtaSlot(0), false},
		{"OTA_15", OtaSlot(15), false},
		{"LittleFS", SubKindLittleFS, false},
		{"ota_16", 0, true},
		{"ota_01", 0, true},
		{"ota_-1", 0, true},
		{"ota_", 0, true},
		{"bogus", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseSubKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSubKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSubKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOtaSlot(t *testing.T) {
	if got := OtaSlot(3).OtaSlotIndex(); got != 3 {
		t.Errorf("OtaSlotIndex() = %d, want 3", got)
	}
	if SubKindOtaState.IsOtaSlot() {
		t.Error("OTA state record reported as a slot")
	}
	if got := SubKindNvs.OtaSlotIndex(); got != -1 {
		t.Errorf("OtaSlotIndex() of nvs = %d, want -1", got)
	}
	if got := OtaSlot(15).String(); got != "ota_15" {
		t.Errorf("String() = %q", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("OtaSlot(16) did not panic")
		}
	}()
	OtaSlot(MaxOtaSlots)
}

func TestNativeKind(t *testing.T) {
	for _, s := range AppSubKinds() {
		if s.NativeKind() != KindApp {
			t.Errorf("%s.NativeKind() = %s", s, s.NativeKind())
		}
	}
	for _, s := range DataSubKinds() {
		if s.NativeKind() != KindData {
			t.Errorf("%s.NativeKind() = %s", s, s.NativeKind())
		}
	}
}

func TestPartitionJSON(t *testing.T) {
	p := Partition{Name: "otadata", Kind: KindData, SubKind: SubKindOtaState, Offset: 0xE000, Size: 0x2000}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"name":"otadata","type":"data","subtype":"ota","offset":57344,"size":8192}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
