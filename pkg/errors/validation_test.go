package errors

import (
	"testing"
)

func TestValidatePartitionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "nvs", false},
		{"valid with underscore", "phy_init", false},
		{"valid with digits", "app0", false},
		{"valid max length", "abcdefghijklmnop", false},

		{"empty", "", true},
		{"too long", "abcdefghijklmnopq", true},
		{"comma", "nvs,x", true},
		{"space", "my app", true},
		{"tab", "my\tapp", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePartitionName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePartitionName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidName) {
				t.Errorf("ValidatePartitionName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidName)
			}
		})
	}
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"encrypted", "encrypted", false},
		{"readonly", "readonly", false},
		{"both", "encrypted:readonly", false},

		{"unknown", "fast", true},
		{"trailing colon", "encrypted:", true},
		{"duplicate", "readonly:readonly", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFlags(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFlags(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
