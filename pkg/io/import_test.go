package io

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/partplan/pkg/errors"
	"github.com/matzehuels/partplan/pkg/partition"
)

const twoOtaCSV = `# ESP-IDF Partition Table
# Name,   Type, SubType, Offset,   Size,    Flags
nvs,      data, nvs,     0x9000,   0x5000,
otadata,  data, ota,     0xe000,   0x2000,
ota_0,    app,  ota_0,   0x10000,  1536K,
ota_1,    app,  ota_1,   0x190000, 1536K,   encrypted
`

func TestReadCSV(t *testing.T) {
	entries, err := ReadCSV(strings.NewReader(twoOtaCSV))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	require.Equal(t, Entry{
		Name: "nvs", Kind: partition.KindData, SubKind: partition.SubKindNvs,
		Offset: 0x9000, HasOffset: true, Size: 0x5000, Line: 3,
	}, entries[0])
	require.Equal(t, partition.SubKindOtaState, entries[1].SubKind)
	require.Equal(t, partition.OtaSlot(0), entries[2].SubKind)
	require.Equal(t, int64(0x180000), entries[2].Size)
	require.Equal(t, "encrypted", entries[3].Flags)
}

func TestReadCSVOptionalFields(t *testing.T) {
	in := "#Name,Type,SubType,Offset,Size\r\n" +
		"factory,app,factory,,1M\r\n" +
		"\r\n" +
		"# trailing comment\r\n" +
		"storage,data,spiffs,,4096\r\n"

	entries, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.False(t, entries[0].HasOffset)
	require.Equal(t, partition.MiB, entries[0].Size)
	require.Equal(t, int64(4096), entries[1].Size)
	require.Empty(t, entries[1].Flags)
}

func TestReadCSVErrors(t *testing.T) {
	const header = "# Name, Type, SubType, Offset, Size, Flags\n"

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing header", "nvs, data, nvs, , 0x5000,\n"},
		{"header only", header},
		{"duplicate header", header + header + "nvs, data, nvs, , 0x5000,\n"},
		{"too few fields", header + "nvs, data, nvs, 0x5000\n"},
		{"too many fields", header + "nvs, data, nvs, , 0x5000, , extra\n"},
		{"missing size", header + "nvs, data, nvs, 0x9000, ,\n"},
		{"unknown type", header + "nvs, blob, nvs, , 0x5000,\n"},
		{"unknown subtype", header + "nvs, data, nvram, , 0x5000,\n"},
		{"subtype of other type", header + "nvs, app, nvs, , 0x5000,\n"},
		{"bad size", header + "nvs, data, nvs, , 5G,\n"},
		{"bad offset", header + "nvs, data, nvs, 0xZZ, 0x5000,\n"},
		{"bad flags", header + "nvs, data, nvs, , 0x5000, secret\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "got %v", err)
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"4096", 4096, true},
		{"24K", 24 * 1024, true},
		{"24k", 24 * 1024, true},
		{"2M", 2 * partition.MiB, true},
		{"0x9000", 0x9000, true},
		{"0X1F0000", 0x1F0000, true},
		{"", 0, false},
		{"0x", 0, false},
		{"0x-10", 0, false},
		{"1.5M", 0, false},
		{"K", 0, false},
		{"8796093022207M", 8796093022207 * partition.MiB, true},
		{"17592186044417M", 0, false},
		{"18014398509481985K", 0, false},
		{"9223372036854775808", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if !tt.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestImportCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partitions.csv")
	require.NoError(t, os.WriteFile(path, []byte(twoOtaCSV), 0o644))

	entries, err := ImportCSV(path)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	_, err = ImportCSV(filepath.Join(dir, "missing.csv"))
	require.True(t, errors.Is(err, errors.ErrCodeNotFound), "got %v", err)
}
