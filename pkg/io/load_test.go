package io

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/partplan/pkg/errors"
	"github.com/matzehuels/partplan/pkg/partition"
)

func mustRead(t *testing.T, csv string) []Entry {
	t.Helper()
	entries, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return entries
}

func TestLoad(t *testing.T) {
	tbl := partition.New(partition.DefaultDevice(16 * partition.MiB))
	require.NoError(t, Load(mustRead(t, twoOtaCSV), tbl, LoadOptions{}))

	require.Equal(t, 4*partition.MiB, tbl.Device().FlashCapacity)
	require.Zero(t, tbl.Device().TableLocation)
	require.True(t, tbl.HasCompleteOtaSet())

	want := map[string]int64{"nvs": 0x9000, "otadata": 0xE000, "ota_0": 0x10000, "ota_1": 0x190000}
	for _, p := range tbl.Partitions() {
		require.Equal(t, want[p.Name], p.Offset, "offset of %s", p.Name)
	}
}

func TestLoadReplacesContents(t *testing.T) {
	tbl := partition.New(partition.DefaultDevice(4 * partition.MiB))
	require.NoError(t, tbl.AddPartition("old", partition.KindData, partition.SubKindFat, 0x10000, ""))

	require.NoError(t, Load(mustRead(t, twoOtaCSV), tbl, LoadOptions{}))
	_, ok := tbl.Partition("old")
	require.False(t, ok)
	require.Equal(t, 4, tbl.Len())
}

func TestLoadPicksFlashSize(t *testing.T) {
	tests := []struct {
		name string
		size string
		want int64
	}{
		{"fits 4M", "3M", 4 * partition.MiB},
		{"needs 8M", "6M", 8 * partition.MiB},
		{"needs 16M", "12M", 16 * partition.MiB},
		{"fits none", "20M", 4 * partition.MiB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			csv := "# Name, Type, SubType, Offset, Size, Flags\nfactory, app, factory, , " + tt.size + ",\n"
			tbl := partition.New(partition.DefaultDevice(4 * partition.MiB))
			require.NoError(t, Load(mustRead(t, csv), tbl, LoadOptions{}))
			require.Equal(t, tt.want, tbl.Device().FlashCapacity)
			require.Equal(t, 1, tbl.Len(), "load never evicts")
		})
	}
}

func TestLoadKeepCapacity(t *testing.T) {
	tbl := partition.New(partition.DefaultDevice(16 * partition.MiB))
	require.NoError(t, Load(mustRead(t, twoOtaCSV), tbl, LoadOptions{KeepCapacity: true}))
	require.Equal(t, 16*partition.MiB, tbl.Device().FlashCapacity)
}

func TestLoadRelocatesTable(t *testing.T) {
	csv := `# Name, Type, SubType, Offset, Size, Flags
nvs, data, nvs, 0xA000, 0x4000,
factory, app, factory, 0x20000, 1M,
`
	tbl := partition.New(partition.DefaultDevice(4 * partition.MiB))
	require.NoError(t, Load(mustRead(t, csv), tbl, LoadOptions{}))

	require.Equal(t, int64(0x1000), tbl.Device().TableLocation)
	p, _ := tbl.Partition("nvs")
	require.Equal(t, int64(0xA000), p.Offset)
	p, _ = tbl.Partition("factory")
	require.Equal(t, int64(0x20000), p.Offset)
}

func TestLoadRejectsBadEntryAtomically(t *testing.T) {
	tbl := partition.New(partition.DefaultDevice(4 * partition.MiB))
	require.NoError(t, tbl.AddPartition("nvs", partition.KindData, partition.SubKindNvs, 0x5000, ""))
	before, dev := tbl.Partitions(), tbl.Device()

	csv := `# Name, Type, SubType, Offset, Size, Flags
factory, app, factory, 0x18000, 1M,
`
	err := Load(mustRead(t, csv), tbl, LoadOptions{})
	require.True(t, errors.Is(err, errors.ErrCodeMisalignedOffset), "got %v", err)
	require.Contains(t, err.Error(), "line 2")
	require.Equal(t, before, tbl.Partitions())
	require.Equal(t, dev, tbl.Device())
}

func TestSuggestTableLocation(t *testing.T) {
	dev := partition.DefaultDevice(4 * partition.MiB)
	fixed := func(sub partition.SubKind, off int64) Entry {
		return Entry{SubKind: sub, Offset: off, HasOffset: true}
	}

	tests := []struct {
		name    string
		entries []Entry
		want    int64
	}{
		{"no offsets", []Entry{{SubKind: partition.SubKindNvs}}, 0},
		{"default base", []Entry{fixed(partition.SubKindNvs, 0x9000)}, 0},
		{"shifted", []Entry{fixed(partition.SubKindNvs, 0xA000), fixed(partition.SubKindFactory, 0x20000)}, 0x1000},
		{"unaligned lowest", []Entry{fixed(partition.SubKindNvs, 0xA800)}, 0x1000},
		{"clamped", []Entry{fixed(partition.SubKindNvs, 0x8000)}, 0},
		{"ota state wins", []Entry{fixed(partition.SubKindNvs, 0x9000), fixed(partition.SubKindOtaState, 0x10000)}, 0x2000},
		{"ota state clamped", []Entry{fixed(partition.SubKindOtaState, 0xD000)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SuggestTableLocation(tt.entries, dev))
		})
	}
}
