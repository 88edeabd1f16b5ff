package io

import (
	"github.com/matzehuels/partplan/pkg/errors"
	"github.com/matzehuels/partplan/pkg/partition"
)

// LoadOptions tunes [Load].
type LoadOptions struct {
	// KeepCapacity keeps the table's current flash capacity instead of
	// picking the smallest standard size that holds the loaded partitions.
	KeepCapacity bool
	// KeepLocation keeps the current partition table location instead of
	// moving it to [SuggestTableLocation].
	KeepLocation bool
}

// Load replaces the contents of tbl with entries.
//
// Unless opts.KeepLocation is set, the partition table location is moved to
// [SuggestTableLocation] first, so explicit offsets in the file do not
// precede the table base. Entries are then added in file order; entries with
// an offset are added as fixed partitions. Unless opts.KeepCapacity is set, the flash capacity becomes the
// smallest of [partition.FlashSizes] that holds the table without evicting
// anything; if none does, the current capacity is kept and the caller sees a
// negative [partition.Table.Available].
//
// If any entry is rejected, tbl is left unchanged.
func Load(entries []Entry, tbl *partition.Table, opts LoadOptions) error {
	// Dry run on a clone so a bad entry leaves tbl untouched.
	if err := load(entries, tbl.Clone(), opts); err != nil {
		return err
	}
	return load(entries, tbl, opts)
}

func load(entries []Entry, tbl *partition.Table, opts LoadOptions) error {
	tbl.Clear()
	if !opts.KeepLocation {
		if _, err := tbl.SetPartitionTableLocation(SuggestTableLocation(entries, tbl.Device())); err != nil {
			return err
		}
	}

	for _, e := range entries {
		var err error
		if e.HasOffset {
			err = tbl.AddFixedPartition(e.Name, e.Kind, e.SubKind, e.Offset, e.Size, e.Flags)
		} else {
			err = tbl.AddPartition(e.Name, e.Kind, e.SubKind, e.Size, e.Flags)
		}
		if err != nil {
			return errors.Wrap(errors.GetCode(err), err, "line %d: partition %q", e.Line, e.Name)
		}
	}

	if opts.KeepCapacity {
		return nil
	}
	for _, size := range partition.FlashSizes {
		trial := tbl.Clone()
		if evicted, err := trial.SetFlashCapacity(size); err == nil && len(evicted) == 0 {
			_, err := tbl.SetFlashCapacity(size)
			return err
		}
	}
	return nil
}

// SuggestTableLocation returns a partition table location that keeps the
// explicit offsets in entries valid.
//
// An explicit offset on the OTA state record determines the location
// exactly, as the inverse of the record's pinning rule. Otherwise the
// location is placed so the reserved region ends at or below the lowest
// explicit offset. The result is aligned to [partition.DataAlignment] and
// never negative; without explicit offsets it is 0.
func SuggestTableLocation(entries []Entry, dev partition.Device) int64 {
	lowest := int64(-1)
	for _, e := range entries {
		if !e.HasOffset {
			continue
		}
		if e.SubKind == partition.SubKindOtaState {
			loc := e.Offset - dev.OtaStateDelta - dev.TableReservedSize
			return max(0, partition.AlignDown(loc, partition.DataAlignment))
		}
		if lowest < 0 || e.Offset < lowest {
			lowest = e.Offset
		}
	}
	if lowest < 0 {
		return 0
	}
	return max(0, partition.AlignDown(lowest-dev.TableReservedSize, partition.DataAlignment))
}
