package partition

import (
	"slices"

	"github.com/matzehuels/partplan/pkg/errors"
	"github.com/matzehuels/partplan/pkg/observability"
)

// Table is an ordered partition table laid out for one device.
//
// Table order is placement priority. Every mutating method finishes by
// running the reordering and offset passes, so once it returns the
// partitions are in ascending offset order and satisfy the alignment, OTA
// pinning, app boundary and no-overlap invariants.
//
// The zero value is not usable; use New. A Table is owned by a single edit
// session and is not safe for concurrent use. Use Clone to checkpoint it.
type Table struct {
	dev   Device
	parts []Partition
	hooks observability.TableHooks
}

// Option configures a Table.
type Option func(*Table)

// WithHooks routes table events to h.
func WithHooks(h observability.TableHooks) Option {
	return func(t *Table) {
		if h != nil {
			t.hooks = h
		}
	}
}

// New creates an empty table for dev.
func New(dev Device, opts ...Option) *Table {
	t := &Table{
		dev:   dev,
		hooks: observability.NoopTableHooks{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Device returns the device parameters the table is laid out for.
func (t *Table) Device() Device { return t.dev }

// Partitions returns a copy of the partitions in table order.
func (t *Table) Partitions() []Partition { return slices.Clone(t.parts) }

// Len returns the number of partitions.
func (t *Table) Len() int { return len(t.parts) }

// Partition returns the first partition named name.
func (t *Table) Partition(name string) (Partition, bool) {
	i := t.index(name)
	if i < 0 {
		return Partition{}, false
	}
	return t.parts[i], true
}

// Clone returns an independent copy of the table sharing the same hooks.
func (t *Table) Clone() *Table {
	return &Table{
		dev:   t.dev,
		parts: slices.Clone(t.parts),
		hooks: t.hooks,
	}
}

// Clear removes every partition.
func (t *Table) Clear() {
	t.parts = nil
}

// AddPartition appends a partition and lays the table out again. The size is
// rounded up to the partition's alignment class. Names are not required to
// be unique.
//
// AddPartition does not check capacity: a table that no longer fits is
// reported by Fits and Available, not by an error here.
func (t *Table) AddPartition(name string, kind Kind, sub SubKind, size int64, flags string) error {
	p, err := t.newPartition(name, kind, sub, size, flags)
	if err != nil {
		return err
	}
	t.parts = append(t.parts, p)
	t.relayout()
	return nil
}

// AddFixedPartition appends a partition at a caller-chosen offset. The
// offset must be aligned to the partition's alignment class, must not
// precede the partition table base, and for applications must not precede
// the app boundary. The layout keeps the offset as long as it does not
// overlap the partitions in front of it.
func (t *Table) AddFixedPartition(name string, kind Kind, sub SubKind, offset, size int64, flags string) error {
	p, err := t.newPartition(name, kind, sub, size, flags)
	if err != nil {
		return err
	}
	if !IsAligned(offset, p.Alignment()) {
		return errors.New(errors.ErrCodeMisalignedOffset,
			"offset 0x%x of %q is not aligned to 0x%x", offset, name, p.Alignment())
	}
	if offset < t.dev.BaseOffset() {
		return errors.New(errors.ErrCodeOutOfRange,
			"offset 0x%x of %q precedes the partition table base 0x%x", offset, name, t.dev.BaseOffset())
	}
	if p.IsApp() && offset < AppBoundary {
		return errors.New(errors.ErrCodeOutOfRange,
			"app partition %q must start at or above 0x%x", name, AppBoundary)
	}

	p.Offset = offset
	p.FixedOffset = true
	p.pinned = offset
	t.parts = append(t.parts, p)
	t.relayout()
	return nil
}

func (t *Table) newPartition(name string, kind Kind, sub SubKind, size int64, flags string) (Partition, error) {
	if err := errors.ValidatePartitionName(name); err != nil {
		return Partition{}, err
	}
	if size <= 0 {
		return Partition{}, errors.New(errors.ErrCodeInvalidSize, "size of %q must be positive, got %d", name, size)
	}
	if sub.NativeKind() != kind {
		return Partition{}, errors.New(errors.ErrCodeInvalidInput,
			"subtype %s of %q is not valid for type %s", sub, name, kind)
	}
	if sub == SubKindOtaState && t.HasSubKind(SubKindOtaState) {
		return Partition{}, errors.New(errors.ErrCodeInvalidInput, "table already has an OTA state record")
	}
	return Partition{
		Name:    name,
		Kind:    kind,
		SubKind: sub,
		Size:    AlignUp(size, AlignmentFor(kind)),
		Flags:   flags,
	}, nil
}

// RemovePartition deletes the first partition named name and lays the table
// out again.
func (t *Table) RemovePartition(name string) error {
	i := t.index(name)
	if i < 0 {
		return errors.New(errors.ErrCodeNotFound, "partition %q not found", name)
	}
	t.parts = slices.Delete(t.parts, i, i+1)
	t.relayout()
	return nil
}

// SetFlashCapacity changes the device capacity. While the table does not fit,
// the last partition in table order is evicted. The evicted partitions are
// returned in eviction order.
//
// Eviction is irreversible: if even the empty table does not fit (the
// capacity is smaller than the partition table base) the method returns an
// UNSATISFIABLE error after every partition has already been evicted and the
// new capacity applied. Callers that need the previous table must Clone it
// before calling.
func (t *Table) SetFlashCapacity(capacity int64) ([]Partition, error) {
	t.dev.FlashCapacity = capacity
	return t.evictUntilFits()
}

// SetPartitionTableLocation moves the reserved partition table region to
// offset, which must be a multiple of DataAlignment. Partitions that no
// longer fit are evicted from the tail exactly like SetFlashCapacity,
// including its irreversible failure mode.
func (t *Table) SetPartitionTableLocation(offset int64) ([]Partition, error) {
	if offset < 0 || !IsAligned(offset, DataAlignment) {
		return nil, errors.New(errors.ErrCodeMisalignedOffset,
			"partition table location 0x%x is not a multiple of 0x%x", offset, DataAlignment)
	}
	t.dev.TableLocation = offset
	return t.evictUntilFits()
}

func (t *Table) evictUntilFits() ([]Partition, error) {
	t.relayout()
	var evicted []Partition
	for !t.Fits() {
		if len(t.parts) == 0 {
			return evicted, errors.New(errors.ErrCodeUnsatisfiable,
				"flash capacity 0x%x cannot hold the partition table base 0x%x",
				t.dev.FlashCapacity, t.dev.BaseOffset())
		}
		last := t.parts[len(t.parts)-1]
		t.parts = t.parts[:len(t.parts)-1]
		evicted = append(evicted, last)
		t.hooks.OnEvict(last.Name, last.Size, t.dev.FlashCapacity)
		t.relayout()
	}
	return evicted, nil
}

// HasSubKind reports whether any partition has subkind sub.
func (t *Table) HasSubKind(sub SubKind) bool {
	return slices.ContainsFunc(t.parts, func(p Partition) bool { return p.SubKind == sub })
}

// HasCompleteOtaSet reports whether the table has an OTA state record and
// both ota_0 and ota_1 slots.
func (t *Table) HasCompleteOtaSet() bool {
	return t.HasSubKind(SubKindOtaState) && t.HasSubKind(OtaSlot(0)) && t.HasSubKind(OtaSlot(1))
}

// relayout runs the reordering pass followed by the offset pass.
func (t *Table) relayout() {
	ordered := reorder(t.parts, t.dev)
	moved := movedCount(t.parts, ordered)
	t.parts = slices.Clone(ordered)
	assignOffsets(t.parts, t.dev)
	t.hooks.OnRelayout(len(t.parts), moved)
}

func (t *Table) index(name string) int {
	return slices.IndexFunc(t.parts, func(p Partition) bool { return p.Name == name })
}

func (t *Table) indexOf(sub SubKind) int {
	return slices.IndexFunc(t.parts, func(p Partition) bool { return p.SubKind == sub })
}
