package partition

import "github.com/matzehuels/partplan/pkg/errors"

// TotalUsable returns the flash capacity available to partitions. It is
// measured from the partition table base, or from the app origin when the
// first partition is an application: an app-first layout gives up the gap
// between the table reserve and the app boundary.
func (t *Table) TotalUsable() int64 {
	origin := t.dev.BaseOffset()
	if len(t.parts) > 0 && t.parts[0].IsApp() {
		origin = t.dev.AppOrigin()
	}
	return t.dev.FlashCapacity - origin
}

// Consumed returns the sum of all partition sizes.
func (t *Table) Consumed() int64 {
	var total int64
	for _, p := range t.parts {
		total += p.Size
	}
	return total
}

// ConsumedExcluding returns the sum of all partition sizes except the first
// partition named name: the room everyone else already takes.
func (t *Table) ConsumedExcluding(name string) int64 {
	total := t.Consumed()
	if i := t.index(name); i >= 0 {
		total -= t.parts[i].Size
	}
	return total
}

// Available returns TotalUsable minus Consumed. A negative value means the
// layout does not fit the device.
func (t *Table) Available() int64 {
	return t.TotalUsable() - t.Consumed()
}

// End returns the first address past the last partition, or the partition
// table base when the table is empty.
func (t *Table) End() int64 {
	if len(t.parts) == 0 {
		return t.dev.BaseOffset()
	}
	return t.parts[len(t.parts)-1].End()
}

// Fits reports whether the current layout fits the device: the partition
// sizes fit in the usable capacity and no partition runs past the end of
// flash. The second check catches alignment padding, which Available does
// not count.
func (t *Table) Fits() bool {
	return t.Available() >= 0 && t.End() <= t.dev.FlashCapacity
}

// MaxSizeFor returns the largest size the named partition can grow to
// without moving or shrinking any other partition: the space between its
// aligned offset and the next partition, or the end of flash when it is last.
func (t *Table) MaxSizeFor(name string) (int64, error) {
	i := t.index(name)
	if i < 0 {
		return 0, errors.New(errors.ErrCodeNotFound, "partition %q not found", name)
	}
	p := t.parts[i]
	aligned := AlignUp(p.Offset, p.Alignment())

	limit := t.dev.FlashCapacity - aligned
	for _, other := range t.parts {
		if other.Offset > p.Offset {
			limit = other.Offset - aligned
			break
		}
	}
	return limit, nil
}
