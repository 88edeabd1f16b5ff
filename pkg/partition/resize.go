package partition

import (
	"slices"

	"github.com/matzehuels/partplan/pkg/errors"
)

// Resize sets the size of the first partition named name and returns the
// size actually committed.
//
// The request is clamped to [alignment, capacity - offset] and rounded down
// to the partition's alignment class. Resizing ota_0 or ota_1 while both are
// present resizes the pair to the same size. The search then tries the
// candidate, re-runs the full layout, and steps down one alignment unit at a
// time until the table fits. Layout is re-derived for every candidate rather
// than computed in closed form because reordering can change which region
// counts as usable capacity.
//
// If no candidate fits, the table is restored exactly (order, sizes and
// offsets) and an OUT_OF_RANGE error is returned.
func (t *Table) Resize(name string, requested int64) (int64, error) {
	idx := t.index(name)
	if idx < 0 {
		return 0, errors.New(errors.ErrCodeNotFound, "partition %q not found", name)
	}

	target := t.parts[idx]
	align := target.Alignment()
	size := min(max(requested, align), t.dev.FlashCapacity-target.Offset)
	size = AlignDown(size, align)

	linked := t.linkedSlots(idx)
	snapshot := slices.Clone(t.parts)

	for candidate := size; candidate >= align; candidate -= align {
		t.parts = slices.Clone(snapshot)
		for _, i := range linked {
			t.parts[i].Size = candidate
		}
		t.relayout()

		fits := t.Fits()
		t.hooks.OnResizeAttempt(name, candidate, fits)
		if fits {
			t.hooks.OnResizeComplete(name, requested, candidate, nil)
			return candidate, nil
		}
	}

	t.parts = snapshot
	err := errors.New(errors.ErrCodeOutOfRange,
		"no size between 0x%x and 0x%x fits partition %q", align, max(size, align), name)
	t.hooks.OnResizeComplete(name, requested, 0, err)
	return 0, err
}

// linkedSlots returns the indexes that must be resized together with the
// partition at idx: both OTA slots of a present ota_0/ota_1 pair, since A/B
// updates need equally sized images, or just idx otherwise.
func (t *Table) linkedSlots(idx int) []int {
	partner := -1
	switch t.parts[idx].SubKind {
	case OtaSlot(0):
		partner = t.indexOf(OtaSlot(1))
	case OtaSlot(1):
		partner = t.indexOf(OtaSlot(0))
	}
	if partner < 0 {
		return []int{idx}
	}
	return []int{idx, partner}
}
