package partition

import "slices"

// reorder restores the table order so the OTA state record can sit at its
// pinned offset with the OTA slots right after it, and no data partition
// ahead of the first application pushes that application past the app
// origin. Partitions are only moved, never dropped or resized, and moves are
// stable: partitions that move together keep their relative order.
//
// Running reorder on its own output returns the same order.
func reorder(parts []Partition, d Device) []Partition {
	return placeAppBoundary(placeOtaState(parts, d), d)
}

// placeOtaState splits the list around the OTA state record. Partitions in
// front of it that would run past its pinned offset are deferred to the end
// of the table, and OTA application slots are pulled forward so they
// directly follow the record.
func placeOtaState(parts []Partition, d Device) []Partition {
	idx := slices.IndexFunc(parts, Partition.IsOtaState)
	if idx < 0 {
		return parts
	}

	required := d.OtaStateOffset()
	var before, slots, deferred []Partition
	cursor := d.BaseOffset()
	for _, p := range parts[:idx] {
		off := d.place(&p, cursor)
		switch {
		case off+p.Size <= required:
			before = append(before, p)
			cursor = off + p.Size
		case p.SubKind.IsOtaSlot():
			slots = append(slots, p)
		default:
			deferred = append(deferred, p)
		}
	}

	var rest []Partition
	for _, p := range parts[idx+1:] {
		if p.SubKind.IsOtaSlot() {
			slots = append(slots, p)
		} else {
			rest = append(rest, p)
		}
	}

	out := make([]Partition, 0, len(parts))
	out = append(out, before...)
	out = append(out, parts[idx])
	out = append(out, slots...)
	out = append(out, rest...)
	out = append(out, deferred...)
	return out
}

// placeAppBoundary moves data partitions that precede the first application
// and would end past the app origin to just behind the leading run of
// applications. The OTA state record is pinned and never moves.
func placeAppBoundary(parts []Partition, d Device) []Partition {
	first := slices.IndexFunc(parts, Partition.IsApp)
	if first < 0 {
		return parts
	}

	limit := d.AppOrigin()
	var kept, moved []Partition
	cursor := d.BaseOffset()
	for _, p := range parts[:first] {
		off := d.place(&p, cursor)
		if !p.IsOtaState() && off+p.Size > limit {
			moved = append(moved, p)
			continue
		}
		kept = append(kept, p)
		cursor = off + p.Size
	}
	if len(moved) == 0 {
		return parts
	}

	run := first
	for run < len(parts) && parts[run].IsApp() {
		run++
	}

	out := make([]Partition, 0, len(parts))
	out = append(out, kept...)
	out = append(out, parts[first:run]...)
	out = append(out, moved...)
	out = append(out, parts[run:]...)
	return out
}

// assignOffsets stamps concrete offsets onto parts in table order. It never
// fails; a layout that overruns the device is detected by [Table.Fits].
func assignOffsets(parts []Partition, d Device) {
	cursor := d.BaseOffset()
	for i := range parts {
		p := &parts[i]
		p.Offset = d.place(p, cursor)
		cursor = p.End()
	}
}

// movedCount returns how many positions hold a different partition name.
func movedCount(before, after []Partition) int {
	n := 0
	for i := range min(len(before), len(after)) {
		if before[i].Name != after[i].Name {
			n++
		}
	}
	return n
}
