package partition

// Partition describes one region of the flash device.
//
// Offset is derived by the table's layout passes and is rewritten on every
// mutation; callers only influence it through [Table.AddFixedPartition].
type Partition struct {
	Name    string  `json:"name"`
	Kind    Kind    `json:"type"`
	SubKind SubKind `json:"subtype"`
	Offset  int64   `json:"offset"`
	Size    int64   `json:"size"`
	Flags   string  `json:"flags,omitempty"`

	// FixedOffset is set when the caller requested an explicit offset. The
	// offset pass keeps that offset as long as it does not overlap the
	// partitions placed before it.
	FixedOffset bool `json:"fixed_offset,omitempty"`

	pinned int64 // requested offset when FixedOffset is set
}

// End returns the first address past the partition.
func (p Partition) End() int64 { return p.Offset + p.Size }

// Alignment returns the partition's alignment class.
func (p Partition) Alignment() int64 { return AlignmentFor(p.Kind) }

// IsApp reports whether the partition holds an application image.
func (p Partition) IsApp() bool { return p.Kind == KindApp }

// IsOtaState reports whether the partition is the OTA state record.
func (p Partition) IsOtaState() bool { return p.SubKind == SubKindOtaState }

// RequestedOffset returns the caller-supplied offset of a fixed partition.
// The second result is false for auto-placed partitions.
func (p Partition) RequestedOffset() (int64, bool) {
	return p.pinned, p.FixedOffset
}
