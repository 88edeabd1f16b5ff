package partition

// Alignment classes and fixed boundaries imposed by the boot ROM.
const (
	// AppAlignment is the offset alignment of application partitions.
	AppAlignment int64 = 0x10000
	// DataAlignment is the offset alignment of data partitions, and the unit
	// the partition table location must be a multiple of.
	DataAlignment int64 = 0x1000
	// AppBoundary is the lowest absolute address an application may start at.
	AppBoundary int64 = 0x10000
)

// Device policy defaults.
const (
	// DefaultTableReservedSize is the space reserved ahead of the first
	// partition for the bootloader and the partition table itself.
	DefaultTableReservedSize int64 = 0x9000
	// DefaultOtaStateDelta is the distance from the partition table base to
	// the OTA state record. With the default base (0x9000) the record sits
	// at 0xE000.
	DefaultOtaStateDelta int64 = 0x5000
)

// Recommended sizes carried over from the stock layouts.
const (
	NvsRecommendedSize int64 = 0x3000
	OtaStateSize       int64 = 0x2000
	FatMinSize         int64 = 528 * 1024
)

// MiB is one mebibyte.
const MiB int64 = 1 << 20

// FlashSizes are the standard flash chip capacities, ascending.
var FlashSizes = []int64{4 * MiB, 8 * MiB, 16 * MiB}

// SmallestFlashSizeFor returns the smallest standard flash size that is at
// least n bytes, or false if n exceeds every standard size.
func SmallestFlashSizeFor(n int64) (int64, bool) {
	for _, s := range FlashSizes {
		if n <= s {
			return s, true
		}
	}
	return 0, false
}

// AlignmentFor returns the offset alignment required for kind.
func AlignmentFor(kind Kind) int64 {
	if kind == KindApp {
		return AppAlignment
	}
	return DataAlignment
}

// AlignUp returns the smallest multiple of alignment that is >= offset.
func AlignUp(offset, alignment int64) int64 {
	if r := offset % alignment; r != 0 {
		if offset < 0 {
			return offset - r
		}
		return offset + alignment - r
	}
	return offset
}

// AlignDown returns the largest multiple of alignment that is <= offset.
func AlignDown(offset, alignment int64) int64 {
	if r := offset % alignment; r != 0 {
		if offset < 0 {
			return offset - r - alignment
		}
		return offset - r
	}
	return offset
}

// IsAligned reports whether offset is a multiple of alignment.
func IsAligned(offset, alignment int64) bool {
	return offset%alignment == 0
}

// Device holds the parameters of the flash device a table is laid out for.
type Device struct {
	// FlashCapacity is the total addressable space in bytes.
	FlashCapacity int64
	// TableLocation is where the reserved partition table region starts.
	TableLocation int64
	// TableReservedSize is the size of the reserved region.
	TableReservedSize int64
	// OtaStateDelta is the distance from BaseOffset to the OTA state record.
	OtaStateDelta int64
}

// DefaultDevice returns the default device profile for the given capacity:
// table at address 0, 0x9000 reserved, OTA state record at base + 0x5000.
func DefaultDevice(flashCapacity int64) Device {
	return Device{
		FlashCapacity:     flashCapacity,
		TableLocation:     0,
		TableReservedSize: DefaultTableReservedSize,
		OtaStateDelta:     DefaultOtaStateDelta,
	}
}

// BaseOffset is the first address available to partitions.
func (d Device) BaseOffset() int64 {
	return d.TableLocation + d.TableReservedSize
}

// OtaStateOffset is the address the OTA state record must occupy.
func (d Device) OtaStateOffset() int64 {
	return d.BaseOffset() + d.OtaStateDelta
}

// AppOrigin is where the first application lands when nothing but the
// reserved region precedes it. Under the default profile it equals
// [AppBoundary].
func (d Device) AppOrigin() int64 {
	return AlignUp(max(d.BaseOffset(), AppBoundary), AppAlignment)
}

// place returns the offset p receives when the placement cursor stands at
// cursor. It is shared by the offset pass and by the reordering simulations
// so both agree on where every partition ends up.
func (d Device) place(p *Partition, cursor int64) int64 {
	if p.IsOtaState() {
		return d.OtaStateOffset()
	}
	if p.FixedOffset && p.pinned >= cursor {
		return p.pinned
	}
	if p.IsApp() && cursor < AppBoundary {
		cursor = AppBoundary
	}
	return AlignUp(cursor, p.Alignment())
}
