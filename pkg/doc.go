// Package pkg provides the core libraries for partplan, a flash partition
// table planner.
//
// # Overview
//
// Partplan lays out the partition table of an ESP32-class flash device: an
// ordered list of application and data partitions that must respect the
// device's alignment classes, the reserved partition-table region, the pinned
// OTA state record and the 64 KiB application boundary. The pkg directory is
// organized as follows:
//
//  1. [partition] - Domain logic (alignment rules, capacity, reordering,
//     offset assignment, resize search, the Table aggregate)
//  2. [io] - Partition CSV import/export and share-URL payloads
//  3. [preset] - Built-in and user-defined layouts
//  4. [config] - TOML configuration (device defaults, presets)
//  5. [server] - Stateless HTTP API
//  6. [observability] - Layout event hooks: logging and Prometheus metrics
//
// # Architecture
//
// The typical data flow through partplan:
//
//	partitions.csv / preset / share URL
//	         ↓
//	    [io] package (parse rows, suggest table location)
//	         ↓
//	    [partition] package (reorder → assign offsets → capacity check)
//	         ↓
//	    CSV / table / JSON / YAML output
//
// # Quick Start
//
// Build a two-slot OTA layout and let the table place it:
//
//	tbl := partition.New(partition.DefaultDevice(4 * partition.MiB))
//	tbl.AddPartition("nvs", partition.KindData, partition.SubKindNvs, 0x5000, "")
//	tbl.AddPartition("otadata", partition.KindData, partition.SubKindOtaState, 0x2000, "")
//	tbl.AddPartition("app0", partition.KindApp, partition.OtaSlot(0), 0x180000, "")
//	tbl.AddPartition("app1", partition.KindApp, partition.OtaSlot(1), 0x180000, "")
//
//	// Grow both slots as far as the flash allows.
//	size, err := tbl.Resize("app0", 4*partition.MiB)
//
//	pkgio.WriteCSV(os.Stdout, tbl.Partitions())
//
// # Errors
//
// All packages return [errors.Error] values carrying a machine-readable code
// (NOT_FOUND, MISALIGNED_OFFSET, OUT_OF_RANGE, UNSATISFIABLE, INVALID_*).
// Use [errors.Is] to branch on the code and [errors.UserMessage] for display.
//
// [partition]: https://pkg.go.dev/github.com/matzehuels/partplan/pkg/partition
// [io]: https://pkg.go.dev/github.com/matzehuels/partplan/pkg/io
// [preset]: https://pkg.go.dev/github.com/matzehuels/partplan/pkg/preset
// [config]: https://pkg.go.dev/github.com/matzehuels/partplan/pkg/config
// [server]: https://pkg.go.dev/github.com/matzehuels/partplan/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/partplan/pkg/observability
// [errors.Error]: https://pkg.go.dev/github.com/matzehuels/partplan/pkg/errors#Error
// [errors.Is]: https://pkg.go.dev/github.com/matzehuels/partplan/pkg/errors#Is
// [errors.UserMessage]: https://pkg.go.dev/github.com/matzehuels/partplan/pkg/errors#UserMessage
package pkg
