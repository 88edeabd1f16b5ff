// Package partition lays out flash partition tables for embedded devices.
//
// # Overview
//
// A [Table] is an ordered set of named regions (application images, the OTA
// state record, data stores) packed into a fixed-size flash device behind a
// reserved region holding the bootloader and the partition table itself.
// The engine keeps the table valid under the placement rules of the boot ROM
// and of over-the-air updates:
//
//   - Application partitions are aligned to 64 KiB, data partitions to 4 KiB.
//   - The OTA state record sits at a pinned offset: the partition table base
//     plus [Device.OtaStateDelta] (0xE000 under the default profile).
//   - OTA application slots (ota_0, ota_1, ...) directly follow the state record.
//   - No application starts below [AppBoundary] (0x10000).
//   - Partitions never overlap.
//
// # Layout
//
// Every mutation (add, remove, resize, capacity change, table relocation)
// ends with two passes:
//
//  1. Reordering. The list is rearranged so that partitions which would
//     collide with the OTA state record are deferred to the end, OTA slots
//     move up behind the record, and data partitions that would push the
//     first application past the boundary move behind the leading
//     applications. Moves are stable and the pass is idempotent.
//  2. Offset assignment. A single forward walk stamps aligned offsets,
//     forcing the OTA state record to its pinned offset.
//
// Table order is what callers display, so after every call it is ascending
// by offset.
//
// # Capacity
//
// [Table.TotalUsable], [Table.Consumed] and [Table.Available] track how much
// of the device the partitions take. [Table.Fits] additionally checks that the
// last partition ends within the device. [Table.Resize] searches downwards
// from the requested size for the largest size that fits, resizing the
// ota_0/ota_1 pair symmetrically, and rolls back completely when nothing fits.
//
// # Failure semantics
//
// Errors are *errors.Error values from [github.com/matzehuels/partplan/pkg/errors]
// with codes NOT_FOUND, MISALIGNED_OFFSET, OUT_OF_RANGE, UNSATISFIABLE and
// INVALID_*. A failed call leaves the table unchanged, with one documented
// exception: [Table.SetFlashCapacity] and [Table.SetPartitionTableLocation]
// evict partitions before they can tell that even an empty table does not
// fit, so an UNSATISFIABLE result arrives with the evictions already applied.
//
// # Concurrency
//
// A Table is exclusively owned by one editing session. It has no internal
// locking; use [Table.Clone] to take checkpoints.
package partition
