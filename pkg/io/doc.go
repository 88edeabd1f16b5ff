// Package io reads and writes partition tables as CSV and as share URLs.
//
// # CSV Format
//
// The format is the one consumed by the ESP-IDF partition tool:
//
//	# Name,   Type, SubType, Offset,  Size,    Flags
//	nvs,      data, nvs,     0x9000,  0x5000,
//	otadata,  data, ota,     ,        0x2000,
//	ota_0,    app,  ota_0,   ,        1536K,
//	ota_1,    app,  ota_1,   ,        1536K,  encrypted
//
// Spaces, tabs and carriage returns are ignored. The first line matching
// the header pattern starts the table; other lines beginning with '#' and
// blank lines are skipped. Offset and Flags may be empty. Numeric fields
// accept plain decimal, a K or M suffix (KiB and MiB), or 0x-prefixed hex.
//
// # Import
//
// [ReadCSV] and [ImportCSV] parse rows into [Entry] values. [Load] replays
// entries into a [partition.Table]: it relocates the partition table so the
// fixed offsets in the file stay valid ([SuggestTableLocation]), adds every
// entry in file order, and picks the smallest standard flash size that holds
// the result without evicting anything.
//
//	entries, err := pkgio.ImportCSV("partitions.csv")
//	if err != nil {
//	    return err
//	}
//	tbl := partition.New(partition.DefaultDevice(4 * partition.MiB))
//	if err := pkgio.Load(entries, tbl, pkgio.LoadOptions{}); err != nil {
//	    return err
//	}
//
// # Export
//
// [WriteCSV] and [ExportCSV] write a laid-out table with explicit hex
// offsets and sizes, so the output can be fed to the partition tool
// directly and re-imported with identical placement.
//
// # Share URLs
//
// A table can travel in a URL query parameter named "partitions", either as
// "base64:" followed by standard base64 or as percent-encoded CSV.
// [EncodeShareURL] produces the base64 form; [DecodeSharePayload] accepts
// both.
//
// Errors are *errors.Error values with code INVALID_FORMAT for syntax
// problems and the engine's codes for placement problems.
package io
