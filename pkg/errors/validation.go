package errors

import (
	"strings"
	"unicode"
)

// MaxPartitionNameLen is the size of the name field in an on-flash partition
// table entry. Longer names are truncated by the bootloader tooling, so they
// are rejected up front.
const MaxPartitionNameLen = 16

// knownFlags lists the flags the partition table format understands.
var knownFlags = map[string]bool{
	"encrypted": true,
	"readonly":  true,
}

// ValidatePartitionName validates a partition name for use in a table.
//
// The validation rules follow what the partition table format can store:
//   - No empty names
//   - At most 16 bytes
//   - No commas (the CSV field separator)
//   - No whitespace or control characters
func ValidatePartitionName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "partition name cannot be empty")
	}

	if len(name) > MaxPartitionNameLen {
		return New(ErrCodeInvalidName, "partition name %q too long (max %d bytes)", name, MaxPartitionNameLen)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidName, "partition name %q contains whitespace or control characters", name)
		}
		if r == ',' {
			return New(ErrCodeInvalidName, "partition name %q contains a comma", name)
		}
	}

	return nil
}

// ValidateFlags validates a flags field. Flags are colon-separated, for
// example "encrypted:readonly". An empty string is valid.
func ValidateFlags(flags string) error {
	if flags == "" {
		return nil
	}

	seen := make(map[string]bool)
	for _, f := range strings.Split(flags, ":") {
		if f == "" {
			return New(ErrCodeInvalidFlags, "flags %q contain an empty entry", flags)
		}
		if !knownFlags[f] {
			return New(ErrCodeInvalidFlags, "unknown flag %q", f)
		}
		if seen[f] {
			return New(ErrCodeInvalidFlags, "duplicate flag %q", f)
		}
		seen[f] = true
	}

	return nil
}
