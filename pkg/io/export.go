package io

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/partplan/pkg/errors"
	"github.com/matzehuels/partplan/pkg/partition"
)

// Header is the first line written by [WriteCSV].
const Header = "# Name, Type, SubType, Offset, Size, Flags"

// WriteCSV writes parts in table order with explicit hex offsets and sizes.
// The output round-trips through [ReadCSV] and [Load] to the same layout.
func WriteCSV(w io.Writer, parts []partition.Partition) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, Header)
	for _, p := range parts {
		fmt.Fprintf(bw, "%s, %s, %s, 0x%x, 0x%x,", p.Name, p.Kind, p.SubKind, p.Offset, p.Size)
		if p.Flags != "" {
			fmt.Fprintf(bw, " %s", p.Flags)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// ExportCSV writes the table to a file at path, creating or truncating it.
func ExportCSV(tbl *partition.Table, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(errors.ErrCodeInternal, cerr, "close %s", path)
		}
	}()
	if err := WriteCSV(f, tbl.Partitions()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}
