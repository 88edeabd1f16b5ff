package io

import (
	"bufio"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/partplan/pkg/errors"
	"github.com/matzehuels/partplan/pkg/partition"
)

var (
	headerPattern = regexp.MustCompile(`^#+Name,Type,SubType,Offset,Size(,Flags)?$`)
	sizePattern   = regexp.MustCompile(`^(\d+)([KkMm]?)$`)
	blankRunes    = strings.NewReplacer(" ", "", "\t", "", "\r", "")
)

// Entry is one parsed CSV row.
type Entry struct {
	Name    string
	Kind    partition.Kind
	SubKind partition.SubKind
	// Offset is only meaningful when HasOffset is set.
	Offset    int64
	HasOffset bool
	Size      int64
	Flags     string
	// Line is the 1-based source line, for error messages.
	Line int
}

// ReadCSV parses a partition table CSV from r.
//
// The input must contain a header line and at least one row. Every row needs
// a name, type, subtype and size; offset and flags are optional. Type and
// subtype must be known spellings, and the subtype's native type must match
// the row's type.
//
// ReadCSV returns an INVALID_FORMAT error naming the offending line on any
// syntax problem. ReadCSV does not close r.
func ReadCSV(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	var (
		entries    []Entry
		seenHeader bool
		lineNo     int
	)
	for sc.Scan() {
		lineNo++
		line := blankRunes.Replace(sc.Text())
		if headerPattern.MatchString(line) {
			if seenHeader {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: duplicate header", lineNo)
			}
			seenHeader = true
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seenHeader {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"line %d: expected header \"# Name, Type, SubType, Offset, Size, Flags\"", lineNo)
		}
		e, err := parseRow(line, lineNo)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read csv")
	}
	if !seenHeader {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "missing header line")
	}
	if len(entries) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "no partitions")
	}
	return entries, nil
}

func parseRow(line string, lineNo int) (Entry, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 5 || len(fields) > 6 {
		return Entry{}, errors.New(errors.ErrCodeInvalidFormat,
			"line %d: expected 5 or 6 fields, got %d", lineNo, len(fields))
	}
	name, kindStr, subStr, offStr, sizeStr := fields[0], fields[1], fields[2], fields[3], fields[4]
	if name == "" || kindStr == "" || subStr == "" || sizeStr == "" {
		return Entry{}, errors.New(errors.ErrCodeInvalidFormat,
			"line %d: name, type, subtype and size are required", lineNo)
	}

	e := Entry{Name: name, Line: lineNo}
	var err error
	if e.Kind, err = partition.ParseKind(kindStr); err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d", lineNo)
	}
	if e.SubKind, err = partition.ParseSubKind(subStr); err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d", lineNo)
	}
	if e.SubKind.NativeKind() != e.Kind {
		return Entry{}, errors.New(errors.ErrCodeInvalidFormat,
			"line %d: subtype %s is not valid for type %s", lineNo, e.SubKind, e.Kind)
	}
	if e.Size, err = ParseSize(sizeStr); err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d: size", lineNo)
	}
	if offStr != "" {
		if e.Offset, err = ParseSize(offStr); err != nil {
			return Entry{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d: offset", lineNo)
		}
		e.HasOffset = true
	}
	if len(fields) == 6 {
		e.Flags = fields[5]
		if err := errors.ValidateFlags(e.Flags); err != nil {
			return Entry{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d", lineNo)
		}
	}
	return e, nil
}

// ParseSize parses a numeric literal as used in partition CSVs: plain
// decimal ("4096"), a K or M suffix ("24K", "1M"), or 0x-prefixed hex
// ("0x9000").
func ParseSize(s string) (int64, error) {
	if hex, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		n, err := strconv.ParseInt(hex, 16, 64)
		if err != nil || n < 0 {
			return 0, errors.New(errors.ErrCodeInvalidInput, "invalid hex literal %q", s)
		}
		return n, nil
	}
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid size literal %q", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid size literal %q", s)
	}
	mult := int64(1)
	switch strings.ToUpper(m[2]) {
	case "K":
		mult = 1024
	case "M":
		mult = partition.MiB
	}
	if n > math.MaxInt64/mult {
		return 0, errors.New(errors.ErrCodeInvalidInput, "size literal %q overflows", s)
	}
	return n * mult, nil
}

// ImportCSV reads the CSV file at path. It returns the same errors as
// [ReadCSV], plus a NOT_FOUND error if the file does not exist.
func ImportCSV(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()

	entries, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return entries, nil
}
