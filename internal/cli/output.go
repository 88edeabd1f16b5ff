package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/partplan/pkg/errors"
	pkgio "github.com/matzehuels/partplan/pkg/io"
	"github.com/matzehuels/partplan/pkg/partition"
)

// Output formats accepted by --format.
const (
	formatCSV   = "csv"
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var outputFormats = []string{formatCSV, formatTable, formatJSON, formatYAML}

// =============================================================================
// Structured Output
// =============================================================================

// layoutDoc is the JSON and YAML form of a laid-out table.
type layoutDoc struct {
	FlashSize     string         `json:"flash_size" yaml:"flash_size"`
	TableLocation string         `json:"table_location" yaml:"table_location"`
	Available     int64          `json:"available" yaml:"available"`
	Fits          bool           `json:"fits" yaml:"fits"`
	Partitions    []partitionDoc `json:"partitions" yaml:"partitions"`
}

type partitionDoc struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	SubType string `json:"subtype" yaml:"subtype"`
	Offset  string `json:"offset" yaml:"offset"`
	Size    string `json:"size" yaml:"size"`
	Flags   string `json:"flags,omitempty" yaml:"flags,omitempty"`
}

func newLayoutDoc(tbl *partition.Table) layoutDoc {
	dev := tbl.Device()
	doc := layoutDoc{
		FlashSize:     hex(dev.FlashCapacity),
		TableLocation: hex(dev.TableLocation),
		Available:     tbl.Available(),
		Fits:          tbl.Fits(),
	}
	for _, p := range tbl.Partitions() {
		doc.Partitions = append(doc.Partitions, partitionDoc{
			Name:    p.Name,
			Type:    p.Kind.String(),
			SubType: p.SubKind.String(),
			Offset:  hex(p.Offset),
			Size:    hex(p.Size),
			Flags:   p.Flags,
		})
	}
	return doc
}

// writeLayout writes tbl to w in the given format.
func writeLayout(w io.Writer, tbl *partition.Table, format string) error {
	switch format {
	case formatCSV, "":
		return pkgio.WriteCSV(w, tbl.Partitions())
	case formatTable:
		_, err := fmt.Fprintln(w, renderTable(tbl))
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newLayoutDoc(tbl))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newLayoutDoc(tbl)); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want %s)",
		format, strings.Join(outputFormats, ", "))
}

// writeLayoutTo writes tbl to path, or to stdout when path is empty.
func writeLayoutTo(stdout io.Writer, path string, tbl *partition.Table, format string) (err error) {
	if path == "" {
		return writeLayout(stdout, tbl, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := writeLayout(f, tbl, format); err != nil {
		return err
	}
	printFile(path)
	return nil
}

// =============================================================================
// Table Rendering
// =============================================================================

var (
	tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	tableCellStyle   = lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
	tableNumberStyle = lipgloss.NewStyle().Foreground(colorCyan).Padding(0, 1)
)

// renderTable draws the partitions as a bordered table with a capacity
// footer.
func renderTable(tbl *partition.Table) string {
	rows := [][]string{}
	for _, p := range tbl.Partitions() {
		rows = append(rows, []string{
			p.Name,
			p.Kind.String(),
			p.SubKind.String(),
			hex(p.Offset),
			hex(p.End()),
			humanize.IBytes(uint64(p.Size)),
			p.Flags,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Name", "Type", "SubType", "Offset", "End", "Size", "Flags").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle.Padding(0, 1)
			case col >= 3 && col <= 5:
				return tableNumberStyle
			default:
				return tableCellStyle
			}
		})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(capacityLine(tbl))
	return b.String()
}

// capacityLine summarizes flash usage on a single line.
func capacityLine(tbl *partition.Table) string {
	dev := tbl.Device()
	avail := tbl.Available()
	availStr := StyleNumber.Render(sizeLabel(avail))
	if !tbl.Fits() {
		availStr = StyleError.Render(sizeLabel(avail))
	}
	parts := []string{
		"flash " + StyleValue.Render(humanize.IBytes(uint64(dev.FlashCapacity))),
		"table at " + StyleValue.Render(hex(dev.TableLocation)),
		"available " + availStr,
	}
	return StyleDim.Render(strings.Join(parts, StyleDim.Render(" · ")))
}

// printSummary reports the layout state of tbl on stderr.
func printSummary(tbl *partition.Table) {
	dev := tbl.Device()
	printKeyValue("Partitions", fmt.Sprintf("%d", tbl.Len()))
	printKeyValue("Flash", humanize.IBytes(uint64(dev.FlashCapacity)))
	printKeyValue("Table at", hex(dev.TableLocation))
	printKeyValue("Available", sizeLabel(tbl.Available()))
	if !tbl.Fits() {
		printError("Layout does not fit: ends at %s, flash is %s", hex(tbl.End()), hex(dev.FlashCapacity))
		printDetail("Shrink or remove a partition, or pass a larger --flash-size")
	}
}

// sizeLabel formats a byte count as hex plus a human-readable size. Negative
// values (overcommitted flash) keep their sign.
func sizeLabel(n int64) string {
	if n < 0 {
		return fmt.Sprintf("-%s (-%s)", hex(-n), humanize.IBytes(uint64(-n)))
	}
	return fmt.Sprintf("%s (%s)", hex(n), humanize.IBytes(uint64(n)))
}

func hex(n int64) string {
	return fmt.Sprintf("0x%x", n)
}
