package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format reads a tabular file into raw records. The first record is the header.
type Format interface {
	Name() string
	CanRead(path string) bool
	Read(path string, opt ReadOptions) ([][]string, error)
}

// ReadOptions carries per-format knobs.
type ReadOptions struct {
	// Sheet selects an XLSX worksheet by name; empty means the first sheet.
	Sheet string
}

var formats []Format

// Register adds a format to the registry. Later registrations do not
// override earlier ones for the same extension.
func Register(f Format) {
	formats = append(formats, f)
}

// FormatFor selects a format by file extension, falling back to CSV.
func FormatFor(path string) Format {
	for _, f := range formats {
		if f.CanRead(path) {
			return f
		}
	}
	return delimited{name: "csv", ext: ".csv", comma: ','}
}

func init() {
	Register(delimited{name: "csv", ext: ".csv", comma: ','})
	Register(delimited{name: "tsv", ext: ".tsv", comma: '\t'})
	Register(workbook{})
}

type delimited struct {
	name  string
	ext   string
	comma rune
}

func (d delimited) Name() string { return d.name }

func (d delimited) CanRead(path string) bool {
	return strings.EqualFold(filepath.Ext(path), d.ext)
}

func (d delimited) Read(path string, _ ReadOptions) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = d.comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var out [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, errors.New("no header row")
	}
	// strip UTF-8 BOM written by spreadsheet exports
	out[0][0] = strings.TrimPrefix(out[0][0], "\uFEFF")
	return out, nil
}

type workbook struct{}

func (workbook) Name() string { return "xlsx" }

func (workbook) CanRead(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func (workbook) Read(path string, opt ReadOptions) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := strings.TrimSpace(opt.Sheet)
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	// excelize omits trailing empty rows but may return leading blank ones
	for len(rows) > 0 && isBlank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheet)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
