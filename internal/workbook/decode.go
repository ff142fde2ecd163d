package workbook

// decode.go is the load boundary: raw xlsx bytes in, Workbook out.
//
// Every failure here is a "cannot load workbook" failure and wraps
// ErrCannotLoad. The extraction pass never runs on a workbook that failed to
// decode.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrCannotLoad indicates the input could not be decoded as a workbook.
var ErrCannotLoad = errors.New("cannot load workbook")

// ErrEmptyInput indicates a zero-length upload.
var ErrEmptyInput = errors.New("empty file")

// DecodeOptions configures how cells are read.
type DecodeOptions struct {
	// RichText keeps styled runs for rich-text cells instead of flattening
	// them at decode time.
	RichText bool
	// TypedValues converts numeric and boolean cells to int64, float64 and
	// bool. When false every cell is kept as its formatted string.
	TypedValues bool
}

// DefaultDecodeOptions returns the options used by the service and CLI.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{RichText: true, TypedValues: true}
}

// DecodeFile reads and decodes the workbook at path.
func DecodeFile(path string, opts DecodeOptions) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotLoad, err)
	}
	return DecodeBytes(filepath.Base(path), data, opts)
}

// Decode reads r fully and decodes it. excelize needs the whole archive in
// memory, so there is no streaming variant.
func Decode(name string, r io.Reader, opts DecodeOptions) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrCannotLoad, err)
	}
	return DecodeBytes(name, data, opts)
}

// DecodeBytes decodes an in-memory xlsx file.
func DecodeBytes(name string, data []byte, opts DecodeOptions) (*Workbook, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrCannotLoad, ErrEmptyInput)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotLoad, err)
	}
	defer f.Close()

	wb := &Workbook{Name: name}
	for _, sheetName := range f.GetSheetList() {
		sheet, err := readSheet(f, sheetName, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrCannotLoad, sheetName, err)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

// readSheet converts one excelize sheet into a Sheet. GetRows returns every
// row up to the last used one, so positions map directly to row numbers.
func readSheet(f *excelize.File, name string, opts DecodeOptions) (*Sheet, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Name: name, Rows: make([]Row, len(rows))}
	for rowIdx, raw := range rows {
		rowNum := rowIdx + 1
		cells := make([]Value, len(raw))
		for colIdx, s := range raw {
			if s == "" {
				continue
			}
			cells[colIdx] = readCell(f, name, colIdx+1, rowNum, s, opts)
		}
		sheet.Rows[rowIdx] = Row{Number: rowNum, Cells: cells}
	}
	return sheet, nil
}

func readCell(f *excelize.File, sheet string, col, row int, formatted string, opts DecodeOptions) Value {
	if !opts.RichText && !opts.TypedValues {
		return formatted
	}

	cellName, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return formatted
	}

	if opts.RichText {
		if runs, err := f.GetCellRichText(sheet, cellName); err == nil && len(runs) > 1 {
			rt := make(RichText, len(runs))
			for i, r := range runs {
				rt[i] = Run{Text: r.Text}
				if r.Font != nil {
					rt[i].Bold = r.Font.Bold
					rt[i].Italic = r.Font.Italic
				}
			}
			return rt
		}
	}

	if !opts.TypedValues {
		return formatted
	}

	typ, err := f.GetCellType(sheet, cellName)
	if err != nil {
		return formatted
	}
	switch typ {
	case excelize.CellTypeBool:
		if b, err := strconv.ParseBool(strings.ToLower(formatted)); err == nil {
			return b
		}
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		return parseNumber(formatted)
	}
	return formatted
}

// parseNumber returns int64 for integers, float64 for decimals, or the
// original string when the formatted value is not a plain number (dates,
// currency, percentages keep their display form).
func parseNumber(s string) Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
