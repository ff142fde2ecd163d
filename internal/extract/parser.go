package extract

import (
	"log/slog"

	"github.com/JonMunkholm/datadonation/internal/workbook"
)

// Reason keys used in structured log events.
const (
	LogReasonSheetNotFound  = "sheet_not_found"
	LogReasonHeaderNotFound = "header_not_found"
	LogReasonNoTable        = "no_table_structure"
)

// Parser runs the configured sheets against a workbook.
type Parser struct {
	sheets []SheetSpec
	params Params
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithParams overrides the heuristic thresholds.
func WithParams(p Params) Option {
	return func(ps *Parser) { ps.params = p }
}

// WithLogger sets the logger that receives per-sheet events.
func WithLogger(l *slog.Logger) Option {
	return func(ps *Parser) {
		if l != nil {
			ps.logger = l
		}
	}
}

// New creates a parser for the given sheets, processed in order.
func New(sheets []SheetSpec, opts ...Option) *Parser {
	p := &Parser{
		sheets: make([]SheetSpec, len(sheets)),
		params: DefaultParams(),
		logger: slog.Default(),
	}
	copy(p.sheets, sheets)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sheets returns the configured sheet names in order.
func (p *Parser) Sheets() []string {
	names := make([]string, len(p.sheets))
	for i, s := range p.sheets {
		names[i] = s.Name
	}
	return names
}

// Params returns the thresholds in use.
func (p *Parser) Params() Params { return p.params }

// Parse extracts every configured sheet from wb. It never fails: missing
// and unparseable sheets are reported in the result's ParsingErrors.
func (p *Parser) Parse(wb *workbook.Workbook) *Result {
	res := &Result{
		Data: NewParsedData(p.Sheets()...),
		ParsingErrors: ParsingErrorReport{
			SheetsNotFound:  []string{},
			TablesNotParsed: []TableError{},
		},
	}

	for _, spec := range p.sheets {
		records, tableErr, found := p.parseSheet(wb, spec)
		res.Data.Set(spec.Name, records)

		switch {
		case !found:
			res.ParsingErrors.SheetsNotFound = append(res.ParsingErrors.SheetsNotFound, spec.Name)
		case tableErr != nil:
			res.ParsingErrors.TablesNotParsed = append(res.ParsingErrors.TablesNotParsed, *tableErr)
		}
	}
	return res
}

// parseSheet handles one configured sheet. found is false when the sheet is
// missing from the workbook; tableErr is set only for present sheets with
// content but no records.
func (p *Parser) parseSheet(wb *workbook.Workbook, spec SheetSpec) (records []Record, tableErr *TableError, found bool) {
	sheet, ok := Resolve(wb, spec.Name)
	if !ok {
		p.logger.Warn("sheet not found",
			"sheet", spec.Name,
			"reason", LogReasonSheetNotFound,
		)
		return []Record{}, nil, false
	}

	var header Header
	switch s := spec.Strategy.(type) {
	case Targeted:
		header = DetectTargeted(sheet, s.Columns, p.params)
	default:
		header = DetectGeneric(sheet, p.params)
	}

	records = ExtractRecords(sheet, header)
	if len(records) > 0 {
		p.logger.Debug("sheet parsed",
			"sheet", spec.Name,
			"mode", string(spec.Mode()),
			"header_row", header.Row,
			"records", len(records),
		)
		return records, nil, true
	}

	tableErr = Classify(sheet, spec, p.params)
	switch {
	case tableErr == nil:
		p.logger.Debug("sheet parsed",
			"sheet", spec.Name,
			"mode", string(spec.Mode()),
			"header_row", header.Row,
			"records", 0,
		)
	case spec.Mode() == ModeTargeted:
		p.logger.Warn("header row not found",
			"sheet", spec.Name,
			"mode", string(ModeTargeted),
			"reason", LogReasonHeaderNotFound,
		)
	default:
		p.logger.Warn("no table structure found",
			"sheet", spec.Name,
			"mode", string(ModeGeneric),
			"reason", LogReasonNoTable,
		)
	}
	return records, tableErr, true
}
