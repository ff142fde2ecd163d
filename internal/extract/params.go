package extract

import "fmt"

// Params holds the heuristic thresholds used by header detection and
// classification. The defaults reproduce the behaviour the detector was
// validated against; change them only together with the detector tests.
type Params struct {
	// TargetedMatchRatio is the share of expected columns a row must match
	// to be adopted as header. The comparison is strict (>).
	TargetedMatchRatio float64

	// MinHeaderCells is the minimum number of non-empty cells in a
	// header-like row, and the floor for the short-cell count.
	MinHeaderCells int

	// HeaderShortRatio is the share of non-empty cells that must be short
	// for a row to look like a header (floored, then raised to MinHeaderCells).
	HeaderShortRatio float64

	// MaxHeaderLength is the exclusive rune limit for a "short" header cell.
	MaxHeaderLength int

	// BoilerplatePhrases disqualify a cell from counting as short when the
	// cell contains any of them.
	BoilerplatePhrases []string

	// LookaheadRows is how many non-blank rows after a header candidate are
	// searched for a data row.
	LookaheadRows int

	// MinDataCells is the number of non-empty cells that makes a row count
	// as evidence of tabular data below a header candidate.
	MinDataCells int

	// ClassifierScanRows is how many leading row positions are checked for
	// content when a sheet yields no records.
	ClassifierScanRows int
}

// DefaultBoilerplatePhrases are instructional sentences found above the real
// tables in exported workbooks.
var DefaultBoilerplatePhrases = []string{
	"If data is found",
	"the below table shows",
}

// DefaultParams returns the standard thresholds.
func DefaultParams() Params {
	phrases := make([]string, len(DefaultBoilerplatePhrases))
	copy(phrases, DefaultBoilerplatePhrases)

	return Params{
		TargetedMatchRatio: 0.5,
		MinHeaderCells:     2,
		HeaderShortRatio:   0.7,
		MaxHeaderLength:    50,
		BoilerplatePhrases: phrases,
		LookaheadRows:      10,
		MinDataCells:       2,
		ClassifierScanRows: 20,
	}
}

// Validate reports out-of-range thresholds.
func (p Params) Validate() error {
	switch {
	case p.TargetedMatchRatio < 0 || p.TargetedMatchRatio >= 1:
		return fmt.Errorf("targeted match ratio %v must be in [0, 1)", p.TargetedMatchRatio)
	case p.MinHeaderCells < 1:
		return fmt.Errorf("min header cells %d must be positive", p.MinHeaderCells)
	case p.HeaderShortRatio < 0 || p.HeaderShortRatio > 1:
		return fmt.Errorf("header short ratio %v must be in [0, 1]", p.HeaderShortRatio)
	case p.MaxHeaderLength < 1:
		return fmt.Errorf("max header length %d must be positive", p.MaxHeaderLength)
	case p.LookaheadRows < 1:
		return fmt.Errorf("lookahead rows %d must be positive", p.LookaheadRows)
	case p.MinDataCells < 1:
		return fmt.Errorf("min data cells %d must be positive", p.MinDataCells)
	case p.ClassifierScanRows < 1:
		return fmt.Errorf("classifier scan rows %d must be positive", p.ClassifierScanRows)
	}
	return nil
}
