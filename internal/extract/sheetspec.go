package extract

// Mode names the extraction strategy of a sheet.
type Mode string

const (
	ModeTargeted Mode = "targeted"
	ModeGeneric  Mode = "generic"
)

// Strategy selects how a sheet's header row is found. It is either
// [Targeted] or [Generic].
type Strategy interface {
	Mode() Mode
	sealed()
}

// Targeted locates the header by matching an ordered list of expected
// column names. Records carry only the matched columns.
type Targeted struct {
	Columns []string
}

func (Targeted) Mode() Mode { return ModeTargeted }
func (Targeted) sealed() {}

// Generic infers columns from the first header-like row followed by data.
type Generic struct{}

func (Generic) Mode() Mode { return ModeGeneric }
func (Generic) sealed() {}

// SheetSpec configures one logical sheet.
type SheetSpec struct {
	Name     string
	Strategy Strategy
}

// TargetedSheet returns a spec that expects the given columns.
func TargetedSheet(name string, columns ...string) SheetSpec {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return SheetSpec{Name: name, Strategy: Targeted{Columns: cols}}
}

// GenericSheet returns a spec that infers its columns.
func GenericSheet(name string) SheetSpec {
	return SheetSpec{Name: name, Strategy: Generic{}}
}

// Mode returns the spec's strategy mode. A spec without a strategy is generic.
func (s SheetSpec) Mode() Mode {
	if s.Strategy == nil {
		return ModeGeneric
	}
	return s.Strategy.Mode()
}

// ExpectedColumns returns a copy of the targeted column list, or nil for
// generic sheets.
func (s SheetSpec) ExpectedColumns() []string {
	t, ok := s.Strategy.(Targeted)
	if !ok {
		return nil
	}
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	return cols
}
