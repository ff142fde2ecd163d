package profile

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/datadonation/internal/extract"
	"gopkg.in/yaml.v3"
)

// fileProfile is the YAML form of a profile:
//
//	name: playstation
//	title: PlayStation
//	sheets:
//	  - name: '"Account Device"'
//	    columns: [Console Id, Name]
//	  - name: '"PS Now"'        # no columns: generic
//	params:
//	  lookahead_rows: 15
type fileProfile struct {
	Name      string      `yaml:"name"`
	Title     string      `yaml:"title,omitempty"`
	Validator string      `yaml:"validator,omitempty"`
	Sheets    []fileSheet `yaml:"sheets"`
	Params    *fileParams `yaml:"params,omitempty"`
}

type fileSheet struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns,omitempty"`
}

// fileParams overrides individual thresholds; unset fields keep defaults.
type fileParams struct {
	TargetedMatchRatio *float64 `yaml:"targeted_match_ratio"`
	MinHeaderCells     *int     `yaml:"min_header_cells"`
	HeaderShortRatio   *float64 `yaml:"header_short_ratio"`
	MaxHeaderLength    *int     `yaml:"max_header_length"`
	BoilerplatePhrases []string `yaml:"boilerplate_phrases"`
	LookaheadRows      *int     `yaml:"lookahead_rows"`
	MinDataCells       *int     `yaml:"min_data_cells"`
	ClassifierScanRows *int     `yaml:"classifier_scan_rows"`
}

func (fp *fileParams) apply(p extract.Params) extract.Params {
	if fp.TargetedMatchRatio != nil {
		p.TargetedMatchRatio = *fp.TargetedMatchRatio
	}
	if fp.MinHeaderCells != nil {
		p.MinHeaderCells = *fp.MinHeaderCells
	}
	if fp.HeaderShortRatio != nil {
		p.HeaderShortRatio = *fp.HeaderShortRatio
	}
	if fp.MaxHeaderLength != nil {
		p.MaxHeaderLength = *fp.MaxHeaderLength
	}
	if fp.BoilerplatePhrases != nil {
		p.BoilerplatePhrases = fp.BoilerplatePhrases
	}
	if fp.LookaheadRows != nil {
		p.LookaheadRows = *fp.LookaheadRows
	}
	if fp.MinDataCells != nil {
		p.MinDataCells = *fp.MinDataCells
	}
	if fp.ClassifierScanRows != nil {
		p.ClassifierScanRows = *fp.ClassifierScanRows
	}
	return p
}

// Parse decodes a YAML profile. Sheets without columns are generic.
func Parse(data []byte) (Profile, error) {
	var fp fileProfile
	if err := yaml.Unmarshal(data, &fp); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}

	p := Profile{
		Name:      fp.Name,
		Title:     fp.Title,
		Validator: fp.Validator,
		Sheets:    make([]extract.SheetSpec, len(fp.Sheets)),
	}
	if p.Title == "" {
		p.Title = p.Name
	}
	for i, s := range fp.Sheets {
		if len(s.Columns) == 0 {
			p.Sheets[i] = extract.GenericSheet(s.Name)
		} else {
			p.Sheets[i] = extract.TargetedSheet(s.Name, s.Columns...)
		}
	}
	if fp.Params != nil {
		params := fp.Params.apply(extract.DefaultParams())
		p.Params = &params
	}

	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// LoadFile reads a YAML profile from path.
func LoadFile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data)
}

// Marshal encodes a profile as YAML in the form Parse accepts.
func Marshal(p Profile) ([]byte, error) {
	fp := fileProfile{
		Name:      p.Name,
		Title:     p.Title,
		Validator: p.Validator,
		Sheets:    make([]fileSheet, len(p.Sheets)),
	}
	for i, s := range p.Sheets {
		fp.Sheets[i] = fileSheet{Name: s.Name, Columns: s.ExpectedColumns()}
	}
	return yaml.Marshal(fp)
}
