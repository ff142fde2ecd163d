// Package profile holds sheet configurations as data. A profile names the
// sheets to extract from one kind of data export, and how to find each
// sheet's table.
package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/datadonation/internal/extract"
	"github.com/JonMunkholm/datadonation/internal/validate"
)

// ErrUnknownProfile is returned by Get for unregistered names.
var ErrUnknownProfile = errors.New("unknown profile")

// Profile is a named set of sheet specs plus the validator that gates its
// parse results.
type Profile struct {
	// Name is the registry key, e.g. "playstation".
	Name string
	// Title is shown to users, e.g. "PlayStation".
	Title string
	// Sheets are processed in order.
	Sheets []extract.SheetSpec
	// Validator names a validate.Func. Empty means the default validator.
	Validator string
	// Params, when set, replaces the parser thresholds for this profile.
	Params *extract.Params
}

// SheetNames returns the configured sheet names in order.
func (p Profile) SheetNames() []string {
	names := make([]string, len(p.Sheets))
	for i, s := range p.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the spec for a configured sheet name.
func (p Profile) Sheet(name string) (extract.SheetSpec, bool) {
	for _, s := range p.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return extract.SheetSpec{}, false
}

// ParamsOr returns the profile's own thresholds, or base when it has none.
func (p Profile) ParamsOr(base extract.Params) extract.Params {
	if p.Params != nil {
		return *p.Params
	}
	return base
}

// Parser builds an extract.Parser for this profile. base supplies the
// thresholds unless the profile carries its own.
func (p Profile) Parser(base extract.Params, logger *slog.Logger) *extract.Parser {
	return extract.New(p.Sheets, extract.WithParams(p.ParamsOr(base)), extract.WithLogger(logger))
}

// ValidatorFunc resolves the profile's validator.
func (p Profile) ValidatorFunc() (validate.Func, error) {
	return validate.Get(p.Validator)
}

// Validate checks the profile for configuration mistakes.
func (p Profile) Validate() error {
	var errs []string

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "name is required")
	}
	if len(p.Sheets) == 0 {
		errs = append(errs, "at least one sheet is required")
	}

	seen := make(map[string]bool, len(p.Sheets))
	for i, s := range p.Sheets {
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, fmt.Sprintf("sheet %d: name is required", i))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Sprintf("sheet %q: duplicate name", s.Name))
		}
		seen[s.Name] = true

		if t, ok := s.Strategy.(extract.Targeted); ok && len(t.Columns) == 0 {
			errs = append(errs, fmt.Sprintf("sheet %q: targeted sheet needs columns", s.Name))
		}
	}

	if _, err := validate.Get(p.Validator); err != nil {
		errs = append(errs, err.Error())
	}
	if p.Params != nil {
		if err := p.Params.Validate(); err != nil {
			errs = append(errs, "params: "+err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("profile %q invalid:\n  - %s", p.Name, strings.Join(errs, "\n  - "))
	}
	return nil
}

// DisplayName strips the double quotes some exports put around sheet names.
func DisplayName(sheet string) string {
	return strings.TrimSpace(strings.ReplaceAll(sheet, `"`, ""))
}
