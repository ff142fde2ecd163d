package core

// templates.go builds blank export workbooks for a profile. Every
// configured sheet starts with a boilerplate line; targeted sheets also get
// their expected header row. Researchers use them to check a profile
// against the real export layout.

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/datadonation/internal/profile"
	"github.com/xuri/excelize/v2"
)

// templateHeaderRow is where the expected columns go, leaving a blank row
// under the boilerplate line as the exports do.
const templateHeaderRow = 3

// Template returns the template workbook for the named profile ("" for the
// default).
func (s *Service) Template(profileName string) (profile.Profile, []byte, error) {
	prof, err := s.ResolveProfile(profileName)
	if err != nil {
		return profile.Profile{}, nil, err
	}
	phrase := strings.Join(prof.ParamsOr(s.params).BoilerplatePhrases, ", ")
	data, err := TemplateWorkbook(prof, phrase)
	if err != nil {
		return profile.Profile{}, nil, err
	}
	return prof, data, nil
}

// TemplateWorkbook renders p as an xlsx file.
func TemplateWorkbook(p profile.Profile, phrase string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, spec := range p.Sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", spec.Name); err != nil {
				return nil, fmt.Errorf("template sheet %s: %w", spec.Name, err)
			}
		} else if _, err := f.NewSheet(spec.Name); err != nil {
			return nil, fmt.Errorf("template sheet %s: %w", spec.Name, err)
		}

		if phrase != "" {
			if err := f.SetCellStr(spec.Name, "A1", phrase+" "+profile.DisplayName(spec.Name)); err != nil {
				return nil, err
			}
		}

		cols := spec.ExpectedColumns()
		if len(cols) == 0 {
			continue
		}
		header := make([]any, len(cols))
		for j, c := range cols {
			header[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, templateHeaderRow)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(spec.Name, cell, &header); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}

// TemplateFileName returns the download name of a profile template.
func TemplateFileName(profileName string) string {
	return profileName + "_template.xlsx"
}
