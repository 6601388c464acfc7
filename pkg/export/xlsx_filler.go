package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXFiller writes values into named cells of an existing workbook template.
type XLSXFiller struct {
	templatePath string
	worksheet    string
}

// NewXLSXFiller constructs a filler bound to a template file and worksheet.
func NewXLSXFiller(templatePath, worksheet string) *XLSXFiller {
	if worksheet == "" {
		worksheet = "Plan1"
	}
	return &XLSXFiller{templatePath: templatePath, worksheet: worksheet}
}

// Fill opens the template, writes each cell value and returns the workbook bytes.
// Cells with empty values are skipped so template placeholders stay untouched.
func (f *XLSXFiller) Fill(cells map[string]string) ([]byte, error) {
	wb, err := excelize.OpenFile(f.templatePath)
	if err != nil {
		return nil, fmt.Errorf("open sheet template: %w", err)
	}
	defer wb.Close() //nolint:errcheck

	if idx, err := wb.GetSheetIndex(f.worksheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("worksheet %q not found in template", f.worksheet)
	}

	for cell, value := range cells {
		if value == "" {
			continue
		}
		if err := wb.SetCellStr(f.worksheet, cell, value); err != nil {
			return nil, fmt.Errorf("set cell %s: %w", cell, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := wb.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
