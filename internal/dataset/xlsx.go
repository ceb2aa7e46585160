package dataset

import (
	"fmt"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the first sheet of a workbook into rows keyed by the header
// row. Cells are coerced the same way as delimited text.
func ReadXLSX(path string) ([]map[string]any, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	log.Printf("[DataReader] %s read (%d rows)", sheets[0], len(rows))
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	out := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := make(map[string]any, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(row) {
				m[h] = Coerce(row[i])
			} else {
				m[h] = nil
			}
		}
		out = append(out, m)
	}
	return out, nil
}
