package sheet

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// Summary is the per-sheet aggregate used to name the archived workbook.
type Summary struct {
	NewestDate time.Time
	HasDate    bool
	Total      int64
}

// Summarize walks every data row and folds dates and amounts. Rows with an
// empty or unparsable amount contribute zero; the newest valid date wins.
func Summarize(f *excelize.File, sheetName string, hdr HeaderIndex) (Summary, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return Summary{}, fmt.Errorf("read rows: %w", err)
	}
	var sum Summary
	for r := headerRow + 1; r <= len(rows); r++ {
		if d, ok := NormalizeDateCell(cellAt(rows, r, hdr.Date)); ok {
			if !sum.HasDate || d.After(sum.NewestDate) {
				sum.NewestDate = d
				sum.HasDate = true
			}
		}
		if a, ok := NormalizeAmountCell(cellAt(rows, r, hdr.Amount)); ok {
			sum.Total += a
		}
	}
	return sum, nil
}

// cellAt reads a 1-based (row, col) from a GetRows result, tolerating the
// ragged row lengths excelize returns.
func cellAt(rows [][]string, row, col int) string {
	if row < 1 || row > len(rows) {
		return ""
	}
	r := rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return r[col-1]
}
