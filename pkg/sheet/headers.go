package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Required header labels on row 1 of a withdrawal workbook.
const (
	HeaderDate       = "日期"
	HeaderWithdrawID = "提款編號"
	HeaderAmount     = "提款金額"
	HeaderScreenshot = "提款截圖"
)

// PreferredSheet is used when present; otherwise the first sheet is taken.
const PreferredSheet = "Sheet1"

// headerRow is the row holding the column labels; data starts below it.
const headerRow = 1

// HeaderIndex maps the required headers to their 1-based column indexes.
// It is built once per worksheet; downstream code never re-reads row 1.
type HeaderIndex struct {
	Date       int
	WithdrawID int
	Amount     int
	Screenshot int
}

// TargetSheet returns the worksheet to operate on.
func TargetSheet(f *excelize.File) string {
	list := f.GetSheetList()
	for _, name := range list {
		if name == PreferredSheet {
			return name
		}
	}
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// BuildHeaderIndex reads row 1 and resolves the four required columns.
// The second return value lists headers that are absent; a non-empty list
// means the workbook is malformed for this pipeline.
func BuildHeaderIndex(f *excelize.File, sheetName string) (HeaderIndex, []string, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return HeaderIndex{}, nil, fmt.Errorf("read rows: %w", err)
	}
	byName := map[string]int{}
	if len(rows) > 0 {
		for i, v := range rows[0] {
			if v == "" {
				continue
			}
			if _, ok := byName[v]; !ok {
				byName[v] = i + 1
			}
		}
	}
	idx := HeaderIndex{
		Date:       byName[HeaderDate],
		WithdrawID: byName[HeaderWithdrawID],
		Amount:     byName[HeaderAmount],
		Screenshot: byName[HeaderScreenshot],
	}
	var missing []string
	for _, h := range []struct {
		name string
		col  int
	}{
		{HeaderDate, idx.Date},
		{HeaderWithdrawID, idx.WithdrawID},
		{HeaderAmount, idx.Amount},
		{HeaderScreenshot, idx.Screenshot},
	} {
		if h.col == 0 {
			missing = append(missing, h.name)
		}
	}
	return idx, missing, nil
}
