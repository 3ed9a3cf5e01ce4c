package sheet

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

// RowImage pairs an embedded screenshot with the worksheet row it anchors to.
type RowImage struct {
	Row  int
	Data []byte
}

// Screenshots returns the embedded images anchored in the screenshot column,
// lowest row first. Images in other columns and on the header row are
// skipped; a cell whose anchor cannot be resolved is ignored rather than
// failing the sheet.
func Screenshots(f *excelize.File, sheetName string, screenshotCol int) ([]RowImage, error) {
	cells, err := f.GetPictureCells(sheetName)
	if err != nil {
		return nil, fmt.Errorf("list picture cells: %w", err)
	}
	var out []RowImage
	for _, cell := range cells {
		col, row, err := excelize.CellNameToCoordinates(cell)
		if err != nil {
			continue
		}
		if col != screenshotCol || row == headerRow {
			continue
		}
		pics, err := f.GetPictures(sheetName, cell)
		if err != nil || len(pics) == 0 {
			continue
		}
		out = append(out, RowImage{Row: row, Data: pics[0].File})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out, nil
}

// HasScreenshots reports whether any image anchors into the screenshot
// column. A workbook without any is a template (or freshly replenished)
// and is skipped by the pipeline.
func HasScreenshots(f *excelize.File, sheetName string, screenshotCol int) (bool, error) {
	imgs, err := Screenshots(f, sheetName, screenshotCol)
	if err != nil {
		return false, err
	}
	return len(imgs) > 0, nil
}
