package fill

import (
	"log"

	"github.com/xuri/excelize/v2"

	"jusifang/pkg/ocr"
	"jusifang/pkg/sheet"
)

// Recognizer is the OCR capability the filler depends on. *ocr.Engine
// satisfies it; tests substitute canned text.
type Recognizer interface {
	ExtractFields(img []byte) (ocr.Fields, error)
}

// Result counts the rows the filler touched. Filled counts only rows where
// at least one cell was actually written.
type Result struct {
	Filled int
	Failed int
}

// Sheet OCRs every screenshot in the worksheet and fills the date, id and
// amount cells that are still empty. Existing values are never overwritten;
// rows with all three fields present skip OCR entirely. A failure on one
// row is logged and does not stop the rest. Cell mutations stay in memory
// until the caller saves the workbook.
func Sheet(f *excelize.File, sheetName string, hdr sheet.HeaderIndex, rec Recognizer, verbose bool) (Result, error) {
	imgs, err := sheet.Screenshots(f, sheetName, hdr.Screenshot)
	if err != nil {
		return Result{}, err
	}
	var res Result
	for _, im := range imgs {
		dateCell := cellName(hdr.Date, im.Row)
		idCell := cellName(hdr.WithdrawID, im.Row)
		amtCell := cellName(hdr.Amount, im.Row)

		curDate, _ := f.GetCellValue(sheetName, dateCell)
		curID, _ := f.GetCellValue(sheetName, idCell)
		curAmt, _ := f.GetCellValue(sheetName, amtCell)
		if curDate != "" && curID != "" && curAmt != "" {
			continue
		}

		fields, err := rec.ExtractFields(im.Data)
		if err != nil {
			res.Failed++
			log.Printf("ERROR: row %d: ocr/parse failed: %v", im.Row, err)
			continue
		}

		wrote := false
		if fields.HasDate && curDate == "" {
			_ = f.SetCellValue(sheetName, dateCell, fields.Date.Format("2006/01/02"))
			wrote = true
		}
		if fields.WithdrawID != "" && curID == "" {
			// SetCellStr keeps 16-22 digit ids from being coerced to floats
			_ = f.SetCellStr(sheetName, idCell, fields.WithdrawID)
			wrote = true
		}
		if fields.Amount != 0 && curAmt == "" {
			_ = f.SetCellValue(sheetName, amtCell, fields.Amount)
			wrote = true
		}
		if wrote {
			res.Filled++
		}
		if verbose {
			log.Printf("row %d: date=%s id=%s amount=%d", im.Row, fields.Date.Format("2006/01/02"), fields.WithdrawID, fields.Amount)
		}
	}
	return res, nil
}

func cellName(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}
