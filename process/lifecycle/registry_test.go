package lifecycle

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"jusifang/pkg/sheet"
)

// writeBook builds a withdrawal workbook on disk: required headers on row 1,
// the given extra cells, and screenshots anchored at D<row> for picRows.
func writeBook(t *testing.T, path string, picRows []int, cells map[string]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, h := range []string{sheet.HeaderDate, sheet.HeaderWithdrawID, sheet.HeaderAmount, sheet.HeaderScreenshot} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellStr(sheet.PreferredSheet, cell, h); err != nil {
			t.Fatalf("set header: %v", err)
		}
	}
	for cell, v := range cells {
		if err := f.SetCellStr(sheet.PreferredSheet, cell, v); err != nil {
			t.Fatalf("set %s: %v", cell, err)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	for _, row := range picRows {
		cell, _ := excelize.CoordinatesToCellName(4, row)
		err := f.AddPictureFromBytes(sheet.PreferredSheet, cell, &excelize.Picture{
			Extension: ".png",
			File:      buf.Bytes(),
			Format:    &excelize.GraphicOptions{},
		})
		if err != nil {
			t.Fatalf("add picture: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

func TestLearnRegistersCleanTemplate(t *testing.T) {
	base := t.TempDir()
	writeBook(t, filepath.Join(base, "個人卡提.xlsx"), nil, nil)
	reg := NewRegistry(base)

	if err := reg.Learn(filepath.Join(base, "個人卡提.xlsx")); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if _, err := os.Stat(reg.SourcePath("個人卡提")); err != nil {
		t.Fatalf("source not registered: %v", err)
	}
}

func TestLearnFirstWriteWins(t *testing.T) {
	base := t.TempDir()
	first := filepath.Join(base, "個人卡提.xlsx")
	second := filepath.Join(base, "個人卡提2.xlsx")
	writeBook(t, first, nil, map[string]string{"B2": "original"})
	writeBook(t, second, nil, map[string]string{"B2": "imposter"})
	reg := NewRegistry(base)

	if err := reg.Learn(first); err != nil {
		t.Fatalf("learn first: %v", err)
	}
	if err := reg.Learn(second); err != nil {
		t.Fatalf("learn second: %v", err)
	}

	f, err := excelize.OpenFile(reg.SourcePath("個人卡提"))
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue(sheet.PreferredSheet, "B2"); v != "original" {
		t.Fatalf("registered source was clobbered: B2=%q", v)
	}
}

func TestLearnIgnoresWorkingBooks(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "馬.xlsx")
	writeBook(t, path, []int{2}, nil)
	reg := NewRegistry(base)

	if err := reg.Learn(path); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if _, err := os.Stat(reg.SourcePath("馬")); err == nil {
		t.Fatalf("working book must not become a template source")
	}
}

func TestLearnIgnoresRegistryDir(t *testing.T) {
	base := t.TempDir()
	reg := NewRegistry(base)
	if err := os.MkdirAll(filepath.Join(base, SourcesDirName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	inside := filepath.Join(base, SourcesDirName, "馬.xlsx")
	writeBook(t, inside, nil, nil)

	if err := reg.Learn(inside); err != nil {
		t.Fatalf("learn: %v", err)
	}
}

func TestReplenishMissingSource(t *testing.T) {
	base := t.TempDir()
	reg := NewRegistry(base)
	err := reg.Replenish("馬", filepath.Join(base, "馬.xlsx"))
	if !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource got %v", err)
	}
}

func TestReplenishRefusesWorkingTarget(t *testing.T) {
	base := t.TempDir()
	tmpl := filepath.Join(base, "馬.xlsx")
	writeBook(t, tmpl, nil, nil)
	reg := NewRegistry(base)
	if err := reg.Learn(tmpl); err != nil {
		t.Fatalf("learn: %v", err)
	}

	// the target now holds a screenshot: an in-progress working file
	target := filepath.Join(base, "馬.xlsx")
	writeBook(t, target, []int{2}, nil)
	before := readFile(t, target)

	err := reg.Replenish("馬", target)
	if !errors.Is(err, ErrUnsafeOverwrite) {
		t.Fatalf("expected ErrUnsafeOverwrite got %v", err)
	}
	if !bytes.Equal(before, readFile(t, target)) {
		t.Fatalf("target was modified despite refusal")
	}
}

func TestReplenishCopiesSourceVerbatim(t *testing.T) {
	base := t.TempDir()
	tmpl := filepath.Join(base, "馬.xlsx")
	writeBook(t, tmpl, nil, map[string]string{"B2": "default"})
	reg := NewRegistry(base)
	if err := reg.Learn(tmpl); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if err := os.Remove(tmpl); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := reg.Replenish("馬", tmpl); err != nil {
		t.Fatalf("replenish: %v", err)
	}
	if !bytes.Equal(readFile(t, reg.SourcePath("馬")), readFile(t, tmpl)) {
		t.Fatalf("replenished file is not a byte copy of the source")
	}
}

func TestIsLockedClassification(t *testing.T) {
	lockedErr := &fs.PathError{Op: "open", Path: "馬.xlsx", Err: fs.ErrPermission}
	if !isLocked(lockedErr) {
		t.Fatalf("permission error must classify as locked")
	}
	if isLocked(errors.New("disk full")) {
		t.Fatalf("generic error must not classify as locked")
	}
	if isLocked(nil) {
		t.Fatalf("nil must not classify as locked")
	}
}

func TestReplenishOverwritesCleanTarget(t *testing.T) {
	base := t.TempDir()
	tmpl := filepath.Join(base, "馬.xlsx")
	writeBook(t, tmpl, nil, map[string]string{"B2": "default"})
	reg := NewRegistry(base)
	if err := reg.Learn(tmpl); err != nil {
		t.Fatalf("learn: %v", err)
	}

	// stale but clean target gets reverted
	writeBook(t, tmpl, nil, map[string]string{"B2": "stale edits"})
	if err := reg.Replenish("馬", tmpl); err != nil {
		t.Fatalf("replenish: %v", err)
	}
	if !bytes.Equal(readFile(t, reg.SourcePath("馬")), readFile(t, tmpl)) {
		t.Fatalf("clean target was not reverted to the source copy")
	}
}
