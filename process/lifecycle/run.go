package lifecycle

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"jusifang/pkg/sheet"
	"jusifang/process/fill"
)

// Status is the terminal state a workbook reaches in one run.
type Status int

const (
	StatusDryRun Status = iota
	StatusSkippedTemplate
	StatusSkippedMalformed
	StatusUnreadableSummary
	StatusDestinationCollision
	StatusArchiveFailed
	StatusArchived
)

func (s Status) String() string {
	switch s {
	case StatusDryRun:
		return "dry-run"
	case StatusSkippedTemplate:
		return "skipped (template)"
	case StatusSkippedMalformed:
		return "skipped (malformed)"
	case StatusUnreadableSummary:
		return "unreadable date/amount"
	case StatusDestinationCollision:
		return "destination collision"
	case StatusArchiveFailed:
		return "archive failed"
	case StatusArchived:
		return "archived and replenished"
	}
	return "unknown"
}

// Runner drives the per-workbook state machine over a base folder. One
// workbook is opened, filled, saved and moved to completion before the next
// begins; a failure in one file never stops the rest.
type Runner struct {
	BaseDir  string
	Registry *Registry
	Rec      fill.Recognizer
	DryRun   bool
	Verbose  bool
}

// ListWorkbooks returns the xlsx files in dir, excluding Excel lock files.
func ListWorkbooks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// Run executes one batch: learn template sources from every clean workbook
// in the base folder, then process each workbook to completion.
func (r *Runner) Run() error {
	files, err := ListWorkbooks(r.BaseDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Printf("no .xlsx files found in %s", r.BaseDir)
		return nil
	}

	// dry-run must leave the folder untouched, so no templates are learned
	if !r.DryRun {
		for _, name := range files {
			if err := r.Registry.Learn(filepath.Join(r.BaseDir, name)); err != nil {
				log.Printf("ERROR: %v", err)
			}
		}
	}

	log.Printf("found %d .xlsx file(s) in %s", len(files), r.BaseDir)
	for _, name := range files {
		status, err := r.ProcessWorkbook(filepath.Join(r.BaseDir, name))
		if err != nil {
			log.Printf("ERROR: %v", err)
		}
		if r.Verbose {
			log.Printf("%s -> %s", name, status)
		}
	}
	return nil
}

// ProcessWorkbook runs one workbook through the state machine:
// open -> validate headers -> fill from screenshots -> summarize ->
// save+move into the per-core folder -> delete original -> replenish.
// Every destructive step is preceded by the safety check that makes the
// dangerous alternative impossible: no duplicate archive names, no
// deletion before the archive landed, no replenish over a working file.
func (r *Runner) ProcessWorkbook(path string) (Status, error) {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	log.Printf("=== processing %s ===", name)

	f, err := excelize.OpenFile(path)
	if err != nil {
		if isLocked(err) {
			return StatusSkippedMalformed, fmt.Errorf("open %s: %w (close it in Excel and rerun)", name, ErrLocked)
		}
		return StatusSkippedMalformed, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	sheetName := sheet.TargetSheet(f)
	hdr, missing, err := sheet.BuildHeaderIndex(f, sheetName)
	if err != nil {
		return StatusSkippedMalformed, fmt.Errorf("%s: headers: %w", name, err)
	}
	if len(missing) > 0 {
		return StatusSkippedMalformed, fmt.Errorf("%s: missing required headers: %s", name, strings.Join(missing, ", "))
	}

	has, err := sheet.HasScreenshots(f, sheetName, hdr.Screenshot)
	if err != nil {
		return StatusSkippedMalformed, fmt.Errorf("%s: screenshots: %w", name, err)
	}
	if !has {
		log.Printf("no screenshots in %s -> skipped (template or empty workbook)", sheet.HeaderScreenshot)
		return StatusSkippedTemplate, nil
	}

	if r.DryRun {
		log.Printf("dry-run: %s would be filled and archived under core %q", name, CoreName(stem))
		return StatusDryRun, nil
	}

	res, err := fill.Sheet(f, sheetName, hdr, r.Rec, r.Verbose)
	if err != nil {
		return StatusSkippedMalformed, fmt.Errorf("%s: fill: %w", name, err)
	}

	sum, err := sheet.Summarize(f, sheetName, hdr)
	if err != nil {
		return StatusUnreadableSummary, fmt.Errorf("%s: summarize: %w", name, err)
	}
	if !sum.HasDate || sum.Total <= 0 {
		return StatusUnreadableSummary, fmt.Errorf(
			"%s: newest date or total amount missing; confirm the slips carry a readable date and negative withdrawal amount", name)
	}

	core := CoreName(stem)
	finished := sum.NewestDate.Format("060102") + core + strconv.FormatInt(sum.Total, 10) + ".xlsx"
	destDir := filepath.Join(r.BaseDir, core)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return StatusArchiveFailed, fmt.Errorf("%s: create folder %s: %w", name, core, err)
	}
	destPath := filepath.Join(destDir, finished)
	if _, err := os.Stat(destPath); err == nil {
		return StatusDestinationCollision, fmt.Errorf(
			"%s: finished workbook already exists: %s/%s; refusing to overwrite, file left untouched", name, core, finished)
	}

	// save to a temp path in the base folder first, then move; either
	// failure leaves the original working file in place
	tmpPath := filepath.Join(r.BaseDir, finished)
	if err := f.SaveAs(tmpPath); err != nil {
		if isLocked(err) {
			return StatusArchiveFailed, fmt.Errorf("save %s: %w (close it and rerun)", finished, ErrLocked)
		}
		return StatusArchiveFailed, fmt.Errorf("save %s: %w", finished, err)
	}
	if err := moveFile(tmpPath, destPath); err != nil {
		return StatusArchiveFailed, fmt.Errorf("move %s to %s: %w (original left in place)", finished, core, err)
	}
	log.Printf("archived finished workbook -> %s/%s", core, finished)

	// archive landed; deleting the original is best-effort from here on
	_ = f.Close()
	if err := os.Remove(path); err != nil {
		log.Printf("ERROR: could not delete working file %s: %v (delete it manually)", name, err)
	} else {
		log.Printf("removed working file: %s", name)
	}

	if err := r.Registry.Replenish(core, filepath.Join(r.BaseDir, core+".xlsx")); err != nil {
		log.Printf("ERROR: replenish %s: %v", core, err)
		if errors.Is(err, ErrMissingSource) {
			log.Printf("fix: put the clean default template for %q in the base folder once (no screenshots) and rerun; it will be learned automatically", core)
		}
	}

	log.Printf("done %s: filled=%d failed=%d total=%d newest=%s",
		name, res.Filled, res.Failed, sum.Total, sum.NewestDate.Format("2006/01/02"))
	return StatusArchived, nil
}

// moveFile renames src to dst, falling back to copy+remove across volumes.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
