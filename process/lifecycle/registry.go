package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"jusifang/pkg/sheet"
)

// SourcesDirName is the registry folder under the base dir holding one
// clean template workbook per core.
const SourcesDirName = "_template_sources"

// Replenishment failure reasons. Archiving never rolls back on any of these.
var (
	ErrMissingSource      = errors.New("template source missing")
	ErrUnsafeOverwrite    = errors.New("target still holds screenshots")
	ErrVerificationFailed = errors.New("cannot verify target workbook")
	ErrLocked             = errors.New("file locked by another program")
)

// Registry persists one clean template workbook per core under
// <base>/_template_sources. First write wins; the tool never deletes or
// overwrites a registered source. The folder itself is created on the
// first learned source, so a registry that never learns writes nothing.
type Registry struct {
	dir string
}

func NewRegistry(baseDir string) *Registry {
	return &Registry{dir: filepath.Join(baseDir, SourcesDirName)}
}

// SourcePath returns where the template source for core lives on disk.
func (r *Registry) SourcePath(core string) string {
	return filepath.Join(r.dir, core+".xlsx")
}

// IsCleanTemplate reports whether the open workbook has all required
// headers and no screenshots, i.e. it can seed the registry for its core.
func IsCleanTemplate(f *excelize.File) bool {
	name := sheet.TargetSheet(f)
	hdr, missing, err := sheet.BuildHeaderIndex(f, name)
	if err != nil || len(missing) > 0 {
		return false
	}
	has, err := sheet.HasScreenshots(f, name, hdr.Screenshot)
	return err == nil && !has
}

// Learn registers path as the template source for its core when it is a
// clean template and no source exists yet. Workbooks already inside the
// registry folder are ignored; unreadable workbooks are simply not
// templates.
func (r *Registry) Learn(path string) error {
	if insideDir(path, r.dir) {
		return nil
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	core := CoreName(stem)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil
	}
	clean := IsCleanTemplate(f)
	_ = f.Close()
	if !clean {
		return nil
	}

	src := r.SourcePath(core)
	if _, err := os.Stat(src); err == nil {
		return nil // first write wins
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", SourcesDirName, err)
	}
	if err := copyFile(path, src); err != nil {
		return fmt.Errorf("learn template for %q: %w", core, err)
	}
	log.Printf("learned template source: %s/%s.xlsx (from %s)", SourcesDirName, core, filepath.Base(path))
	return nil
}

// Replenish copies the registered source for core over targetPath
// (normally <base>/<core>.xlsx). An existing target is inspected first: a
// workbook that still holds screenshots is an in-progress working file and
// is never destroyed; one that cannot be inspected is left alone too.
func (r *Registry) Replenish(core, targetPath string) error {
	src := r.SourcePath(core)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: %s/%s.xlsx", ErrMissingSource, SourcesDirName, core)
	}

	if _, err := os.Stat(targetPath); err == nil {
		if err := verifyOverwritable(targetPath); err != nil {
			return err
		}
		if err := os.Remove(targetPath); err != nil {
			if isLocked(err) {
				return fmt.Errorf("remove %s: %w", filepath.Base(targetPath), ErrLocked)
			}
			return fmt.Errorf("remove %s: %w", filepath.Base(targetPath), err)
		}
	}

	if err := copyFile(src, targetPath); err != nil {
		if isLocked(err) {
			return fmt.Errorf("write %s: %w", filepath.Base(targetPath), ErrLocked)
		}
		return fmt.Errorf("replenish %q: %w", core, err)
	}
	log.Printf("replenished template: %s.xlsx (from %s/%s.xlsx)", core, SourcesDirName, core)
	return nil
}

// verifyOverwritable opens an existing replenish target and refuses the
// overwrite when it still carries screenshots. A target whose headers are
// gone is treated as overwritable; only inspection failures block.
func verifyOverwritable(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if isLocked(err) {
			return fmt.Errorf("open %s: %w", filepath.Base(path), ErrLocked)
		}
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	defer f.Close()
	name := sheet.TargetSheet(f)
	hdr, missing, err := sheet.BuildHeaderIndex(f, name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if len(missing) > 0 || hdr.Screenshot == 0 {
		return nil
	}
	has, err := sheet.HasScreenshots(f, name, hdr.Screenshot)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if has {
		return fmt.Errorf("%w: %s", ErrUnsafeOverwrite, filepath.Base(path))
	}
	return nil
}

// isLocked treats permission-style failures as the file being held open by
// another program; Excel keeps workbooks locked while they are open. On
// Windows the lock surfaces as a sharing violation rather than a
// permission error. No retry: the operator closes the file and reruns.
func isLocked(err error) bool {
	return errors.Is(err, fs.ErrPermission) || sharingViolation(err)
}

func insideDir(path, dir string) bool {
	ap, err1 := filepath.Abs(filepath.Dir(path))
	ad, err2 := filepath.Abs(dir)
	return err1 == nil && err2 == nil && ap == ad
}

// copyFile writes dst as an exact byte copy of src.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
