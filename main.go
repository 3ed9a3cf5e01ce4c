package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"jusifang/pkg/ocr"
	"jusifang/process/lifecycle"
)

func main() {
	dir := flag.String("dir", ".", "base folder holding withdrawal workbooks")
	lang := flag.String("lang", "", "tesseract language packs (default chi_tra+eng, or OCR_LANG)")
	tessdata := flag.String("tessdata", "", "tessdata directory override (or TESSDATA_PREFIX)")
	watch := flag.Bool("watch", false, "keep running and reprocess when workbooks change")
	dryRun := flag.Bool("dry-run", false, "report what each workbook would do without writing")
	verbose := flag.Bool("verbose", false, "verbose per-row logging")
	flag.Parse()

	// Auto-load ./.env if present before reading vars
	loadDotEnv()
	language := *lang
	if language == "" {
		language = os.Getenv("OCR_LANG")
	}
	prefix := *tessdata
	if prefix == "" {
		prefix = os.Getenv("TESSDATA_PREFIX")
	}

	engine := ocr.NewEngine(ocr.Config{Language: language, TessdataPrefix: prefix, Verbose: *verbose})

	runner := &lifecycle.Runner{
		BaseDir:  *dir,
		Registry: lifecycle.NewRegistry(*dir),
		Rec:      engine,
		DryRun:   *dryRun,
		Verbose:  *verbose,
	}
	if err := runner.Run(); err != nil {
		log.Fatalf("run: %v", err)
	}

	if *watch {
		watchLoop(runner, *dir)
	}
}

// watchLoop reruns the batch whenever xlsx files land in or change inside
// dir. Events are debounced so Excel's multi-step saves trigger one run;
// batches stay strictly sequential.
func watchLoop(runner *lifecycle.Runner, dir string) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatalf("watcher: %v", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		log.Fatalf("watch %s: %v", dir, err)
	}
	log.Printf("watching %s for new workbooks", dir)

	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
				continue
			}
			pending = time.After(2 * time.Second)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("watch error: %v", err)
		case <-pending:
			pending = nil
			if err := runner.Run(); err != nil {
				log.Printf("ERROR: run: %v", err)
			}
		}
	}
}

// loadDotEnv loads key=value pairs from a local .env file into the
// environment without overwriting variables that are already set. Lines
// starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
