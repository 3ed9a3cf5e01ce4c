package ocr

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage covers the mixed traditional-Chinese + Latin text printed
// on withdrawal slips. Use plain "eng" only when chi_tra is not installed.
const DefaultLanguage = "chi_tra+eng"

// Config carries the engine settings: the tesseract language packs and an
// optional tessdata directory override. Injected at construction; there is
// no ambient global state.
type Config struct {
	Language       string
	TessdataPrefix string
	Verbose        bool
}

// Engine wraps tesseract with slip-oriented preprocessing.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	return &Engine{cfg: cfg}
}

// Fields are the typed values extracted from one slip image. A zero or
// empty field means the parser found no usable candidate for it.
type Fields struct {
	Date       time.Time
	HasDate    bool
	WithdrawID string
	Amount     int64
}

// RecognizeBytes runs preprocessing + tesseract over an encoded image and
// returns the raw OCR text.
func (e *Engine) RecognizeBytes(img []byte) (string, error) {
	prepped, err := preprocessSlip(img)
	if err != nil {
		// fall back to the raw bytes; tesseract may still cope
		prepped = img
	}

	client := gosseract.NewClient()
	defer client.Close()
	if e.cfg.TessdataPrefix != "" {
		_ = client.SetTessdataPrefix(e.cfg.TessdataPrefix)
	}
	if err := client.SetLanguage(e.cfg.Language); err != nil {
		return "", fmt.Errorf("set language %q: %w", e.cfg.Language, err)
	}
	if err := client.SetImageFromBytes(prepped); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// ExtractFields OCRs one slip image and runs the field parsers on the text.
func (e *Engine) ExtractFields(img []byte) (Fields, error) {
	text, err := e.RecognizeBytes(img)
	if err != nil {
		return Fields{}, err
	}
	if e.cfg.Verbose {
		log.Printf("ocr text snippet=%q", snippet(text, 160))
	}
	var f Fields
	f.Date, f.HasDate = ParseDate(text)
	f.WithdrawID, _ = ParseWithdrawID(text)
	f.Amount, _ = ParseAmount(text)
	return f, nil
}
