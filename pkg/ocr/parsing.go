package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRE = regexp.MustCompile(`20\d{2}/\d{2}/\d{2}`)

	// Labeled id capture: the label, optional punctuation, then a digit run
	// that may carry OCR-inserted whitespace (15 to 31 raw characters).
	labeledIDRE = regexp.MustCompile(`提款編號\s*[:：]?\s*([0-9][0-9\s]{14,30})`)

	// Maximal whitespace-tolerant digit run, used by the unlabeled id scan.
	digitRunRE = regexp.MustCompile(`[0-9][0-9\s]*[0-9]`)

	// Negative numeral with optional currency token, as printed on slips.
	// Both the ASCII hyphen and the Unicode minus appear in OCR output.
	negAmountRE = regexp.MustCompile(`[-−]\s*(?:NT\$|NT|新台幣)?\s*([0-9][0-9,.]*)`)
)

// amountLabels are the line labels that mark the withdrawal total on a slip.
var amountLabels = []string{"提領總額", "提款金額", "提領金額"}

// ParseDate returns the first YYYY/MM/DD date found in OCR text. The match
// must survive strict calendar validation.
func ParseDate(text string) (time.Time, bool) {
	m := dateRE.FindString(text)
	if m == "" {
		return time.Time{}, false
	}
	d, err := time.Parse("2006/01/02", m)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseWithdrawID extracts the withdrawal reference number. The labeled
// capture wins; without a label every maximal digit run of stripped length
// 16-22 is a candidate and the longest one is taken. Runs that read as an
// 8-digit date are refused.
func ParseWithdrawID(text string) (string, bool) {
	if m := labeledIDRE.FindStringSubmatch(text); len(m) == 2 {
		digits := stripSpaces(m[1])
		if len(digits) >= 16 && len(digits) <= 22 && allDigits(digits) && !looksLikeDate8(digits) {
			return digits, true
		}
	}

	var candidates []string
	for _, run := range digitRunRE.FindAllString(text, -1) {
		digits := stripSpaces(run)
		if len(digits) < 16 || len(digits) > 22 || looksLikeDate8(digits) {
			continue
		}
		candidates = append(candidates, digits)
	}
	if len(candidates) == 0 {
		return "", false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c) > len(best) {
			best = c
		}
	}
	return best, true
}

// ParseAmount extracts the withdrawal amount. Slips record it as a negative
// figure; the returned value is the absolute integer part and is never zero.
// A line carrying one of the amount labels wins over the whole-text scan.
// The fallback keeps the largest magnitude among surviving candidates, which
// can misfire when a slip shows several large negative figures; the correct
// tie-break is ambiguous from OCR text alone.
func ParseAmount(text string) (int64, bool) {
	for _, line := range strings.Split(text, "\n") {
		clean := strings.ReplaceAll(line, " ", "")
		if !hasAmountLabel(clean) {
			continue
		}
		m := negAmountRE.FindStringSubmatch(line)
		if len(m) != 2 {
			continue
		}
		if v, ok := amountFromNumeral(m[1]); ok {
			return v, true
		}
	}

	var best int64
	found := false
	for _, m := range negAmountRE.FindAllStringSubmatch(text, -1) {
		numeral := strings.TrimSpace(strings.ReplaceAll(m[1], ",", ""))
		if numeral == "" {
			continue
		}
		if len(numeral) > 9 {
			// too many digits for money; this is an id fragment
			continue
		}
		if looksLikeDate8(numeral) {
			continue
		}
		v, ok := amountFromNumeral(m[1])
		if !ok || v > 2_000_000 {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

func hasAmountLabel(line string) bool {
	for _, l := range amountLabels {
		if strings.Contains(line, l) {
			return true
		}
	}
	return false
}

// amountFromNumeral normalizes a captured numeral: thousands separators are
// stripped and a fractional part is truncated, not rounded. Zero is refused.
func amountFromNumeral(raw string) (int64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	if v < 0 {
		v = -v
	}
	return v, true
}
