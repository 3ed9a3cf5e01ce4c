package lifecycle

import (
	"regexp"
	"strings"
)

// DefaultCore labels workbooks whose stem is nothing but dates and totals.
const DefaultCore = "個人卡提"

var (
	datePrefixRE   = regexp.MustCompile(`^\d{6}`)
	amountSuffixRE = regexp.MustCompile(`\d+$`)
)

// CoreName derives the logical account name from a workbook filename stem.
// Archived names are yymmdd+core+total, so the six-digit date prefix and
// the trailing digit run are shed, then surrounding spaces, dashes and
// underscores trimmed. Stripping repeats until the name is stable, so the
// function is idempotent even for stems that are mostly digits.
func CoreName(stem string) string {
	s := stem
	for {
		next := datePrefixRE.ReplaceAllString(s, "")
		next = amountSuffixRE.ReplaceAllString(next, "")
		next = strings.Trim(next, " -_")
		if next == s {
			break
		}
		s = next
	}
	if s == "" {
		return DefaultCore
	}
	return s
}
