package sheet

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts accepted for existing date cells, tried in order. excelize
// surfaces cell values as display strings, so date-typed cells arrive in
// one of these forms too. The single-digit layouts also accept zero-padded
// values.
var dateLayouts = []string{"2006/1/2", "2006-1-2", "2006.1.2"}

// NormalizeDateCell interprets an existing cell value as a date.
func NormalizeDateCell(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, v); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// NormalizeAmountCell interprets an existing cell value as a whole amount.
// Thousands separators are stripped and any fractional part is truncated.
func NormalizeAmountCell(value string) (int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if s == "" {
		return 0, false
	}
	fv, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(fv), true
}
