package ocr

import "strconv"

// looksLikeDate8 reports whether s is an 8-digit run that reads as a
// calendar date between 2000 and 2099 (e.g. 20240512). Slips embed such
// dates next to ids and amounts, so both parsers refuse them as candidates.
func looksLikeDate8(s string) bool {
	if len(s) != 8 || !allDigits(s) {
		return false
	}
	year, _ := strconv.Atoi(s[:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	return year >= 2000 && year <= 2099 && month >= 1 && month <= 12 && day >= 1 && day <= 31
}
