//go:build windows

package lifecycle

import (
	"errors"

	"golang.org/x/sys/windows"
)

// sharingViolation matches the errnos Excel holds on an open workbook.
func sharingViolation(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) ||
		errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
