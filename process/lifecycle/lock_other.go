//go:build !windows

package lifecycle

func sharingViolation(error) bool { return false }
