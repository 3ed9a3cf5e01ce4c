package ocr

import "errors"

// ErrNoText is returned when OCR produces no usable text for an image.
var ErrNoText = errors.New("no text recognized")
