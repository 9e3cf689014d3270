//go:build !ocr

package pdfextract

import (
	"errors"
)

// ErrOCRUnavailable is returned by builds compiled without the ocr tag.
// Scanned pages then surface as near-empty text instead of failing the
// whole document.
var ErrOCRUnavailable = errors.New("ocr_unavailable")

type ocrEngine struct{}

func newOCREngine() ocrEngine {
	return ocrEngine{}
}

func (ocrEngine) Available() bool {
	return false
}

func (ocrEngine) PageText(pdfData []byte, pageNum int) (string, error) {
	return "", ErrOCRUnavailable
}
