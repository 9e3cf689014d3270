//go:build ocr

package pdfextract

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// Accuracy on scanned congressional filings drops off sharply below 300 DPI.
const ocrDPI = 300

type ocrEngine struct{}

func newOCREngine() ocrEngine {
	return ocrEngine{}
}

func (ocrEngine) Available() bool {
	return true
}

// PageText renders one page to an image and runs tesseract over it.
// pageNum is 1-based.
func (ocrEngine) PageText(pdfData []byte, pageNum int) (string, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return "", fmt.Errorf("failed to open document for rendering: %w", err)
	}
	defer doc.Close()

	img, err := doc.ImageDPI(pageNum-1, ocrDPI)
	if err != nil {
		return "", fmt.Errorf("failed to render page %d: %w", pageNum, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode page %d: %w", pageNum, err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to load page %d into tesseract: %w", pageNum, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed on page %d: %w", pageNum, err)
	}
	return text, nil
}
