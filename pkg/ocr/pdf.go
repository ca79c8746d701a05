package ocr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads the embedded text layer. Scanned PDFs without one yield empty text.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		// The PDF parser panics on some malformed inputs.
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("ocr: malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("ocr: open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("ocr: read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("ocr: copy pdf text: %w", err)
	}
	return buf.String(), nil
}
