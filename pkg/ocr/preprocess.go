package ocr

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// minOCRWidth is the width small scans are upscaled to before recognition.
const minOCRWidth = 1200

// Preprocess converts an image to a high-contrast grayscale PNG suited to tesseract.
func Preprocess(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("ocr: decode image: %w", err)
	}
	if img.Bounds().Dx() < minOCRWidth {
		img = imaging.Resize(img, minOCRWidth, 0, imaging.Lanczos)
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 25)
	gray = imaging.Sharpen(gray, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("ocr: encode image: %w", err)
	}
	return buf.Bytes(), nil
}
