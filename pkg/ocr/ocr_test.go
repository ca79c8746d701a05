package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/archive-api/pkg/resilience"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestExtractPlainText(t *testing.T) {
	engine := NewEngine(Config{Enabled: true}, nil, nil, nil)
	text, err := engine.Extract(context.Background(), "notes.TXT", []byte("Invoice 42  \r\n\r\n\r\nPaid"))
	require.NoError(t, err)
	assert.Equal(t, "Invoice 42\n\nPaid", text)
}

func TestExtractRejectsUnsupportedAndDisabled(t *testing.T) {
	engine := NewEngine(Config{Enabled: true, MaxFileSize: 4}, nil, nil, nil)
	_, err := engine.Extract(context.Background(), "a.zip", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = engine.Extract(context.Background(), "a.txt", []byte("too long"))
	assert.ErrorIs(t, err, ErrTooLarge)

	disabled := NewEngine(Config{}, nil, nil, nil)
	_, err = disabled.Extract(context.Background(), "a.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestExtractImageRunsTesseract(t *testing.T) {
	var gotName string
	var gotArgs []string
	var gotInput []byte
	runner := func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
		gotName, gotArgs, gotInput = name, args, stdin
		return []byte("EMPLOYEE CONTRACT\n"), nil
	}
	engine := NewEngine(Config{Enabled: true, TesseractPath: "/opt/tesseract", Languages: "eng+deu", PageSegMode: 6}, nil, runner, nil)

	text, err := engine.Extract(context.Background(), "scan.png", testPNG(t))
	require.NoError(t, err)
	assert.Equal(t, "EMPLOYEE CONTRACT", text)
	assert.Equal(t, "/opt/tesseract", gotName)
	assert.Equal(t, []string{"stdin", "stdout", "-l", "eng+deu", "--psm", "6"}, gotArgs)

	decoded, err := png.Decode(bytes.NewReader(gotInput))
	require.NoError(t, err)
	assert.Equal(t, minOCRWidth, decoded.Bounds().Dx())
}

func TestExtractImageRetriesThroughExecutor(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.RetryInitialBackoff = 0
	cfg.RetryMaxBackoff = 0
	exec := resilience.NewExecutor(cfg, nil)

	calls := 0
	runner := func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("resource temporarily unavailable")
		}
		return []byte("ok"), nil
	}
	engine := NewEngine(Config{Enabled: true}, exec, runner, nil)
	text, err := engine.Extract(context.Background(), "scan.jpg", testPNG(t))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, calls)
}

func TestExtractPDFTextLayer(t *testing.T) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Cell(40, 10, "Invoice")
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))

	engine := NewEngine(Config{Enabled: true}, nil, nil, nil)
	text, err := engine.Extract(context.Background(), "invoice.pdf", buf.Bytes())
	require.NoError(t, err)
	assert.Contains(t, text, "Invoice")
}

func TestExtractMalformedPDF(t *testing.T) {
	engine := NewEngine(Config{Enabled: true}, nil, nil, nil)
	_, err := engine.Extract(context.Background(), "broken.pdf", []byte("%PDF-1.4 garbage"))
	require.Error(t, err)
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports("a.PDF"))
	assert.True(t, Supports("scan.tiff"))
	assert.True(t, Supports("readme.md"))
	assert.False(t, Supports("archive.zip"))
}
