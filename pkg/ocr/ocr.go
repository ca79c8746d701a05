// Package ocr extracts searchable text from archived files.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/pkg/resilience"
)

var (
	// ErrUnsupported marks file types no extractor handles.
	ErrUnsupported = errors.New("ocr: unsupported file type")
	// ErrTooLarge marks files above the configured OCR size limit.
	ErrTooLarge = errors.New("ocr: file exceeds size limit")
	// ErrDisabled is returned when OCR is switched off.
	ErrDisabled = errors.New("ocr: disabled")
)

// Config configures the engine.
type Config struct {
	Enabled       bool
	TesseractPath string
	Languages     string
	PageSegMode   int
	MaxFileSize   int64
	Timeout       time.Duration
}

// CommandRunner executes an external binary feeding stdin and returning stdout.
type CommandRunner func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error)

// Engine routes files to PDF text extraction, image OCR or plain text decoding.
type Engine struct {
	cfg      Config
	executor *resilience.Executor
	runner   CommandRunner
	logger   *zap.Logger
}

// NewEngine constructs an Engine. A nil runner executes real processes.
func NewEngine(cfg Config, executor *resilience.Executor, runner CommandRunner, logger *zap.Logger) *Engine {
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = "/usr/bin/tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if runner == nil {
		runner = execRunner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, executor: executor, runner: runner, logger: logger}
}

var (
	imageExtensions = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}, ".tif": {}, ".tiff": {}, ".bmp": {}, ".gif": {}}
	textExtensions  = map[string]struct{}{".txt": {}, ".md": {}, ".csv": {}, ".json": {}, ".xml": {}, ".html": {}, ".htm": {}}
)

// Supports reports whether the file name has an extension the engine can process.
func Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		return true
	}
	if _, ok := imageExtensions[ext]; ok {
		return true
	}
	_, ok := textExtensions[ext]
	return ok
}

// Extract returns normalized text for the file.
func (e *Engine) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if !e.cfg.Enabled {
		return "", ErrDisabled
	}
	if e.cfg.MaxFileSize > 0 && int64(len(data)) > e.cfg.MaxFileSize {
		return "", ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		text string
		err  error
	)
	switch {
	case ext == ".pdf":
		text, err = extractPDF(data)
	case isImage(ext):
		text, err = e.extractImage(ctx, data)
	case isText(ext):
		if !utf8.Valid(data) {
			return "", fmt.Errorf("ocr: %s is not valid UTF-8", filename)
		}
		text = string(data)
	default:
		return "", ErrUnsupported
	}
	if err != nil {
		return "", err
	}
	return normalize(text), nil
}

func (e *Engine) extractImage(ctx context.Context, data []byte) (string, error) {
	prepared, err := Preprocess(data)
	if err != nil {
		return "", err
	}
	args := []string{"stdin", "stdout", "-l", e.cfg.Languages, "--psm", strconv.Itoa(e.cfg.PageSegMode)}

	var out []byte
	call := func(callCtx context.Context) error {
		runCtx, cancel := context.WithTimeout(callCtx, e.cfg.Timeout)
		defer cancel()
		result, runErr := e.runner(runCtx, e.cfg.TesseractPath, args, prepared)
		if runErr != nil {
			return runErr
		}
		out = result
		return nil
	}
	if e.executor != nil {
		err = e.executor.Execute(ctx, "ocr.tesseract", call, classify)
	} else {
		err = call(ctx)
	}
	if err != nil {
		e.logger.Warn("tesseract failed", zap.Error(err))
		return "", fmt.Errorf("ocr: tesseract: %w", err)
	}
	return string(out), nil
}

func classify(err error) resilience.ErrorClassification {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// A non-zero exit means tesseract rejected the input; retrying will not help.
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

func execRunner(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func isImage(ext string) bool {
	_, ok := imageExtensions[ext]
	return ok
}

func isText(ext string) bool {
	_, ok := textExtensions[ext]
	return ok
}

// normalize collapses runs of blank lines and trims trailing spaces.
func normalize(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\f")
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
