// Package export renders tabular datasets in the formats offered by the archive export endpoint.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat normalises a user supplied format. Empty means JSON.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Extension returns the file extension without a dot.
func (f Format) Extension() string {
	return string(f)
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

func (d Dataset) validate(kind string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", kind)
	}
	return nil
}

// Renderer encodes a dataset.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// JSONExporter renders rows as a JSON array of objects keyed by header.
type JSONExporter struct{}

func NewJSONExporter() *JSONExporter { return &JSONExporter{} }

func (e *JSONExporter) Render(data Dataset) ([]byte, error) {
	rows := data.Rows
	if rows == nil {
		rows = []map[string]string{}
	}
	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json export: %w", err)
	}
	return out, nil
}

// Registry resolves a renderer per format.
type Registry struct {
	renderers map[Format]Renderer
}

// NewRegistry wires the built in renderers.
func NewRegistry() *Registry {
	return &Registry{renderers: map[Format]Renderer{
		FormatJSON: NewJSONExporter(),
		FormatCSV:  NewCSVExporter(),
		FormatXLSX: NewXLSXExporter(),
		FormatPDF:  NewPDFExporter(),
	}}
}

// Render encodes data using the renderer registered for format.
func (r *Registry) Render(format Format, data Dataset) ([]byte, error) {
	renderer, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("no renderer for format %q", format)
	}
	return renderer.Render(data)
}
