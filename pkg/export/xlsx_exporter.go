package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Export"

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter { return &XLSXExporter{} }

func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("xlsx"); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return nil, fmt.Errorf("open stream writer: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	headerRow := make([]interface{}, len(data.Headers))
	for i, h := range data.Headers {
		headerRow[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for r, row := range data.Rows {
		values := make([]interface{}, len(data.Headers))
		for i, h := range data.Headers {
			values[i] = row[h]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush workbook: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
