package excel

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// TraceReader reads trace workbooks back into numeric tables.
type TraceReader struct {
	filePath string
	cfg      WorkbookConfig
}

// NewTraceReader creates a reader for a workbook written with cfg.
func NewTraceReader(filePath string, cfg WorkbookConfig) *TraceReader {
	return &TraceReader{filePath: filePath, cfg: cfg}
}

// ReadTraces loads both sheets of the workbook.
func (r *TraceReader) ReadTraces() (*Traces, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("trace workbook not found: %s", r.filePath)
	}

	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace workbook: %w", err)
	}
	defer f.Close()

	timeTable, err := readTable(f, r.cfg.TimeSheet)
	if err != nil {
		return nil, err
	}
	spectrumTable, err := readTable(f, r.cfg.SpectrumSheet)
	if err != nil {
		return nil, err
	}
	log.Printf("[TraceReader] %s read in %.2fms (%d time rows, %d spectrum rows)",
		r.filePath, float64(time.Since(startTime).Nanoseconds())/1e6, len(timeTable.Rows), len(spectrumTable.Rows))

	return &Traces{Time: timeTable, Spectrum: spectrumTable}, nil
}

func readTable(f *excelize.File, sheet string) (TraceTable, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return TraceTable{}, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 1 {
		return TraceTable{}, fmt.Errorf("sheet %s must have a header row", sheet)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := make([][]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		values := make([]float64, len(rows[i]))
		for j, cell := range rows[i] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return TraceTable{}, fmt.Errorf("sheet %s row %d column %d: %w", sheet, i+1, j+1, err)
			}
			values[j] = v
		}
		data = append(data, values)
	}
	return TraceTable{Headers: headers, Rows: data}, nil
}
