package excel

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"cpasim/domain/pulse"
	"cpasim/domain/stage"
)

// ArtifactTraceWorkbook is the artifact suffix recorded for each workbook.
const ArtifactTraceWorkbook = "trace_workbook"

// TraceWriter writes per-stage diagnostic workbooks.
type TraceWriter struct {
	cfg WorkbookConfig
}

// NewTraceWriter creates a writer with the given layout.
func NewTraceWriter(cfg WorkbookConfig) *TraceWriter {
	if cfg.TimeSheet == "" {
		cfg.TimeSheet = "time"
	}
	if cfg.SpectrumSheet == "" {
		cfg.SpectrumSheet = "spectrum"
	}
	return &TraceWriter{cfg: cfg}
}

// WorkbookPath returns <dir>/<stage>_traces.xlsx.
func WorkbookPath(dir string, name stage.Name) string {
	return filepath.Join(dir, sanitize(string(name))+"_traces.xlsx")
}

// ExportTraces writes the time and spectrum traces of state and returns the
// artifact map {"<stage>.trace_workbook": path}.
func (w *TraceWriter) ExportTraces(name stage.Name, state *pulse.LaserState, dir string) (map[string]string, error) {
	startTime := time.Now()
	if state == nil {
		return nil, fmt.Errorf("trace export for stage %s: nil state", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory %s: %w", dir, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", w.cfg.TimeSheet); err != nil {
		return nil, fmt.Errorf("failed to name time sheet: %w", err)
	}
	if _, err := f.NewSheet(w.cfg.SpectrumSheet); err != nil {
		return nil, fmt.Errorf("failed to create spectrum sheet: %w", err)
	}

	timeTable := w.timeTable(state)
	if err := writeTable(f, w.cfg.TimeSheet, timeTable); err != nil {
		return nil, err
	}
	spectrumTable := w.spectrumTable(state)
	if err := writeTable(f, w.cfg.SpectrumSheet, spectrumTable); err != nil {
		return nil, err
	}

	path := WorkbookPath(dir, name)
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save trace workbook %s: %w", path, err)
	}
	log.Printf("[TraceWriter] %s: wrote %d time rows and %d spectrum rows to %s in %.2fms",
		name, len(timeTable.Rows), len(spectrumTable.Rows), path, float64(time.Since(startTime).Nanoseconds())/1e6)

	return map[string]string{string(name) + "." + ArtifactTraceWorkbook: path}, nil
}

func (w *TraceWriter) timeTable(state *pulse.LaserState) TraceTable {
	p := state.Pulse
	headers := []string{ColTimeFs, ColIntensity}
	if w.cfg.IncludeField {
		headers = append(headers, ColFieldRe, ColFieldIm)
	}
	var ref []float64
	if w.cfg.IncludeReference && state.Reference != nil && len(state.Reference.IntensityT) == len(p.IntensityT) {
		ref = state.Reference.IntensityT
		headers = append(headers, ColReferenceIntensity)
	}

	rows := make([][]float64, len(p.Grid.T))
	for i, t := range p.Grid.T {
		row := []float64{t, p.IntensityT[i]}
		if w.cfg.IncludeField {
			row = append(row, real(p.FieldT[i]), imag(p.FieldT[i]))
		}
		if ref != nil {
			row = append(row, ref[i])
		}
		rows[i] = row
	}
	return TraceTable{Headers: headers, Rows: rows}
}

func (w *TraceWriter) spectrumTable(state *pulse.LaserState) TraceTable {
	p := state.Pulse
	headers := []string{ColOmegaRadPerFs, ColSpectrum}
	var ref []float64
	if w.cfg.IncludeReference && state.Reference != nil && len(state.Reference.SpectrumW) == len(p.SpectrumW) {
		ref = state.Reference.SpectrumW
		headers = append(headers, ColReferenceSpectrum)
	}

	rows := make([][]float64, len(p.Grid.W))
	for i, omega := range p.Grid.W {
		row := []float64{omega, p.SpectrumW[i]}
		if ref != nil {
			row = append(row, ref[i])
		}
		rows[i] = row
	}
	return TraceTable{Headers: headers, Rows: rows}
}

// writeTable streams a header row and the numeric rows into sheet.
func writeTable(f *excelize.File, sheet string, table TraceTable) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer for sheet %s: %w", sheet, err)
	}

	header := make([]any, len(table.Headers))
	for i, h := range table.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return sw.Flush()
}

// sanitize keeps stage names usable as file names.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
