package excel

// Column headers written to trace workbooks.
const (
	ColTimeFs             = "t_fs"
	ColIntensity          = "intensity"
	ColFieldRe            = "field_re"
	ColFieldIm            = "field_im"
	ColReferenceIntensity = "reference_intensity"
	ColOmegaRadPerFs      = "w_rad_per_fs"
	ColSpectrum           = "spectrum"
	ColReferenceSpectrum  = "reference_spectrum"
)

// TraceTable is one sheet of numeric columns.
type TraceTable struct {
	Headers []string    // Column headers
	Rows    [][]float64 // Data rows
}

// Column returns the values under header, or nil when the header is absent.
func (t TraceTable) Column(header string) []float64 {
	idx := -1
	for i, h := range t.Headers {
		if h == header {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out
}

// Traces is the content of a stage trace workbook.
type Traces struct {
	Time     TraceTable
	Spectrum TraceTable
}
