package excel

// WorkbookConfig controls the layout of a stage trace workbook.
type WorkbookConfig struct {
	TimeSheet        string `json:"time_sheet"`
	SpectrumSheet    string `json:"spectrum_sheet"`
	IncludeField     bool   `json:"include_field"`
	IncludeReference bool   `json:"include_reference"`
}

// DefaultWorkbookConfig returns the `time` / `spectrum` layout with the
// complex field and the seed reference traces included.
func DefaultWorkbookConfig() WorkbookConfig {
	return WorkbookConfig{
		TimeSheet:        "time",
		SpectrumSheet:    "spectrum",
		IncludeField:     true,
		IncludeReference: true,
	}
}
