package observables

// SchemaVersion identifies the observable contract layout.
const SchemaVersion = "cpa.observables.v0.1"

// Measurement names.
const (
	IntensityFWHM         = "intensity_fwhm"
	IntensityAutocorrFWHM = "intensity_autocorrelation_fwhm"
	SpectralRMSWidth      = "spectral_rms_width"
)

// LatentFieldContract describes the internal arrays a measurement is derived from.
type LatentFieldContract struct {
	FieldT               string   `json:"field_t"`
	FieldW               string   `json:"field_w"`
	TimeAxis             string   `json:"time_axis"`
	AngularFrequencyAxis string   `json:"angular_frequency_axis"`
	Assumptions          []string `json:"assumptions"`
}

// DefaultLatentFieldContract documents the fs/rad/√W unit system.
func DefaultLatentFieldContract() LatentFieldContract {
	return LatentFieldContract{
		FieldT:               "PulseState.FieldT",
		FieldW:               "PulseState.FieldW",
		TimeAxis:             "PulseGrid.T (fs)",
		AngularFrequencyAxis: "PulseGrid.W (rad/fs)",
		Assumptions: []string{
			"Internal unit system is fs/um/rad.",
			"Envelope normalization is sqrt(W), so |A|^2 is instantaneous power.",
		},
	}
}

// Measurement is a scalar derived from the latent state with an explicit method.
type Measurement struct {
	Name        string   `json:"name"`
	Value       float64  `json:"value"`
	Unit        string   `json:"unit"`
	Method      string   `json:"method"`
	Assumptions []string `json:"assumptions"`
}

// Contract is the stable external measurement surface of a run.
type Contract struct {
	SchemaVersion string              `json:"schema_version"`
	LatentState   LatentFieldContract `json:"latent_state"`
	Measurements  []Measurement       `json:"measurements"`
}

// NewContract builds the standard three-measurement contract.
func NewContract(fwhmFs, acFwhmFs, rmsBandwidth float64) Contract {
	return Contract{
		SchemaVersion: SchemaVersion,
		LatentState:   DefaultLatentFieldContract(),
		Measurements: []Measurement{
			{
				Name:        IntensityFWHM,
				Value:       fwhmFs,
				Unit:        "fs",
				Method:      "half-maximum crossing with linear interpolation",
				Assumptions: []string{"Intensity is derived from |field_t|^2 on PulseGrid.T."},
			},
			{
				Name:        IntensityAutocorrFWHM,
				Value:       acFwhmFs,
				Unit:        "fs",
				Method:      "full discrete intensity autocorrelation + FWHM interpolation",
				Assumptions: []string{"Background is negligible over the simulation window."},
			},
			{
				Name:        SpectralRMSWidth,
				Value:       rmsBandwidth,
				Unit:        "rad/fs",
				Method:      "sqrt(weighted second central moment of spectrum on PulseGrid.W)",
				Assumptions: []string{"Spectrum weights are non-negative and represent relative power."},
			},
		},
	}
}

// Clone returns a copy that shares no slices with c.
func (c Contract) Clone() Contract {
	out := c
	out.LatentState.Assumptions = append([]string(nil), c.LatentState.Assumptions...)
	if c.Measurements != nil {
		out.Measurements = make([]Measurement, len(c.Measurements))
		for i, m := range c.Measurements {
			m.Assumptions = append([]string(nil), m.Assumptions...)
			out.Measurements[i] = m
		}
	}
	return out
}

// Find returns the measurement with name.
func (c Contract) Find(name string) (Measurement, bool) {
	for _, m := range c.Measurements {
		if m.Name == name {
			return m, true
		}
	}
	return Measurement{}, false
}
