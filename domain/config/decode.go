package config

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"cpasim/domain/core"
	"cpasim/domain/stage"
)

// FromMap builds a validated pipeline config from a nested key-value
// structure such as parsed YAML. Legacy shapes are upgraded first.
func FromMap(raw map[string]any) (PipelineConfig, error) {
	upgraded, notes := Upgrade(raw)
	data, err := json.Marshal(upgraded)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("%w: config is not JSON-representable: %v", core.ErrConfigInvalid, err)
	}
	cfg, err := decodePipeline(gjson.ParseBytes(data))
	if err != nil {
		return PipelineConfig{}, err
	}
	cfg.Deprecations = notes
	if err := cfg.Validate(); err != nil {
		return PipelineConfig{}, err
	}
	return cfg, nil
}

// Decode builds a validated pipeline config from JSON.
func Decode(data []byte) (PipelineConfig, error) {
	if !gjson.ValidBytes(data) {
		return PipelineConfig{}, fmt.Errorf("%w: malformed JSON", core.ErrConfigInvalid)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return PipelineConfig{}, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	return FromMap(raw)
}

var bankKeys = map[stage.Family]string{
	stage.FamilyLaserGen:  "laser_gen_stages",
	stage.FamilyFreeSpace: "free_space_stages",
	stage.FamilyFiber:     "fiber_stages",
	stage.FamilyAmp:       "amp_stages",
	stage.FamilyMetrics:   "metrics_stages",
}

func decodePipeline(r gjson.Result) (PipelineConfig, error) {
	d := &decoder{}
	d.allow(r, "pipeline", "name", "runtime", "laser_gen", "stretcher", "fiber", "amp", "compressor",
		"metrics", "stages", "laser_gen_stages", "free_space_stages", "fiber_stages", "amp_stages",
		"metrics_stages", "stage_chain")

	cfg := DefaultPipelineConfig()
	cfg.Name = d.str(r, "name", DefaultPipelineName)
	cfg.Runtime.Seed = int64(d.int(r, "runtime.seed", 0))

	if v := r.Get("laser_gen"); v.Exists() {
		if s, ok := d.stage(v, stage.FamilyLaserGen, stage.NameLaserInit).(LaserGenConfig); ok {
			cfg.LaserGen = s
		}
	}
	if v := r.Get("metrics"); v.Exists() {
		if s, ok := d.stage(v, stage.FamilyMetrics, stage.NameMetrics).(MetricsConfig); ok {
			cfg.Metrics = s
		}
	}
	single := []struct {
		key    string
		family stage.Family
		name   stage.Name
		dst    *StageConfig
	}{
		{"stretcher", stage.FamilyFreeSpace, stage.NameStretcher, &cfg.Stretcher},
		{"fiber", stage.FamilyFiber, stage.NameFiber, &cfg.Fiber},
		{"amp", stage.FamilyAmp, stage.NameAmp, &cfg.Amp},
		{"compressor", stage.FamilyFreeSpace, stage.NameCompressor, &cfg.Compressor},
	}
	for _, s := range single {
		if v := r.Get(s.key); v.Exists() {
			*s.dst = d.stage(v, s.family, s.name)
		}
	}

	if v := r.Get("stages"); v.Exists() {
		if !v.IsArray() {
			d.fail("stages", "must be a list")
		}
		for _, item := range v.Array() {
			if s := d.stage(item, "", ""); s != nil {
				cfg.Stages = append(cfg.Stages, s)
			}
		}
	}

	for _, family := range stage.Families {
		v := r.Get(bankKeys[family])
		if !v.Exists() {
			continue
		}
		if !v.IsObject() {
			d.fail(bankKeys[family], "must be a mapping of key to stage config")
			continue
		}
		if cfg.Banks == nil {
			cfg.Banks = map[stage.Family]map[string]StageConfig{}
		}
		bank := map[string]StageConfig{}
		v.ForEach(func(key, value gjson.Result) bool {
			if s := d.stage(value, family, stage.Name(key.String())); s != nil {
				bank[key.String()] = s
			}
			return d.err == nil
		})
		cfg.Banks[family] = bank
	}

	if v := r.Get("stage_chain"); v.Exists() && v.Type != gjson.Null {
		if !v.IsArray() {
			d.fail("stage_chain", "must be a list")
		}
		cfg.Chain = []stage.Ref{}
		for _, item := range v.Array() {
			d.allow(item, "stage_chain entry", "stage_type", "key")
			cfg.Chain = append(cfg.Chain, stage.Ref{
				Family: stage.Family(d.str(item, "stage_type", "")),
				Key:    d.str(item, "key", ""),
			})
		}
	}

	if d.err != nil {
		return PipelineConfig{}, d.err
	}
	return cfg, nil
}

var defaultKinds = map[stage.Family]stage.Kind{
	stage.FamilyLaserGen:  stage.KindAnalytic,
	stage.FamilyFreeSpace: stage.KindPhaseOnlyDispersion,
	stage.FamilyFiber:     stage.KindFiber,
	stage.FamilyAmp:       stage.KindSimpleGain,
	stage.FamilyMetrics:   stage.KindStandardMetrics,
}

var defaultNames = map[stage.Family]stage.Name{
	stage.FamilyLaserGen: stage.NameLaserInit,
	stage.FamilyFiber:    stage.NameFiber,
	stage.FamilyAmp:      stage.NameAmp,
	stage.FamilyMetrics:  stage.NameMetrics,
}

// stage decodes one tagged stage config. An empty family means the kind tag
// is mandatory and determines the family.
func (d *decoder) stage(r gjson.Result, family stage.Family, name stage.Name) StageConfig {
	if d.err != nil {
		return nil
	}
	if !r.IsObject() {
		d.fail("stage", "must be a mapping")
		return nil
	}
	kind := stage.Kind(d.str(r, "kind", ""))
	if kind == "" {
		if family == "" {
			d.err = fmt.Errorf("%w: stage entry is missing its kind tag", core.ErrUnknownKind)
			return nil
		}
		kind = defaultKinds[family]
	}
	owner, err := FamilyOf(kind)
	if err != nil {
		d.err = err
		return nil
	}
	if family != "" && owner != family {
		d.err = fmt.Errorf("%w: kind %q does not belong to family %s", core.ErrUnknownKind, kind, family)
		return nil
	}
	if name == "" {
		name = defaultNames[owner]
	}
	name = stage.Name(d.str(r, "name", string(name)))
	if name == "" {
		d.fail("name", fmt.Sprintf("%s stage requires a name", kind))
		return nil
	}

	var out StageConfig
	switch kind {
	case stage.KindAnalytic:
		d.allow(r, "laser_gen", "name", "kind", "spec")
		out = LaserGenConfig{Name: name, Spec: d.laserSpec(r.Get("spec"))}
	case stage.KindPhaseOnlyDispersion:
		d.allow(r, string(name), "name", "kind", "gdd_fs2", "tod_fs3", "apply_to_pulse")
		out = PhaseOnlyDispersionConfig{
			Name:         name,
			GDDFs2:       d.float(r, "gdd_fs2", 0),
			TODFs3:       d.float(r, "tod_fs3", 0),
			ApplyToPulse: d.bool(r, "apply_to_pulse", true),
		}
	case stage.KindTreacyGratingPair:
		d.allow(r, string(name), "name", "kind", "line_density_lpmm", "incidence_angle_deg", "separation_um",
			"wavelength_nm", "diffraction_order", "n_passes", "include_tod", "apply_to_pulse",
			"override_gdd_fs2", "override_tod_fs3")
		c := DefaultTreacyGratingPair(name)
		c.LineDensityLpmm = d.float(r, "line_density_lpmm", c.LineDensityLpmm)
		c.IncidenceAngleDeg = d.float(r, "incidence_angle_deg", c.IncidenceAngleDeg)
		c.SeparationUm = d.float(r, "separation_um", c.SeparationUm)
		c.WavelengthNm = d.float(r, "wavelength_nm", c.WavelengthNm)
		c.DiffractionOrder = d.int(r, "diffraction_order", c.DiffractionOrder)
		c.NPasses = d.int(r, "n_passes", c.NPasses)
		c.IncludeTOD = d.bool(r, "include_tod", c.IncludeTOD)
		c.ApplyToPulse = d.bool(r, "apply_to_pulse", c.ApplyToPulse)
		c.OverrideGDDFs2 = d.optFloat(r, "override_gdd_fs2")
		c.OverrideTODFs3 = d.optFloat(r, "override_tod_fs3")
		out = c
	case stage.KindFiber:
		d.allow(r, string(name), "name", "kind", "physics", "numerics")
		out = FiberConfig{Name: name, Physics: d.physics(r.Get("physics")), Numerics: d.numerics(r.Get("numerics"))}
	case stage.KindSimpleGain:
		d.allow(r, string(name), "name", "kind", "gain_linear")
		out = SimpleGainConfig{Name: name, GainLinear: d.float(r, "gain_linear", 1)}
	case stage.KindToyFiberAmp:
		d.allow(r, string(name), "name", "kind", "length_m", "n_steps", "loss_db_per_m", "beta2_fs2_per_m",
			"gamma_w_inv_m", "gain_db", "amp_power_w")
		c := DefaultToyFiberAmp(name)
		c.LengthM = d.float(r, "length_m", c.LengthM)
		c.NSteps = d.int(r, "n_steps", c.NSteps)
		c.LossDBPerM = d.float(r, "loss_db_per_m", 0)
		c.Beta2Fs2PerM = d.float(r, "beta2_fs2_per_m", 0)
		c.GammaPerWM = d.float(r, "gamma_w_inv_m", 0)
		c.GainDB = d.optFloat(r, "gain_db")
		c.AmpPowerW = d.optFloat(r, "amp_power_w")
		out = c
	case stage.KindFiberAmpWrap:
		d.allow(r, string(name), "name", "kind", "power_out_w", "physics", "numerics")
		out = FiberAmpWrapConfig{
			Name:      name,
			PowerOutW: d.float(r, "power_out_w", 0),
			Physics:   d.physics(r.Get("physics")),
			Numerics:  d.numerics(r.Get("numerics")),
		}
	case stage.KindStandardMetrics:
		d.allow(r, string(name), "name", "kind")
		out = MetricsConfig{Name: name}
	}
	if d.err != nil {
		return nil
	}
	if err := out.Validate(); err != nil {
		d.err = fmt.Errorf("stage %s: %w", name, err)
		return nil
	}
	return out
}

func (d *decoder) laserSpec(r gjson.Result) LaserSpec {
	spec := DefaultLaserSpec()
	if !r.Exists() {
		return spec
	}
	d.allow(r, "spec", "pulse", "beam")
	p := r.Get("pulse")
	d.allow(p, "pulse", "shape", "amplitude", "peak_power_w", "pulse_energy_j", "avg_power_w", "width_fs",
		"intensity_autocorr_fwhm_fs", "center_wavelength_nm", "rep_rate_mhz", "n_samples", "time_window_fs")
	spec.Pulse.Shape = Shape(d.str(p, "shape", string(spec.Pulse.Shape)))
	spec.Pulse.Amplitude = d.optFloat(p, "amplitude")
	spec.Pulse.PeakPowerW = d.optFloat(p, "peak_power_w")
	spec.Pulse.PulseEnergyJ = d.optFloat(p, "pulse_energy_j")
	spec.Pulse.AvgPowerW = d.optFloat(p, "avg_power_w")
	spec.Pulse.WidthFs = d.optFloat(p, "width_fs")
	spec.Pulse.AutocorrFwhmFs = d.optFloat(p, "intensity_autocorr_fwhm_fs")
	spec.Pulse.CenterWavelengthNm = d.float(p, "center_wavelength_nm", spec.Pulse.CenterWavelengthNm)
	spec.Pulse.RepRateMHz = d.float(p, "rep_rate_mhz", spec.Pulse.RepRateMHz)
	spec.Pulse.NSamples = d.int(p, "n_samples", spec.Pulse.NSamples)
	spec.Pulse.TimeWindowFs = d.float(p, "time_window_fs", spec.Pulse.TimeWindowFs)

	b := r.Get("beam")
	d.allow(b, "beam", "radius_mm", "m2")
	spec.Beam.RadiusMm = d.float(b, "radius_mm", spec.Beam.RadiusMm)
	spec.Beam.M2 = d.float(b, "m2", spec.Beam.M2)
	return spec
}

func (d *decoder) physics(r gjson.Result) FiberPhysics {
	if !r.Exists() {
		return DefaultFiberPhysics()
	}
	d.allow(r, "physics", "length_m", "loss_db_per_m", "gamma_1_per_w_m", "n2_m2_per_w", "aeff_m2",
		"reference_wavelength_nm", "dispersion", "raman", "self_steepening")
	f := FiberPhysics{
		LengthM:               d.float(r, "length_m", 1),
		LossDBPerM:            d.float(r, "loss_db_per_m", 0),
		GammaPerWM:            d.optFloat(r, "gamma_1_per_w_m"),
		N2M2PerW:              d.optFloat(r, "n2_m2_per_w"),
		AeffM2:                d.optFloat(r, "aeff_m2"),
		ReferenceWavelengthNm: d.float(r, "reference_wavelength_nm", DefaultCenterWavelengthNm),
		SelfSteepening:        d.bool(r, "self_steepening", false),
		Dispersion:            Dispersion{Kind: DispersionTaylor},
	}
	if disp := r.Get("dispersion"); disp.Exists() {
		d.allow(disp, "dispersion", "kind", "betas_psn_per_m", "effective_indices", "lambdas_nm", "central_wavelength_nm")
		f.Dispersion = Dispersion{
			Kind:                d.str(disp, "kind", DispersionTaylor),
			BetasPsnPerM:        d.floats(disp, "betas_psn_per_m"),
			EffectiveIndices:    d.floats(disp, "effective_indices"),
			LambdasNm:           d.floats(disp, "lambdas_nm"),
			CentralWavelengthNm: d.float(disp, "central_wavelength_nm", 0),
		}
	}
	if raman := r.Get("raman"); raman.Exists() && raman.Type != gjson.Null {
		d.allow(raman, "raman", "model")
		f.Raman = &Raman{Model: d.str(raman, "model", "")}
	}
	return f
}

func (d *decoder) numerics(r gjson.Result) FiberNumerics {
	if !r.Exists() {
		return ToyPhaseNumerics{}
	}
	switch backend := d.str(r, "backend", ""); backend {
	case BackendToyPhase:
		d.allow(r, "numerics", "backend", "nonlinear_phase_rad")
		return ToyPhaseNumerics{NonlinearPhaseRad: d.float(r, "nonlinear_phase_rad", 0)}
	case BackendSolver:
		d.allow(r, "numerics", "backend", "grid_policy", "resolution_override", "z_saves", "rtol", "atol",
			"record_backend_version")
		n := DefaultSolverNumerics()
		n.GridPolicy = d.str(r, "grid_policy", n.GridPolicy)
		if v, ok := d.optInt(r, "resolution_override"); ok {
			n.ResolutionOverride = &v
		}
		n.ZSaves = d.int(r, "z_saves", n.ZSaves)
		n.Rtol = d.float(r, "rtol", n.Rtol)
		n.Atol = d.float(r, "atol", n.Atol)
		n.RecordBackendVersion = d.bool(r, "record_backend_version", n.RecordBackendVersion)
		return n
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: fiber numerics backend %q", core.ErrUnknownKind, backend)
		}
		return nil
	}
}

// decoder reads typed values from a gjson document, keeping the first error.
type decoder struct {
	err error
}

func (d *decoder) fail(path, reason string) {
	if d.err == nil {
		d.err = core.NewValidationError(path, reason)
	}
}

func (d *decoder) allow(r gjson.Result, context string, keys ...string) {
	if d.err != nil || !r.IsObject() {
		return
	}
	allowed := make(map[string]bool, len(keys))
	for _, k := range keys {
		allowed[k] = true
	}
	r.ForEach(func(key, _ gjson.Result) bool {
		if !allowed[key.String()] {
			d.fail(context, fmt.Sprintf("unknown field %q", key.String()))
			return false
		}
		return true
	})
}

func (d *decoder) lookup(r gjson.Result, path string) (gjson.Result, bool) {
	v := r.Get(path)
	return v, v.Exists() && v.Type != gjson.Null
}

func (d *decoder) optFloat(r gjson.Result, path string) *float64 {
	v, ok := d.lookup(r, path)
	if !ok {
		return nil
	}
	if v.Type != gjson.Number {
		d.fail(path, "must be a number")
		return nil
	}
	f := v.Float()
	return &f
}

func (d *decoder) float(r gjson.Result, path string, def float64) float64 {
	if f := d.optFloat(r, path); f != nil {
		return *f
	}
	return def
}

func (d *decoder) optInt(r gjson.Result, path string) (int, bool) {
	f := d.optFloat(r, path)
	if f == nil {
		return 0, false
	}
	if *f != math.Trunc(*f) {
		d.fail(path, "must be an integer")
		return 0, false
	}
	return int(*f), true
}

func (d *decoder) int(r gjson.Result, path string, def int) int {
	if v, ok := d.optInt(r, path); ok {
		return v
	}
	return def
}

func (d *decoder) bool(r gjson.Result, path string, def bool) bool {
	v, ok := d.lookup(r, path)
	if !ok {
		return def
	}
	if !v.IsBool() {
		d.fail(path, "must be a boolean")
		return def
	}
	return v.Bool()
}

func (d *decoder) str(r gjson.Result, path string, def string) string {
	v, ok := d.lookup(r, path)
	if !ok {
		return def
	}
	if v.Type != gjson.String {
		d.fail(path, "must be a string")
		return def
	}
	return v.String()
}

func (d *decoder) floats(r gjson.Result, path string) []float64 {
	v, ok := d.lookup(r, path)
	if !ok {
		return nil
	}
	if !v.IsArray() {
		d.fail(path, "must be a list of numbers")
		return nil
	}
	var out []float64
	for _, item := range v.Array() {
		if item.Type != gjson.Number {
			d.fail(path, "must be a list of numbers")
			return nil
		}
		out = append(out, item.Float())
	}
	return out
}
