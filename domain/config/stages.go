package config

import (
	"fmt"

	"cpasim/domain/core"
	"cpasim/domain/stage"
)

// StageConfig is implemented by every stage configuration variant.
type StageConfig interface {
	StageName() stage.Name
	Family() stage.Family
	Kind() stage.Kind
	Validate() error
}

// Warner is implemented by configs that carry deprecation notices.
type Warner interface {
	Warnings() []string
}

// LaserGenConfig configures the analytic seed pulse generator.
type LaserGenConfig struct {
	Name stage.Name `json:"name"`
	Spec LaserSpec  `json:"spec"`
}

func DefaultLaserGenConfig() LaserGenConfig {
	return LaserGenConfig{Name: stage.NameLaserInit, Spec: DefaultLaserSpec()}
}

func (c LaserGenConfig) StageName() stage.Name { return c.Name }
func (c LaserGenConfig) Family() stage.Family  { return stage.FamilyLaserGen }
func (c LaserGenConfig) Kind() stage.Kind      { return stage.KindAnalytic }
func (c LaserGenConfig) Warnings() []string    { return c.Spec.Pulse.Warnings() }

func (c LaserGenConfig) Validate() error {
	if err := requireName(c.Name); err != nil {
		return err
	}
	if err := c.Spec.Pulse.Validate(); err != nil {
		return err
	}
	if !(c.Spec.Beam.RadiusMm > 0) || c.Spec.Beam.M2 < 1 {
		return core.NewValidationError("BeamSpec", fmt.Sprintf("radius_mm must be > 0 and m2 >= 1, got %g, %g",
			c.Spec.Beam.RadiusMm, c.Spec.Beam.M2))
	}
	return nil
}

// PhaseOnlyDispersionConfig applies raw GDD/TOD around the mean grid frequency.
type PhaseOnlyDispersionConfig struct {
	Name         stage.Name `json:"name"`
	GDDFs2       float64    `json:"gdd_fs2"`
	TODFs3       float64    `json:"tod_fs3"`
	ApplyToPulse bool       `json:"apply_to_pulse"`
}

func NewPhaseOnlyDispersionConfig(name stage.Name, gddFs2, todFs3 float64) (PhaseOnlyDispersionConfig, error) {
	c := PhaseOnlyDispersionConfig{Name: name, GDDFs2: gddFs2, TODFs3: todFs3, ApplyToPulse: true}
	return c, c.Validate()
}

func (c PhaseOnlyDispersionConfig) StageName() stage.Name { return c.Name }
func (c PhaseOnlyDispersionConfig) Family() stage.Family  { return stage.FamilyFreeSpace }
func (c PhaseOnlyDispersionConfig) Kind() stage.Kind      { return stage.KindPhaseOnlyDispersion }
func (c PhaseOnlyDispersionConfig) Validate() error       { return requireName(c.Name) }

// TreacyGratingPairConfig describes a grating-pair compressor/stretcher geometry.
type TreacyGratingPairConfig struct {
	Name              stage.Name `json:"name"`
	LineDensityLpmm   float64    `json:"line_density_lpmm"`
	IncidenceAngleDeg float64    `json:"incidence_angle_deg"`
	SeparationUm      float64    `json:"separation_um"`
	WavelengthNm      float64    `json:"wavelength_nm"`
	DiffractionOrder  int        `json:"diffraction_order"`
	NPasses           int        `json:"n_passes"`
	IncludeTOD        bool       `json:"include_tod"`
	ApplyToPulse      bool       `json:"apply_to_pulse"`
	OverrideGDDFs2    *float64   `json:"override_gdd_fs2,omitempty"`
	OverrideTODFs3    *float64   `json:"override_tod_fs3,omitempty"`
}

// DefaultTreacyGratingPair returns a 1200 l/mm pair at 35° for 1030 nm, order -1, double pass.
func DefaultTreacyGratingPair(name stage.Name) TreacyGratingPairConfig {
	return TreacyGratingPairConfig{
		Name:              name,
		LineDensityLpmm:   1200,
		IncidenceAngleDeg: 35,
		SeparationUm:      100000,
		WavelengthNm:      1030,
		DiffractionOrder:  -1,
		NPasses:           2,
		IncludeTOD:        true,
		ApplyToPulse:      true,
	}
}

func NewTreacyGratingPairConfig(c TreacyGratingPairConfig) (TreacyGratingPairConfig, error) {
	return c, c.Validate()
}

func (c TreacyGratingPairConfig) StageName() stage.Name { return c.Name }
func (c TreacyGratingPairConfig) Family() stage.Family  { return stage.FamilyFreeSpace }
func (c TreacyGratingPairConfig) Kind() stage.Kind      { return stage.KindTreacyGratingPair }

func (c TreacyGratingPairConfig) Validate() error {
	if err := requireName(c.Name); err != nil {
		return err
	}
	switch {
	case !(c.LineDensityLpmm > 0):
		return core.NewValidationError("line_density_lpmm", fmt.Sprintf("must be > 0, got %g", c.LineDensityLpmm))
	case !(c.SeparationUm > 0):
		return core.NewValidationError("separation_um", fmt.Sprintf("must be > 0, got %g", c.SeparationUm))
	case !(c.WavelengthNm > 0):
		return core.NewValidationError("wavelength_nm", fmt.Sprintf("must be > 0, got %g", c.WavelengthNm))
	case c.NPasses < 1:
		return core.NewValidationError("n_passes", fmt.Sprintf("must be >= 1, got %d", c.NPasses))
	case c.DiffractionOrder == 0:
		return core.NewValidationError("diffraction_order", "must be non-zero")
	}
	return nil
}

// FiberConfig combines fiber physics with a numerics backend.
type FiberConfig struct {
	Name     stage.Name    `json:"name"`
	Physics  FiberPhysics  `json:"physics"`
	Numerics FiberNumerics `json:"numerics"`
}

func DefaultFiberConfig() FiberConfig {
	return FiberConfig{Name: stage.NameFiber, Physics: DefaultFiberPhysics(), Numerics: ToyPhaseNumerics{}}
}

func NewFiberConfig(c FiberConfig) (FiberConfig, error) {
	return c, c.Validate()
}

func (c FiberConfig) StageName() stage.Name { return c.Name }
func (c FiberConfig) Family() stage.Family  { return stage.FamilyFiber }
func (c FiberConfig) Kind() stage.Kind      { return stage.KindFiber }

func (c FiberConfig) Validate() error {
	if err := requireName(c.Name); err != nil {
		return err
	}
	if err := c.Physics.Validate(); err != nil {
		return err
	}
	if c.Numerics == nil {
		return core.NewValidationError("numerics", "backend must be set")
	}
	return c.Numerics.Validate()
}

// SimpleGainConfig multiplies pulse power by a scalar gain.
type SimpleGainConfig struct {
	Name       stage.Name `json:"name"`
	GainLinear float64    `json:"gain_linear"`
}

func NewSimpleGainConfig(name stage.Name, gain float64) (SimpleGainConfig, error) {
	c := SimpleGainConfig{Name: name, GainLinear: gain}
	return c, c.Validate()
}

func (c SimpleGainConfig) StageName() stage.Name { return c.Name }
func (c SimpleGainConfig) Family() stage.Family  { return stage.FamilyAmp }
func (c SimpleGainConfig) Kind() stage.Kind      { return stage.KindSimpleGain }

func (c SimpleGainConfig) Validate() error {
	if err := requireName(c.Name); err != nil {
		return err
	}
	if c.GainLinear < 0 {
		return core.NewValidationError("gain_linear", fmt.Sprintf("must be >= 0, got %g", c.GainLinear))
	}
	return nil
}

// ToyFiberAmpConfig configures the split-step amplifier. Exactly one of
// GainDB and AmpPowerW selects how the segment gain is resolved.
type ToyFiberAmpConfig struct {
	Name         stage.Name `json:"name"`
	LengthM      float64    `json:"length_m"`
	NSteps       int        `json:"n_steps"`
	LossDBPerM   float64    `json:"loss_db_per_m"`
	Beta2Fs2PerM float64    `json:"beta2_fs2_per_m"`
	GammaPerWM   float64    `json:"gamma_w_inv_m"`
	GainDB       *float64   `json:"gain_db,omitempty"`
	AmpPowerW    *float64   `json:"amp_power_w,omitempty"`
}

// DefaultToyFiberAmp returns a 1 m lossless, dispersionless amplifier with 100 steps and no gain target set.
func DefaultToyFiberAmp(name stage.Name) ToyFiberAmpConfig {
	return ToyFiberAmpConfig{Name: name, LengthM: 1, NSteps: 100}
}

func NewToyFiberAmpConfig(c ToyFiberAmpConfig) (ToyFiberAmpConfig, error) {
	return c, c.Validate()
}

func (c ToyFiberAmpConfig) StageName() stage.Name { return c.Name }
func (c ToyFiberAmpConfig) Family() stage.Family  { return stage.FamilyAmp }
func (c ToyFiberAmpConfig) Kind() stage.Kind      { return stage.KindToyFiberAmp }

func (c ToyFiberAmpConfig) Validate() error {
	if err := requireName(c.Name); err != nil {
		return err
	}
	if !(c.LengthM > 0) {
		return core.NewValidationError("ToyFiberAmp.length_m", fmt.Sprintf("must be > 0, got %g", c.LengthM))
	}
	if c.NSteps < 1 {
		return core.NewValidationError("ToyFiberAmp.n_steps", fmt.Sprintf("must be >= 1, got %d", c.NSteps))
	}
	if (c.GainDB == nil) == (c.AmpPowerW == nil) {
		return core.NewValidationError("ToyFiberAmp", "requires exactly one of amp_power_w or gain_db")
	}
	if c.AmpPowerW != nil && !(*c.AmpPowerW > 0) {
		return core.NewValidationError("ToyFiberAmp.amp_power_w", fmt.Sprintf("must be > 0, got %g", *c.AmpPowerW))
	}
	return nil
}

// FiberAmpWrapConfig drives the fiber stage with the distributed gain needed
// to reach a target average output power.
type FiberAmpWrapConfig struct {
	Name      stage.Name    `json:"name"`
	PowerOutW float64       `json:"power_out_w"`
	Physics   FiberPhysics  `json:"physics"`
	Numerics  FiberNumerics `json:"numerics"`
}

func NewFiberAmpWrapConfig(c FiberAmpWrapConfig) (FiberAmpWrapConfig, error) {
	return c, c.Validate()
}

func (c FiberAmpWrapConfig) StageName() stage.Name { return c.Name }
func (c FiberAmpWrapConfig) Family() stage.Family  { return stage.FamilyAmp }
func (c FiberAmpWrapConfig) Kind() stage.Kind      { return stage.KindFiberAmpWrap }

func (c FiberAmpWrapConfig) Validate() error {
	if err := requireName(c.Name); err != nil {
		return err
	}
	if !(c.PowerOutW > 0) {
		return core.NewValidationError("FiberAmpWrap.power_out_w", fmt.Sprintf("must be > 0, got %g", c.PowerOutW))
	}
	return FiberConfig{Name: c.Name, Physics: c.Physics, Numerics: c.Numerics}.Validate()
}

// Fiber returns the fiber config the wrapper delegates to, with loss replaced.
func (c FiberAmpWrapConfig) Fiber(lossDBPerM float64) FiberConfig {
	physics := c.Physics
	physics.LossDBPerM = lossDBPerM
	return FiberConfig{Name: c.Name, Physics: physics, Numerics: c.Numerics}
}

// MetricsConfig configures the standard metrics stage. It has no parameters.
type MetricsConfig struct {
	Name stage.Name `json:"name"`
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Name: stage.NameMetrics}
}

func (c MetricsConfig) StageName() stage.Name { return c.Name }
func (c MetricsConfig) Family() stage.Family  { return stage.FamilyMetrics }
func (c MetricsConfig) Kind() stage.Kind      { return stage.KindStandardMetrics }
func (c MetricsConfig) Validate() error       { return requireName(c.Name) }

func requireName(name stage.Name) error {
	if name == "" {
		return core.NewValidationError("name", "stage name cannot be empty")
	}
	return nil
}

// FamilyOf returns the family that owns kind.
func FamilyOf(kind stage.Kind) (stage.Family, error) {
	switch kind {
	case stage.KindAnalytic:
		return stage.FamilyLaserGen, nil
	case stage.KindPhaseOnlyDispersion, stage.KindTreacyGratingPair:
		return stage.FamilyFreeSpace, nil
	case stage.KindFiber:
		return stage.FamilyFiber, nil
	case stage.KindSimpleGain, stage.KindToyFiberAmp, stage.KindFiberAmpWrap:
		return stage.FamilyAmp, nil
	case stage.KindStandardMetrics:
		return stage.FamilyMetrics, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownKind, kind)
}
