package stage

import (
	"cpasim/domain/core"
)

// Policy is the optional execution policy handed to every stage. Absent keys mean "off".
type Policy map[string]any

// Well-known policy keys.
const (
	PolicyEmitStagePlots       = "cpa.emit_stage_plots"
	PolicyEmitStagePlotsLegacy = "emit_stage_plots"
	PolicyStagePlotDir         = "cpa.stage_plot_dir"
	PolicyStrictSampling       = "cpa.sampling.strict"

	DefaultStagePlotDir = "artifacts/stage-plots"
)

// Bool returns true when any of the keys holds a truthy value.
func (p Policy) Bool(keys ...string) bool {
	for _, k := range keys {
		switch v := p[k].(type) {
		case bool:
			if v {
				return true
			}
		case string:
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
		case int:
			if v != 0 {
				return true
			}
		case float64:
			if v != 0 {
				return true
			}
		}
	}
	return false
}

// String returns the value at key, or def when absent or not a string.
func (p Policy) String(key, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Hash returns the content hash of the policy, empty for a nil or empty policy.
func (p Policy) Hash() (core.PolicyHash, error) {
	if len(p) == 0 {
		return "", nil
	}
	h, err := core.HashJSON(map[string]any(p))
	if err != nil {
		return "", err
	}
	return core.PolicyHash(h), nil
}

// EmitTraces reports whether diagnostic trace emission is enabled.
func (p Policy) EmitTraces() bool {
	return p.Bool(PolicyEmitStagePlots, PolicyEmitStagePlotsLegacy)
}

// TraceDir returns the directory for diagnostic traces.
func (p Policy) TraceDir() string {
	return p.String(PolicyStagePlotDir, DefaultStagePlotDir)
}
