package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cpasim/domain/observables"
	"cpasim/domain/pulse"
	"cpasim/domain/run"
	"cpasim/domain/stage"
)

func sampleResult() *run.Result {
	state := pulse.Placeholder()
	state.Meta["observable_contract"] = observables.NewContract(101.5, 143.2, 0.018)
	return &run.Result{
		State:     state,
		Metrics:   map[string]float64{"cpa.metrics.summary.fwhm_fs": 101.5, "cpa.amp.amp.gain_linear": 2},
		Artifacts: map[string]string{"fiber.trace_workbook": "out/fiber_traces.xlsx"},
		Provenance: run.Provenance{
			RunID:      "run-1",
			CreatedUTC: "2024-05-01T12:00:00Z",
			Seed:       3,
			ConfigHash: "abc",
		},
		Plan: stage.Plan{Stages: []stage.Spec{
			{Name: "laser_init", Family: stage.FamilyLaserGen, Kind: stage.KindAnalytic},
			{Name: "metrics", Family: stage.FamilyMetrics, Kind: stage.KindStandardMetrics},
		}},
		Timings:  []run.StageTiming{{Stage: "laser_init", DurationMs: 1.5}},
		Warnings: []string{"pulse is under-resolved"},
	}
}

func TestMarkdown(t *testing.T) {
	md := string(Markdown("cpa", sampleResult()))

	assert.Contains(t, md, "# Run report: cpa")
	assert.Contains(t, md, "| run_id | `run-1` |")
	assert.NotContains(t, md, "policy_hash")
	assert.Contains(t, md, "| 1 | laser_init | laser_gen | analytic | 1.500 |")
	assert.Contains(t, md, "| intensity_fwhm | 101.5 | fs |")
	assert.Contains(t, md, "- `fiber.trace_workbook`: out/fiber_traces.xlsx")
	assert.Contains(t, md, "- pulse is under-resolved")
	assert.Less(t, strings.Index(md, "cpa.amp.amp.gain_linear"), strings.Index(md, "cpa.metrics.summary.fwhm_fs"))
}

func TestMarkdown_RepeatedStageNamesKeepOwnDurations(t *testing.T) {
	res := sampleResult()
	res.Plan.Stages = []stage.Spec{
		{Name: "laser_init", Family: stage.FamilyLaserGen, Kind: stage.KindAnalytic},
		{Name: "gain", Family: stage.FamilyAmp, Kind: stage.KindSimpleGain},
		{Name: "gain", Family: stage.FamilyAmp, Kind: stage.KindSimpleGain},
		{Name: "metrics", Family: stage.FamilyMetrics, Kind: stage.KindStandardMetrics},
	}
	res.Timings = []run.StageTiming{
		{Stage: "laser_init", DurationMs: 1},
		{Stage: "gain", DurationMs: 2},
		{Stage: "gain", DurationMs: 7},
		{Stage: "metrics", DurationMs: 3},
	}

	md := string(Markdown("cpa", res))
	assert.Contains(t, md, "| 2 | gain | amp | simple_gain | 2.000 |")
	assert.Contains(t, md, "| 3 | gain | amp | simple_gain | 7.000 |")
	assert.Contains(t, md, "| 4 | metrics | metrics | standard | 3.000 |")
}

func TestHTML(t *testing.T) {
	page := string(HTML("cpa report", Markdown("cpa", sampleResult())))

	assert.Contains(t, page, "<title>cpa report</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "run-1")
}
