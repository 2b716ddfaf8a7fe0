package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"cpasim/adapters/optics/kernels"
	"cpasim/domain/observables"
	"cpasim/domain/run"
)

// Markdown renders a human-readable run summary.
func Markdown(pipeline string, res *run.Result) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Run report: %s\n\n", pipeline)

	prov := res.Provenance
	b.WriteString("## Provenance\n\n| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| run_id | `%s` |\n", prov.RunID)
	fmt.Fprintf(&b, "| created_utc | %s |\n", prov.CreatedUTC)
	fmt.Fprintf(&b, "| seed | %d |\n", prov.Seed)
	fmt.Fprintf(&b, "| config_hash | `%s` |\n", prov.ConfigHash)
	if prov.PolicyHash != "" {
		fmt.Fprintf(&b, "| policy_hash | `%s` |\n", prov.PolicyHash)
	}

	b.WriteString("\n## Stages\n\n| # | Stage | Family | Kind | Duration (ms) |\n|---|---|---|---|---|\n")
	// Timings follow plan order; names may repeat.
	for i, s := range res.Plan.Stages {
		var ms float64
		if i < len(res.Timings) {
			ms = res.Timings[i].DurationMs
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %.3f |\n", i+1, s.Name, s.Family, s.Kind, ms)
	}

	if res.State != nil {
		if contract, ok := res.State.Meta["observable_contract"].(observables.Contract); ok {
			fmt.Fprintf(&b, "\n## Observables (%s)\n\n| Name | Value | Unit | Method |\n|---|---|---|---|\n", contract.SchemaVersion)
			for _, m := range contract.Measurements {
				fmt.Fprintf(&b, "| %s | %.6g | %s | %s |\n", m.Name, m.Value, m.Unit, m.Method)
			}
		}

		spread := kernels.Spread(res.State.Pulse.IntensityT)
		b.WriteString("\n## Final intensity trace\n\n| Statistic | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| samples | %d |\n", len(res.State.Pulse.IntensityT))
		fmt.Fprintf(&b, "| mean | %.6g |\n", spread.Mean)
		fmt.Fprintf(&b, "| std dev | %.6g |\n", spread.StdDev)
		fmt.Fprintf(&b, "| peak | %.6g |\n", spread.Max)
	}

	b.WriteString("\n## Metrics\n\n| Key | Value |\n|---|---|\n")
	for _, k := range sortedKeys(res.Metrics) {
		fmt.Fprintf(&b, "| %s | %.6g |\n", k, res.Metrics[k])
	}

	if len(res.Artifacts) > 0 {
		b.WriteString("\n## Artifacts\n\n")
		keys := make([]string, 0, len(res.Artifacts))
		for k := range res.Artifacts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- `%s`: %s\n", k, res.Artifacts[k])
		}
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", strings.ReplaceAll(w, "\n", " "))
		}
	}
	return b.Bytes()
}

// HTML converts a Markdown report into a standalone HTML page.
func HTML(title string, md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
	})
	return markdown.ToHTML(md, p, renderer)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
