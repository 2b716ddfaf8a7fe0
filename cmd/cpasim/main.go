package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/run"
	"cpasim/internal/container"
	"cpasim/internal/errors"
	"cpasim/internal/migration"
	"cpasim/internal/pipeline"
	"cpasim/internal/report"
	"cpasim/ports"

	internalconfig "cpasim/internal/config"
)

func main() {
	// Load .env when present; the environment wins otherwise.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "cpasim",
		Short: "Chirped-pulse amplification pipeline simulator",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newHashCmd(),
		newRecommendSamplesCmd(),
		newRunsCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] %v\n", errorCode(err), err)
		os.Exit(1)
	}
}

// errorCode prefers an explicit AppError code and otherwise classifies the
// domain error chain.
func errorCode(err error) string {
	if errors.IsAppError(err) {
		return errors.GetCode(err)
	}
	return errors.Classify(err)
}

func newRunCmd() *cobra.Command {
	var outDir string
	var dumpState bool
	var emitTraces bool
	var strictSampling bool

	cmd := &cobra.Command{
		Use:   "run [config.yaml]",
		Short: "Run a pipeline config and write metrics, artifacts and a report",
		Long: `Run a pipeline config end to end.

Example: cpasim run examples/tutorial.yaml --out out/tutorial --emit-traces`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internalconfig.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.Output.Dir = outDir
			}
			if dumpState {
				cfg.Output.DumpState = true
			}
			if emitTraces {
				cfg.Run.EmitTraces = true
			}
			if strictSampling {
				cfg.Run.StrictSampling = true
			}
			return runPipeline(cmd.Context(), cfg, args[0])
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "out", "Output directory")
	cmd.Flags().BoolVar(&dumpState, "dump-state", false, "Write the final laser state as JSON")
	cmd.Flags().BoolVar(&emitTraces, "emit-traces", false, "Write per-stage trace workbooks")
	cmd.Flags().BoolVar(&strictSampling, "strict-sampling", false, "Fail on pulse sampling policy violations")

	return cmd
}

func runPipeline(ctx context.Context, cfg *internalconfig.Config, configPath string) error {
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	if err := c.InitLedger(ctx); err != nil {
		return err
	}

	pipelineCfg, err := loadPipelineConfig(configPath)
	if err != nil {
		return errors.Wrapf(err, "failed to load pipeline %s", configPath)
	}
	pipelineCfg = cfg.Apply(pipelineCfg)
	for _, note := range pipelineCfg.Deprecations {
		c.Logger.Warn("[Run] %s", note)
	}

	if cfg.Run.EmitTraces && !filepath.IsAbs(cfg.Run.TraceDir) {
		cfg.Run.TraceDir = filepath.Join(cfg.Output.Dir, cfg.Run.TraceDir)
	}

	p, err := pipeline.Build(pipelineCfg, c.Registry, c.Dependencies())
	if err != nil {
		return err
	}
	res, err := p.Run(cfg.Policy())
	if err != nil {
		return err
	}
	c.Telemetry.RecordResult(p.Name(), res)

	written, err := writeRunOutputs(cfg.Output.Dir, p.Name(), res, cfg.Output.DumpState)
	if err != nil {
		return err
	}

	md := report.Markdown(p.Name(), res)
	mdPath := filepath.Join(cfg.Output.Dir, reportMDFile)
	if err := os.WriteFile(mdPath, md, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", mdPath, err)
	}
	htmlPath := filepath.Join(cfg.Output.Dir, reportHTML)
	if err := os.WriteFile(htmlPath, report.HTML(p.Name(), md), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", htmlPath, err)
	}
	promPath := filepath.Join(cfg.Output.Dir, telemetryFile)
	if err := c.Telemetry.WriteTextfile(promPath); err != nil {
		return err
	}
	written = append(written, mdPath, htmlPath, promPath)

	if c.Ledger != nil {
		entry, err := run.NewLedgerEntry(p.Name(), res)
		if err != nil {
			return err
		}
		if err := c.Ledger.RecordRun(ctx, entry); err != nil {
			return err
		}
		c.Logger.Info("[Run] recorded %s in ledger", entry.RunID)
	}

	for _, w := range res.Warnings {
		c.Logger.Warn("[Run] %s", w)
	}

	fmt.Printf("Run %s (%s, %d stages)\n", res.Provenance.RunID, p.Name(), len(res.Plan.Stages))
	fmt.Printf("Config hash: %s\n", core.Hash(res.Provenance.ConfigHash).Short(12))
	for _, path := range written {
		fmt.Printf("  wrote %s\n", path)
	}
	return nil
}

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash [config.yaml]",
		Short: "Print the canonical hash of a pipeline config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPipelineConfig(args[0])
			if err != nil {
				return err
			}
			hash, err := cfg.Hash()
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func newRecommendSamplesCmd() *cobra.Command {
	var widthFs float64
	var windowFs float64
	var minPointsPerFWHM int

	cmd := &cobra.Command{
		Use:   "recommend-samples",
		Short: "Suggest a power-of-two sample count for a pulse width and window",
		Long: `Suggest the smallest power-of-two grid that resolves a pulse.

Example: cpasim recommend-samples --width-fs 100 --window-fs 2000 --min-ppf 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := config.RecommendedNSamples(widthFs, windowFs, minPointsPerFWHM)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}

	policy := config.DefaultSamplingPolicy()
	cmd.Flags().Float64Var(&widthFs, "width-fs", 100, "Intensity FWHM in fs")
	cmd.Flags().Float64Var(&windowFs, "window-fs", 2000, "Time window in fs")
	cmd.Flags().IntVar(&minPointsPerFWHM, "min-ppf", policy.MinPointsPerFWHM, "Minimum samples per FWHM")

	return cmd
}

func newRunsCmd() *cobra.Command {
	var pipelineName string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return errors.InvalidInput(fmt.Sprintf("--limit must be >= 0, got %d", limit))
			}
			cfg, err := internalconfig.Load()
			if err != nil {
				return err
			}
			if cfg.Ledger.DSN == "" {
				return errors.ConfigInvalid("CPASIM_LEDGER_DSN is not set")
			}
			c, err := container.New(cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown()
			if err := c.InitLedger(cmd.Context()); err != nil {
				return err
			}

			filters := ports.RunFilters{Limit: limit}
			if pipelineName != "" {
				filters.Pipeline = &pipelineName
			}
			entries, err := c.Ledger.ListRuns(cmd.Context(), filters)
			if err != nil {
				return err
			}
			printRuns(entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&pipelineName, "pipeline", "", "Only list runs of this pipeline")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")

	return cmd
}

func printRuns(entries []run.LedgerEntry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tPIPELINE\tCREATED\tSTAGES\tCONFIG")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.RunID, e.Pipeline, e.CreatedUTC, e.StageCount, core.Hash(e.ConfigHash).Short(12))
	}
	w.Flush()
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [dsn]",
		Short: "Create or upgrade the run ledger schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internalconfig.Load()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Ledger.DSN = args[0]
			}
			if cfg.Ledger.DSN == "" {
				return errors.ConfigInvalid("a ledger DSN is required (argument or CPASIM_LEDGER_DSN)")
			}
			c, err := container.New(cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown()
			if err := c.InitLedger(cmd.Context()); err != nil {
				return err
			}
			versions, err := migration.AppliedVersions(cmd.Context(), c.DB)
			if err != nil {
				return errors.WithCode(errors.CodeDatabaseError, err)
			}
			for _, v := range versions {
				fmt.Printf("applied %s\n", v)
			}
			return nil
		},
	}
}
