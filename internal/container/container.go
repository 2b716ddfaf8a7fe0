package container

import (
	"context"
	"fmt"
	"io"
	"os"

	"cpasim/adapters/excel"
	"cpasim/adapters/ledger"
	"cpasim/adapters/optics/backend"
	"cpasim/internal"
	"cpasim/internal/config"
	"cpasim/internal/pipeline"
	"cpasim/internal/telemetry"
	"cpasim/ports"

	"github.com/jmoiron/sqlx"
)

// logOutput receives container log lines.
var logOutput io.Writer = os.Stderr

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB     *sqlx.DB
	Ledger ports.RunLedger

	// Simulation capabilities
	Solver    backend.Solver
	Traces    ports.TraceExporter
	Telemetry *telemetry.Recorder
	Registry  *pipeline.Registry
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:    cfg,
		Logger:    internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level), logOutput),
		Solver:    backend.NewSplitStepSolver(),
		Traces:    excel.NewTraceWriter(excel.DefaultWorkbookConfig()),
		Telemetry: telemetry.NewRecorder(),
		Registry:  pipeline.DefaultRegistry(),
	}

	return c, nil
}

// InitLedger opens the run ledger when a DSN is configured. Without one the
// container runs with no ledger and Ledger stays nil.
func (c *Container) InitLedger(ctx context.Context) error {
	if c.Config.Ledger.DSN == "" {
		c.Logger.Debug("[Container] run ledger disabled")
		return nil
	}

	db, err := ledger.Open(ctx, c.Config.Ledger.DSN)
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	return c.InitWithDatabase(db)
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.DB = db
	c.Ledger = ledger.NewRunRepository(db)
	c.Logger.Info("[Container] run ledger ready (driver=%s)", db.DriverName())
	return nil
}

// Dependencies returns the capabilities injected into pipeline stages.
func (c *Container) Dependencies() pipeline.Dependencies {
	return pipeline.Dependencies{
		Solver:        c.Solver,
		Logger:        c.Logger.Std(),
		TraceExporter: c.Traces,
		Observer:      c.Telemetry,
	}
}

// Shutdown releases the database connection
func (c *Container) Shutdown() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
