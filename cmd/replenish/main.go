package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/andresuchdata/autopo-py/replenishment/internal/app"
	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
	"github.com/andresuchdata/autopo-py/replenishment/internal/replenishment"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository/postgres"
	"github.com/andresuchdata/autopo-py/replenishment/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const appKey ctxKey = "app"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initApp(c *cli.Context) error {
	cfg := config.Load()
	logger.Configure(cfg.Server.Mode, cfg.Replenishment.Debug || c.Bool("debug"))

	db, err := sqlx.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if c.Bool("debug") {
		cfg.Replenishment.Debug = true
	}
	application, err := app.New(postgres.Wrap(db, cfg.Database.MaxConcurrent), cfg)
	if err != nil {
		db.Close()
		return err
	}

	c.Context = context.WithValue(c.Context, appKey, &session{app: application, db: db})
	return nil
}

func closeApp(c *cli.Context) error {
	s, ok := c.Context.Value(appKey).(*session)
	if !ok || s == nil {
		return nil
	}
	if err := s.app.Close(); err != nil {
		logger.Log.Warn().Err(err).Msg("failed to close event publisher")
	}
	return s.db.Close()
}

type session struct {
	app *app.App
	db  *sqlx.DB
}

func sessionFrom(c *cli.Context) (*session, error) {
	s, ok := c.Context.Value(appKey).(*session)
	if !ok || s == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return s, nil
}

func main() {
	cliApp := &cli.App{
		Name:  "replenish",
		Usage: "Generate and inspect replenishment recommendations",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log every skipped product and batch",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Calculate recommendations for all active products or the given ids",
				Flags: []cli.Flag{
					&cli.Int64SliceFlag{
						Name:  "product-ids",
						Usage: "Restrict the run to these product ids",
					},
				},
				Before: initApp,
				After:  closeApp,
				Action: runGenerate,
			},
			{
				Name:  "report",
				Usage: "Run a full calculation and produce the weekly report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Usage: "Write the report JSON to this file instead of stdout",
					},
				},
				Before: initApp,
				After:  closeApp,
				Action: runReport,
			},
			{
				Name:  "runs",
				Usage: "List recent calculation runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to show",
						Value: 10,
					},
				},
				Before: initApp,
				After:  closeApp,
				Action: listRuns,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("replenish failed")
	}
}

func runGenerate(c *cli.Context) error {
	s, err := sessionFrom(c)
	if err != nil {
		return err
	}

	progress := func(processed, total int, percent float64) {
		logger.Log.Info().Msgf("Processed %d/%d products (%.1f%%)", processed, total, percent)
	}

	recs, err := s.app.Service.GenerateRecommendations(c.Context, c.Int64Slice("product-ids"), progress)
	if err != nil {
		return err
	}

	summary := replenishment.GenerateSummary(recs)
	logger.Log.Info().
		Int("products", summary.TotalProducts).
		Int("actionable", summary.ActionableCount).
		Int("total_quantity", summary.TotalRecommendedQuantity).
		Float64("average_ads", summary.AverageADS).
		Msg("Recommendations generated")
	return nil
}

func runReport(c *cli.Context) error {
	s, err := sessionFrom(c)
	if err != nil {
		return err
	}

	report, key, err := s.app.Service.GenerateWeeklyReport(c.Context)
	if err != nil {
		return err
	}
	if key != "" {
		logger.Log.Info().Str("key", key).Msg("Report archived")
	}

	out := os.Stdout
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func listRuns(c *cli.Context) error {
	s, err := sessionFrom(c)
	if err != nil {
		return err
	}

	runs, err := s.app.Service.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	for _, run := range runs {
		logger.Log.Info().
			Int64("id", run.ID).
			Str("date", run.CalculationDate.Format("2006-01-02")).
			Str("status", string(run.Status)).
			Int("processed", run.ProductsProcessed).
			Int("generated", run.RecommendationsGenerated).
			Int("errors", run.ErrorCount).
			Float64("seconds", run.ExecutionTimeSeconds).
			Msg("Run")
	}
	return nil
}
