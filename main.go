package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"driftwatch/adapters/postgres"
	"driftwatch/adapters/tabular"
	"driftwatch/domain/risk"
	"driftwatch/domain/survey"
	"driftwatch/internal"
	"driftwatch/internal/config"
	"driftwatch/internal/pipeline"
	"driftwatch/internal/testkit"
	"driftwatch/ports"
	"driftwatch/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.DefaultLogger

	frame, groups, features := loadData(appConfig, logger)

	opts := pipeline.FromConfig(appConfig.Engine, features, logger)
	opts.Groups = groups
	result, err := pipeline.Run(frame, opts)
	if err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}
	logSummary(result, logger)

	runRepo := initPersistence(appConfig, result, logger)

	app := ui.NewApp(result, runRepo, logger)
	serve(appConfig.Server.Port, app.Router(), logger)
}

// loadData reads the configured input file, or generates the synthetic demo
// cohort when no input is configured.
func loadData(cfg *config.Config, logger *internal.Logger) (*survey.Frame, []string, []string) {
	if cfg.Data.InputPath == "" {
		logger.Info("no input configured, using synthetic demo cohort (%d persons, %d waves)",
			testkit.DefaultPersons, testkit.DefaultWaves)
		f := testkit.SyntheticCohort(testkit.DefaultPersons, testkit.DefaultWaves, cfg.Engine.Seed)
		return f, testkit.SyntheticGroups(f), testkit.CohortFeatures
	}

	reader := tabular.NewReader(cfg.Data)
	f, groups, err := reader.Read()
	if err != nil {
		log.Fatalf("Failed to load %s: %v", cfg.Data.InputPath, err)
	}
	logger.Info("loaded %s: %d rows, %d persons, %d columns",
		cfg.Data.InputPath, f.Len(), len(f.Persons()), len(f.Columns()))
	return f, groups, cfg.Data.Features
}

func logSummary(result *pipeline.Result, logger *internal.Logger) {
	high := 0
	for _, s := range result.Scored {
		if s.Band == risk.BandHigh {
			high++
		}
	}
	logger.Info("scored %d waves: %d high-band, top contributors %v",
		len(result.Scored), high, result.TopContributors)
	if result.Fairness != nil && result.Fairness.HasDisparity {
		logger.Info("fairness: F2 disparity %.3f across %d groups",
			result.Fairness.Disparity, len(result.Fairness.ByGroup))
	}
}

// initPersistence connects to the database when configured and stores the
// run. Persistence failures are logged, not fatal: the run itself is valid.
func initPersistence(cfg *config.Config, result *pipeline.Result, logger *internal.Logger) ports.RunRepository {
	if cfg.Database.URL == "" {
		return nil
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("database connection failed, continuing without persistence: %v", err)
		return nil
	}
	ctx := context.Background()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Error("schema setup failed, continuing without persistence: %v", err)
		return nil
	}

	repo := postgres.NewRunRepository(db)
	rec := ports.RunRecord{
		ID:           result.RunID,
		Fingerprint:  string(result.Fingerprint),
		ModelFamily:  string(result.Trained.Family),
		Threshold:    result.Trained.Threshold,
		UsedFallback: result.UsedFallback,
		Metrics:      result.Trained.Metrics,
		Rows:         result.Frame.Len(),
		Persons:      len(result.Frame.Persons()),
	}
	if err := repo.SaveRun(ctx, rec); err != nil {
		logger.Error("saving run failed: %v", err)
		return repo
	}
	if err := repo.SaveScores(ctx, result.RunID, result.Scored); err != nil {
		logger.Error("saving scores failed: %v", err)
	}
	logger.Info("run %s persisted", result.RunID)
	return repo
}

// serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully.
func serve(port string, handler http.Handler, logger *internal.Logger) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error: %v", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
