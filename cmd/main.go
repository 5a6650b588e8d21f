package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/DataCraft-Labs/smartshelf/internal/adapters/repository"
	"github.com/DataCraft-Labs/smartshelf/internal/app"
	"github.com/DataCraft-Labs/smartshelf/internal/config"
	"github.com/DataCraft-Labs/smartshelf/internal/datagen"
	"github.com/DataCraft-Labs/smartshelf/internal/domain/classifier"
	"github.com/DataCraft-Labs/smartshelf/internal/domain/policy"
	"github.com/DataCraft-Labs/smartshelf/pkg/logger"
	"github.com/DataCraft-Labs/smartshelf/pkg/metrics"
)

// Metrics listener timeouts.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	// Optional .env for local development; koanf env layering reads the result.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	var runErr error
	switch os.Args[1] {
	case "generate":
		runErr = runGenerate(ctx, cfg, os.Args[2:])
	case "train":
		runErr = runTrain(ctx, cfg, os.Args[2:])
	case "evaluate":
		runErr = runEvaluate(ctx, cfg, os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if runErr != nil {
		log.Error(ctx, "command failed", logger.String("command", os.Args[1]), logger.Error(runErr))
		os.Exit(1)
	}
}

func usage() {
	os.Stdout.WriteString(`SmartShelf risk pipeline

Usage:
  smartshelf <command> [flags]

Commands:
  generate   Generate a synthetic inventory batch into the database
  train      Train the risk model on stored snapshots
  evaluate   Evaluate stored snapshots and persist risk assessments

Configuration comes from defaults, an optional YAML file (SMARTSHELF_CONFIG)
and SMARTSHELF_* environment variables.
`)
}

func newService(cfg *config.Config) *app.Service {
	return app.New(
		app.WithModelPath(cfg.ModelPath),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithFailFast(cfg.FailFast),
		app.WithPolicy(policy.New(policy.WithTransferSection(cfg.TransferSection))),
		app.WithTrainer(classifier.NewTrainer(
			classifier.WithEstimators(cfg.Estimators),
			classifier.WithMaxDepth(cfg.MaxDepth),
			classifier.WithMinLeaf(cfg.MinLeaf),
			classifier.WithSeed(cfg.Seed),
			classifier.WithTestFraction(cfg.TestFraction),
			classifier.WithFolds(cfg.CVFolds),
		)),
	)
}

func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	store, err := repository.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func runGenerate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	products := fs.Int("products", cfg.GenerateProducts, "Number of catalog products to generate")
	seed := fs.Int64("seed", cfg.Seed, "Random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := logger.Get()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // best-effort close on exit

	gen := datagen.New(datagen.WithSeed(*seed), datagen.WithProductCount(*products))
	batchID, records := gen.Batch(time.Now())
	if err := store.SaveSnapshots(ctx, batchID, records); err != nil {
		return err
	}
	log.Info(ctx, "synthetic batch stored",
		logger.String("batchID", batchID),
		logger.Int("rows", len(records)),
		logger.Int("products", *products))
	return nil
}

func runTrain(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	batchID := fs.String("batch", "", "Train on a single batch (default: all snapshots)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := logger.Get()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // best-effort close on exit

	records, err := store.LoadSnapshots(ctx, *batchID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("no snapshots to train on; run generate first")
	}

	result, err := newService(cfg).Train(ctx, time.Now(), records)
	if err != nil {
		return err
	}
	if result.Status != classifier.StatusOK {
		log.Warn(ctx, "training finished without a model", logger.String("status", string(result.Status)))
		return nil
	}

	log.Info(ctx, "model artifact written", logger.String("path", cfg.ModelPath))
	logImportance(ctx, result.Report.Importance)
	return nil
}

// logImportance logs features by descending share of impurity decrease.
func logImportance(ctx context.Context, importance map[string]float64) {
	names := make([]string, 0, len(importance))
	for name := range importance {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return importance[names[i]] > importance[names[j]] })
	for _, name := range names {
		logger.Get().Info(ctx, "feature importance",
			logger.String("feature", name),
			logger.Float64("share", importance[name]))
	}
}

func runEvaluate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	batchID := fs.String("batch", "", "Evaluate a single batch (default: latest)")
	all := fs.Bool("all", false, "Evaluate every stored snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := logger.Get()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // best-effort close on exit

	target := *batchID
	if target == "" && !*all {
		target, err = store.LatestBatchID(ctx)
		if err != nil {
			return fmt.Errorf("no snapshots to evaluate; run generate first: %w", err)
		}
	}
	records, err := store.LoadSnapshots(ctx, target)
	if err != nil {
		return err
	}

	svc := newService(cfg)
	// A missing model is a degraded state, not a failure; the service logs it.
	_ = svc.ReloadModel(ctx)

	evaluatedAt := time.Now()
	res, err := svc.Evaluate(ctx, evaluatedAt, records)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	if err := store.SaveAssessments(ctx, runID, evaluatedAt, res.Assessments); err != nil {
		return err
	}

	log.Info(ctx, "evaluation run complete",
		logger.String("runID", runID),
		logger.Int("assessed", len(res.Assessments)),
		logger.Int("rejected", len(res.Failures)),
		logger.Int("duplicates", res.Duplicates),
		logger.Any("ruleOnly", res.RuleOnly))
	for _, f := range res.Failures {
		log.Warn(ctx, "row rejected", logger.Int("index", f.Index), logger.String("productID", f.ProductID), logger.Error(f.Err))
	}

	counts, err := store.ActionCounts(ctx, runID)
	if err != nil {
		return err
	}
	for action, n := range counts {
		log.Info(ctx, "recommended action", logger.String("action", action), logger.Int("rows", n))
	}
	return nil
}

// serveMetrics exposes the Prometheus registry until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Get().Info(ctx, "serving metrics", logger.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Get().Error(ctx, "metrics server failed", logger.Error(err))
	}
}
