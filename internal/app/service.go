// Package app wires the risk pipeline together: row validation, duplicate
// suppression, the feature transform, classifier scoring, and the action
// policy. It owns the model handle and swaps it atomically on reload, so
// an in-flight evaluation always completes against the model snapshot it
// started with.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DataCraft-Labs/smartshelf/internal/domain/classifier"
	"github.com/DataCraft-Labs/smartshelf/internal/domain/dedupe"
	"github.com/DataCraft-Labs/smartshelf/internal/domain/feature"
	"github.com/DataCraft-Labs/smartshelf/internal/domain/policy"
	"github.com/DataCraft-Labs/smartshelf/internal/domain/snapshot"
	"github.com/DataCraft-Labs/smartshelf/pkg/logger"
	"github.com/DataCraft-Labs/smartshelf/pkg/metrics"
)

// HorizonEstimator is the seam for a per-product time-series model that can
// refine days-to-action. No production implementation exists yet; the
// default pipeline runs without one.
type HorizonEstimator interface {
	// DaysToAction returns a refined action horizon for the row. The second
	// return is false when the estimator has no model for this product.
	DaysToAction(ctx context.Context, row snapshot.Features) (int, bool)
}

// EvalResult is the outcome of one batch evaluation.
type EvalResult struct {
	Assessments []snapshot.Assessment
	// Failures lists rows rejected at validation, in input order.
	Failures []snapshot.RowError
	// Duplicates counts rows dropped as repeats of an earlier row.
	Duplicates int
	// RuleOnly is true when no model was loaded and the probability-gated
	// rules were skipped for the whole batch.
	RuleOnly bool
}

// ModelStatus describes the currently loaded model, if any.
type ModelStatus struct {
	Loaded    bool
	TrainedAt time.Time
	TreeCount int
	Path      string
}

// Service runs evaluations and training against a shared, read-only model
// handle. Safe for concurrent Evaluate calls.
type Service struct {
	model atomic.Pointer[classifier.Model]

	table       *policy.Table
	trainer     *classifier.Trainer
	modelPath   string
	workerCount int
	dedupeSize  int
	failFast    bool
	horizon     HorizonEstimator
	logger      logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		table:       policy.New(),
		trainer:     classifier.NewTrainer(),
		workerCount: defaultWorkerCount,
		dedupeSize:  defaultDedupeSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}
	return s
}

// SetModel injects a trained model, replacing any current one.
func (s *Service) SetModel(m *classifier.Model) {
	s.model.Store(m)
	metrics.SetModelLoaded(m != nil)
	if m != nil {
		metrics.SetModelTrainedAt(m.TrainedAt)
	}
}

// ReloadModel re-reads the artifact from disk and swaps the handle. On
// failure the current model, if any, stays in place.
func (s *Service) ReloadModel(ctx context.Context) error {
	m, err := classifier.Load(s.modelPath)
	if err != nil {
		s.logger.Warn(ctx, "model reload failed, keeping current model",
			logger.String("path", s.modelPath), logger.Error(err))
		return err
	}
	s.SetModel(m)
	s.logger.Info(ctx, "model loaded",
		logger.String("path", s.modelPath),
		logger.Int("trees", len(m.Trees)),
		logger.String("trainedAt", m.TrainedAt.Format(time.RFC3339)))
	return nil
}

// ModelStatus reports the state of the model handle.
func (s *Service) ModelStatus() ModelStatus {
	m := s.model.Load()
	st := ModelStatus{Path: s.modelPath}
	if m != nil {
		st.Loaded = true
		st.TrainedAt = m.TrainedAt
		st.TreeCount = len(m.Trees)
	}
	return st
}

// Evaluate runs the full pipeline over a raw batch at the given evaluation
// instant. The input is never mutated and assessments are not persisted;
// both are the caller's responsibility.
func (s *Service) Evaluate(ctx context.Context, now time.Time, records []snapshot.Record) (EvalResult, error) {
	start := time.Now()

	snaps, failures, duplicates, err := s.prepare(ctx, records)
	if err != nil {
		return EvalResult{}, err
	}
	res := EvalResult{Failures: failures, Duplicates: duplicates}
	metrics.RecordRowsRejected(len(failures))
	metrics.RecordDuplicateRows(duplicates)

	rows := feature.Transform(now, snaps)

	// One model snapshot for the whole batch; a concurrent reload must not
	// change scoring mid-flight.
	model := s.model.Load()
	if model == nil {
		res.RuleOnly = true
		metrics.RecordFallbackEvaluation()
		s.logger.Warn(ctx, "no model loaded, evaluating with shelf-life rules only")
	}

	res.Assessments = s.assess(ctx, rows, model)

	metrics.RecordRowsEvaluated(len(res.Assessments))
	metrics.ObserveEvaluationDuration(time.Since(start))
	return res, nil
}

// Train fits a new model on the batch, persists the artifact when a path is
// configured, and swaps the handle on success. Degenerate training inputs
// come back as a non-OK Result status, not an error.
func (s *Service) Train(ctx context.Context, now time.Time, records []snapshot.Record) (classifier.Result, error) {
	start := time.Now()

	snaps, failures, duplicates, err := s.prepare(ctx, records)
	if err != nil {
		return classifier.Result{}, err
	}
	if len(failures) > 0 || duplicates > 0 {
		s.logger.Warn(ctx, "training input skipped rows",
			logger.Int("rejected", len(failures)), logger.Int("duplicates", duplicates))
	}

	rows := feature.Transform(now, snaps)
	result, err := s.trainer.Train(ctx, rows)
	if err != nil {
		return classifier.Result{}, fmt.Errorf("train risk model: %w", err)
	}
	metrics.ObserveTrainingDuration(time.Since(start))

	if result.Status != classifier.StatusOK {
		s.logger.Warn(ctx, "training produced no model",
			logger.String("status", string(result.Status)),
			logger.Int("rows", result.Report.TrainRows))
		return result, nil
	}

	s.logger.Info(ctx, "risk model trained",
		logger.Int("trainRows", result.Report.TrainRows),
		logger.Int("testRows", result.Report.TestRows),
		logger.Float64("cvF1Mean", result.Report.CVF1Mean),
		logger.Float64("cvF1Std", result.Report.CVF1Std),
		logger.Float64("testF1", result.Report.F1),
		logger.Float64("testAccuracy", result.Report.Accuracy))

	if s.modelPath != "" {
		if err := result.Model.Save(s.modelPath); err != nil {
			return classifier.Result{}, fmt.Errorf("persist risk model: %w", err)
		}
	}
	s.SetModel(result.Model)
	return result, nil
}

// prepare validates and deduplicates the raw batch.
func (s *Service) prepare(ctx context.Context, records []snapshot.Record) ([]snapshot.Snapshot, []snapshot.RowError, int, error) {
	snaps := make([]snapshot.Snapshot, 0, len(records))
	var failures []snapshot.RowError
	duplicates := 0

	deduper := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	for i, r := range records {
		snap, err := r.Validate()
		if err != nil {
			rowErr := snapshot.RowError{Index: i, ProductID: r.ProductID, Err: err}
			if s.failFast {
				return nil, nil, 0, fmt.Errorf("batch rejected: %w", rowErr)
			}
			failures = append(failures, rowErr)
			continue
		}
		if deduper.SeenAndRecord(ctx, snap.Key()) {
			duplicates++
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, failures, duplicates, nil
}

// assess scores and decides every row, fanning the batch out over the
// worker pool. Output order matches input order.
func (s *Service) assess(ctx context.Context, rows []snapshot.Features, model *classifier.Model) []snapshot.Assessment {
	out := make([]snapshot.Assessment, len(rows))
	if len(rows) == 0 {
		return out
	}

	workers := s.workerCount
	if workers > len(rows) {
		workers = len(rows)
	}
	if workers < 1 {
		workers = 1
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				out[i] = s.assessOne(ctx, rows[i], model)
			}
		}()
	}
	for i := range rows {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return out
}

func (s *Service) assessOne(ctx context.Context, row snapshot.Features, model *classifier.Model) snapshot.Assessment {
	a := snapshot.Assessment{Features: row}

	if model != nil {
		v, unseen := classifier.Vector(row, model.Encoder)
		if unseen > 0 {
			metrics.RecordUnseenCategories(unseen)
			s.logger.Warn(ctx, "categories unseen at training time, using reserved code",
				logger.String("productID", row.ProductID),
				logger.String("storeCode", row.StoreCode),
				logger.String("subsectionCode", row.SubsectionCode))
		}
		a.ExpiryProbability = sql.NullFloat64{Float64: model.PredictProba(v), Valid: true}
	}

	d := s.table.Decide(row.RemainingShelfLife, a.ExpiryProbability, row.Section)
	a.RecommendedAction = d.Action
	a.DaysToAction = d.DaysToAction
	a.Urgency = d.Tier.String()

	// Optional per-product horizon refinement; never applies to rows that
	// already demand immediate action.
	if s.horizon != nil && row.RemainingShelfLife > 0 && d.DaysToAction > 0 {
		if days, ok := s.horizon.DaysToAction(ctx, row); ok {
			a.DaysToAction = days
		}
	}

	metrics.RecordRecommendation(a.Urgency)
	return a
}
