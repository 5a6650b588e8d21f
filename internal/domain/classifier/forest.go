// Package classifier trains and serves the binary expiry-risk model: a
// random forest of CART trees over the derived inventory features, with
// category encodings frozen at training time.
package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/DataCraft-Labs/smartshelf/internal/domain/snapshot"
)

// Default training configuration constants.
const (
	defaultEstimators   = 100
	defaultMaxDepth     = 5
	defaultMinLeaf      = 2
	defaultSeed         = 42
	defaultTestFraction = 0.2
	defaultFolds        = 5
	minTrainingRows     = 50
)

// Status reports how a training run ended. Degenerate outcomes are statuses
// rather than errors so callers can log and move on.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient data"
	StatusDegenerateLabels Status = "degenerate labels"
)

// Report carries the training diagnostics: the cross-validated F1 score on
// the training portion and the held-out test metrics.
type Report struct {
	CVF1      []float64
	CVF1Mean  float64
	CVF1Std   float64
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	// Confusion is indexed [actual][predicted], 0 = will not expire.
	Confusion  [2][2]int
	Importance map[string]float64
	TrainRows  int
	TestRows   int
}

// Result is the outcome of a training run. Model is nil unless Status is
// StatusOK.
type Result struct {
	Model  *Model
	Report Report
	Status Status
}

// Model is a trained forest plus the training-time category encoder. It is
// immutable after training and safe for concurrent prediction.
type Model struct {
	Trees     []tree
	Encoder   Encoder
	Features  []string
	TrainedAt time.Time
	Seed      int64
}

// PredictProba returns the class-1 (will expire) probability for an encoded
// feature vector, averaged over the forest's leaf probabilities.
func (m *Model) PredictProba(v []float64) float64 {
	if len(m.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for i := range m.Trees {
		sum += m.Trees[i].predict(v)
	}
	return sum / float64(len(m.Trees))
}

// Option applies a configuration option to the Trainer.
type Option func(*Trainer)

// WithEstimators sets the number of trees in the forest.
func WithEstimators(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.estimators = n
		}
	}
}

// WithMaxDepth sets the maximum tree depth.
func WithMaxDepth(d int) Option {
	return func(t *Trainer) {
		if d > 0 {
			t.maxDepth = d
		}
	}
}

// WithMinLeaf sets the minimum samples per leaf.
func WithMinLeaf(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.minLeaf = n
		}
	}
}

// WithSeed fixes the random seed so the split and the test report are
// reproducible.
func WithSeed(seed int64) Option {
	return func(t *Trainer) { t.seed = seed }
}

// WithTestFraction sets the held-out fraction of the input.
func WithTestFraction(f float64) Option {
	return func(t *Trainer) {
		if f > 0 && f < 1 {
			t.testFraction = f
		}
	}
}

// WithFolds sets the cross-validation fold count.
func WithFolds(k int) Option {
	return func(t *Trainer) {
		if k > 1 {
			t.folds = k
		}
	}
}

// Trainer holds the forest hyperparameters. Defaults mirror the production
// model; none of them are load-bearing for correctness.
type Trainer struct {
	estimators   int
	maxDepth     int
	minLeaf      int
	seed         int64
	testFraction float64
	folds        int
}

// NewTrainer creates a trainer with configuration options.
func NewTrainer(opts ...Option) *Trainer {
	t := &Trainer{
		estimators:   defaultEstimators,
		maxDepth:     defaultMaxDepth,
		minLeaf:      defaultMinLeaf,
		seed:         defaultSeed,
		testFraction: defaultTestFraction,
		folds:        defaultFolds,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Train fits the forest on labeled feature rows. The flow mirrors the
// offline job: derive the encoder, split 80/20, cross-validate on the
// training portion for the F1 diagnostic, fit, then score the held-out set.
func (t *Trainer) Train(ctx context.Context, rows []snapshot.Features) (Result, error) {
	if len(rows) < minTrainingRows {
		return Result{Status: StatusInsufficientData, Report: Report{TrainRows: len(rows)}}, nil
	}

	enc := NewEncoder(rows)
	x := make([][]float64, len(rows))
	y := make([]bool, len(rows))
	positives := 0
	for i, r := range rows {
		x[i], _ = Vector(r, enc)
		y[i] = r.WillExpire
		if r.WillExpire {
			positives++
		}
	}
	if positives == 0 || positives == len(rows) {
		return Result{Status: StatusDegenerateLabels, Report: Report{TrainRows: len(rows)}}, nil
	}

	rng := rand.New(rand.NewSource(t.seed))
	perm := rng.Perm(len(rows))
	testN := int(float64(len(rows)) * t.testFraction)
	testIdx := perm[:testN]
	trainIdx := perm[testN:]

	report := Report{TrainRows: len(trainIdx), TestRows: len(testIdx)}

	// Cross-validation diagnostic on the training portion.
	cv, err := t.crossValidate(ctx, x, y, trainIdx)
	if err != nil {
		return Result{}, err
	}
	report.CVF1 = cv
	report.CVF1Mean, report.CVF1Std = meanStd(cv)

	importance := make([]float64, len(featureNames))
	trees, err := t.fit(ctx, x, y, trainIdx, rng, importance)
	if err != nil {
		return Result{}, err
	}

	model := &Model{
		Trees:     trees,
		Encoder:   enc,
		Features:  featureNames,
		TrainedAt: time.Now().UTC(),
		Seed:      t.seed,
	}

	for _, i := range testIdx {
		actual := 0
		if y[i] {
			actual = 1
		}
		predicted := 0
		if model.PredictProba(x[i]) > 0.5 {
			predicted = 1
		}
		report.Confusion[actual][predicted]++
	}
	report.Accuracy, report.Precision, report.Recall, report.F1 = scores(report.Confusion)

	report.Importance = make(map[string]float64, len(featureNames))
	total := 0.0
	for _, v := range importance {
		total += v
	}
	for i, name := range featureNames {
		if total > 0 {
			report.Importance[name] = importance[i] / total
		} else {
			report.Importance[name] = 0
		}
	}

	return Result{Model: model, Report: report, Status: StatusOK}, nil
}

// fit grows the forest on bootstrap samples of idx.
func (t *Trainer) fit(ctx context.Context, x [][]float64, y []bool, idx []int, rng *rand.Rand, importance []float64) ([]tree, error) {
	params := treeParams{
		maxDepth: t.maxDepth,
		minLeaf:  t.minLeaf,
		mtry:     mtryFor(len(featureNames)),
	}
	trees := make([]tree, 0, t.estimators)
	for i := 0; i < t.estimators; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training cancelled: %w", err)
		}
		sample := make([]int, len(idx))
		for j := range sample {
			sample[j] = idx[rng.Intn(len(idx))]
		}
		trees = append(trees, growTree(x, y, sample, params, rng, importance))
	}
	return trees, nil
}

// crossValidate runs k-fold CV over idx, reporting the per-fold F1 score.
func (t *Trainer) crossValidate(ctx context.Context, x [][]float64, y []bool, idx []int) ([]float64, error) {
	folds := t.folds
	if folds > len(idx) {
		folds = len(idx)
	}
	scoresOut := make([]float64, 0, folds)
	for k := 0; k < folds; k++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cross-validation cancelled: %w", err)
		}
		var trainIdx, holdIdx []int
		for i, id := range idx {
			if i%folds == k {
				holdIdx = append(holdIdx, id)
			} else {
				trainIdx = append(trainIdx, id)
			}
		}

		foldRng := rand.New(rand.NewSource(t.seed + int64(k) + 1))
		importance := make([]float64, len(featureNames))
		trees, err := t.fit(ctx, x, y, trainIdx, foldRng, importance)
		if err != nil {
			return nil, err
		}
		m := Model{Trees: trees}

		var confusion [2][2]int
		for _, i := range holdIdx {
			actual := 0
			if y[i] {
				actual = 1
			}
			predicted := 0
			if m.PredictProba(x[i]) > 0.5 {
				predicted = 1
			}
			confusion[actual][predicted]++
		}
		_, _, _, f1 := scores(confusion)
		scoresOut = append(scoresOut, f1)
	}
	return scoresOut, nil
}

// mtryFor is the per-split feature sample size, sqrt of the feature count.
func mtryFor(n int) int {
	m := int(math.Sqrt(float64(n)))
	if m < 1 {
		m = 1
	}
	return m
}

func scores(c [2][2]int) (accuracy, precision, recall, f1 float64) {
	tp := float64(c[1][1])
	fp := float64(c[0][1])
	fn := float64(c[1][0])
	tn := float64(c[0][0])

	total := tp + fp + fn + tn
	if total > 0 {
		accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return accuracy, precision, recall, f1
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))
	for _, v := range xs {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(xs)))
	return mean, std
}
