package app

import (
	"runtime"

	"github.com/DataCraft-Labs/smartshelf/internal/domain/classifier"
	"github.com/DataCraft-Labs/smartshelf/internal/domain/policy"
	"github.com/DataCraft-Labs/smartshelf/pkg/logger"
)

// Default service configuration.
var defaultWorkerCount = runtime.NumCPU() //nolint:gochecknoglobals // derived from the host at startup

const defaultDedupeSize = 500_000

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithModelPath sets the artifact location used by ReloadModel and Train.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithWorkerCount sets the number of concurrent scoring workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithDedupeSize bounds the per-batch duplicate-suppression map.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithFailFast rejects a whole batch on the first invalid row instead of
// reporting it and continuing.
func WithFailFast(failFast bool) Option {
	return func(s *Service) {
		s.failFast = failFast
	}
}

// WithPolicy sets a custom decision table.
func WithPolicy(t *policy.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.table = t
		}
	}
}

// WithTrainer sets a custom classifier trainer.
func WithTrainer(t *classifier.Trainer) Option {
	return func(s *Service) {
		if t != nil {
			s.trainer = t
		}
	}
}

// WithHorizonEstimator injects a per-product time-series strategy for
// refining days-to-action.
func WithHorizonEstimator(h HorizonEstimator) Option {
	return func(s *Service) {
		s.horizon = h
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
