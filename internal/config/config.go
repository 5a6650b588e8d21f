// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - Layer file and env on top via Load.
// - External errors are wrapped via this package's sentinel errors.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBPath is the SQLite database holding snapshots and assessments.
	DBPath string `koanf:"db_path"`

	// ModelPath is the risk-model artifact location.
	ModelPath string `koanf:"model_path"`

	// MetricsAddr exposes Prometheus metrics when non-empty, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// WorkerCount sets the number of concurrent scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// Seed fixes every random source: training split, forest growth,
	// synthetic data.
	Seed int64 `koanf:"seed"`

	// Forest hyperparameters.
	Estimators int `koanf:"estimators"`
	MaxDepth   int `koanf:"max_depth"`
	MinLeaf    int `koanf:"min_leaf"`

	// TestFraction is the held-out share of the training input.
	TestFraction float64 `koanf:"test_fraction"`

	// CVFolds sets the cross-validation fold count.
	CVFolds int `koanf:"cv_folds"`

	// TransferSection routes watch-band rows of this section to a
	// higher-turnover store instead of the weekly promotion.
	TransferSection string `koanf:"transfer_section"`

	// FailFast rejects a whole batch on the first bad row instead of
	// skipping it.
	FailFast bool `koanf:"fail_fast"`

	// GenerateProducts sets the synthetic catalog size for `generate`.
	GenerateProducts int `koanf:"generate_products"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		DBPath:           "smartshelf.db",
		ModelPath:        "models/risk_model.json",
		MetricsAddr:      "",
		WorkerCount:      runtime.NumCPU(),
		Seed:             42,
		Estimators:       100,
		MaxDepth:         5,
		MinLeaf:          2,
		TestFraction:     0.2,
		CVFolds:          5,
		TransferSection:  "JARDIM",
		FailFast:         false,
		GenerateProducts: 5000,
	}
}
