package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DataCraft-Labs/smartshelf/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no file and no environment overrides", t, func() {
		t.Setenv("SMARTSHELF_CONFIG", "")

		Convey("When the configuration is loaded", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)

			Convey("Then the defaults apply", func() {
				So(cfg.LogLevel, ShouldEqual, "info")
				So(cfg.DBPath, ShouldEqual, "smartshelf.db")
				So(cfg.ModelPath, ShouldEqual, "models/risk_model.json")
				So(cfg.Estimators, ShouldEqual, 100)
				So(cfg.MaxDepth, ShouldEqual, 5)
				So(cfg.TestFraction, ShouldEqual, 0.2)
				So(cfg.CVFolds, ShouldEqual, 5)
				So(cfg.TransferSection, ShouldEqual, "JARDIM")
				So(cfg.WorkerCount, ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	Convey("Given environment overrides", t, func() {
		t.Setenv("SMARTSHELF_CONFIG", "")
		t.Setenv("SMARTSHELF_LOG_LEVEL", "debug")
		t.Setenv("SMARTSHELF_DB_PATH", "/tmp/other.db")
		t.Setenv("SMARTSHELF_ESTIMATORS", "250")
		t.Setenv("SMARTSHELF_FAIL_FAST", "true")

		Convey("When the configuration is loaded", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)

			Convey("Then env wins over defaults", func() {
				So(cfg.LogLevel, ShouldEqual, "debug")
				So(cfg.DBPath, ShouldEqual, "/tmp/other.db")
				So(cfg.Estimators, ShouldEqual, 250)
				So(cfg.FailFast, ShouldBeTrue)
			})

			Convey("And untouched fields keep their defaults", func() {
				So(cfg.MaxDepth, ShouldEqual, 5)
				So(cfg.TransferSection, ShouldEqual, "JARDIM")
			})
		})
	})
}

func TestLoadFileThenEnv(t *testing.T) {
	Convey("Given a config file and one env override", t, func() {
		path := filepath.Join(t.TempDir(), "smartshelf.yaml")
		yaml := "log_level: warn\nmax_depth: 8\nmetrics_addr: \":9090\"\n"
		So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)

		t.Setenv("SMARTSHELF_CONFIG", path)
		t.Setenv("SMARTSHELF_LOG_LEVEL", "error")

		Convey("When the configuration is loaded", func() {
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)

			Convey("Then env beats file beats defaults", func() {
				So(cfg.LogLevel, ShouldEqual, "error")
				So(cfg.MaxDepth, ShouldEqual, 8)
				So(cfg.MetricsAddr, ShouldEqual, ":9090")
				So(cfg.Estimators, ShouldEqual, 100)
			})
		})
	})

	Convey("Given a config file that does not exist", t, func() {
		t.Setenv("SMARTSHELF_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

		Convey("When the configuration is loaded", func() {
			_, err := config.Load(context.Background())

			Convey("Then loading fails with the load sentinel", func() {
				So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
			})
		})
	})
}

func TestLoadValidation(t *testing.T) {
	Convey("Given invalid settings in the environment", t, func() {
		t.Setenv("SMARTSHELF_CONFIG", "")

		cases := map[string]struct{ key, value string }{
			"empty db path":         {"SMARTSHELF_DB_PATH", ""},
			"empty model path":      {"SMARTSHELF_MODEL_PATH", ""},
			"zero workers":          {"SMARTSHELF_WORKER_COUNT", "0"},
			"test fraction too big": {"SMARTSHELF_TEST_FRACTION", "1.5"},
			"test fraction zero":    {"SMARTSHELF_TEST_FRACTION", "0"},
			"single fold":           {"SMARTSHELF_CV_FOLDS", "1"},
		}

		for name, tc := range cases {
			Convey("When loading with "+name, func() {
				t.Setenv(tc.key, tc.value)

				_, err := config.Load(context.Background())
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		}
	})
}
