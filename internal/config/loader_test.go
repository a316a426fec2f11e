package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/geocluster/internal/config"
)

var configEnvVars = []string{
	"GEOCLUSTER_CONFIG",
	"GEOCLUSTER_ADDR",
	"GEOCLUSTER_QUEUE_SIZE",
	"GEOCLUSTER_WORKER_COUNT",
	"GEOCLUSTER_MAX_ITERATIONS",
	"GEOCLUSTER_TOLERANCE",
	"GEOCLUSTER_LOG_FORMAT",
	"GEOCLUSTER_JOB_TIMEOUT",
	"GEOCLUSTER_MAX_ZOOM",
}

func clearConfigEnvVars() {
	for _, name := range configEnvVars {
		_ = os.Unsetenv(name)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geocluster.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.Seed, convey.ShouldEqual, 42)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GEOCLUSTER_ADDR", ":8080")
			_ = os.Setenv("GEOCLUSTER_QUEUE_SIZE", "64")
			_ = os.Setenv("GEOCLUSTER_WORKER_COUNT", "3")
			_ = os.Setenv("GEOCLUSTER_TOLERANCE", "0.001")
			_ = os.Setenv("GEOCLUSTER_JOB_TIMEOUT", "45s")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.Tolerance, convey.ShouldEqual, 0.001)
				convey.So(cfg.JobTimeout, convey.ShouldEqual, 45*time.Second)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
log_format: json
max_iterations: 250
max_zoom: 12
palette:
  - "#112233"
  - "#445566"
`)
			_ = os.Setenv("GEOCLUSTER_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.MaxIterations, convey.ShouldEqual, 250)
				convey.So(cfg.MaxZoom, convey.ShouldEqual, 12)
				convey.So(cfg.Palette, convey.ShouldResemble, []string{"#112233", "#445566"})
			})

			convey.Convey("And env vars take precedence over the file", func() {
				_ = os.Setenv("GEOCLUSTER_MAX_ZOOM", "9")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxZoom, convey.ShouldEqual, 9)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("GEOCLUSTER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value fails validation", func() {
			_ = os.Setenv("GEOCLUSTER_LOG_FORMAT", "xml")
			_, err := config.Load(ctx)

			convey.Convey("Then an invalid config error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
