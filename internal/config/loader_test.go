package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/matchreport/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"MATCHREPORT_CONFIG",
	"MATCHREPORT_ADDR",
	"MATCHREPORT_QUEUE_SIZE",
	"MATCHREPORT_WORKER_COUNT",
	"MATCHREPORT_STORE_DRIVER",
	"MATCHREPORT_MINUTE_STYLE",
	"MATCHREPORT_KAFKA_BROKERS",
	"MATCHREPORT_STRICT_STAT_KINDS",
	"MATCHREPORT_MUTATING_ROLES",
	"MATCHREPORT_CORS_ORIGINS",
}

func clearConfigEnvVars() {
	for _, name := range configEnvVars {
		_ = os.Unsetenv(name)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matchreport.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load()

			convey.Convey("Then the defaults come back", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
			})
		})

		convey.Convey("When loading with environment variables", func() {
			_ = os.Setenv("MATCHREPORT_ADDR", ":8080")
			_ = os.Setenv("MATCHREPORT_QUEUE_SIZE", "64")
			_ = os.Setenv("MATCHREPORT_WORKER_COUNT", "3")
			_ = os.Setenv("MATCHREPORT_MINUTE_STYLE", "legacy")
			_ = os.Setenv("MATCHREPORT_KAFKA_BROKERS", "k1:9092,k2:9092")
			_ = os.Setenv("MATCHREPORT_STRICT_STAT_KINDS", "true")

			cfg, err := config.Load()

			convey.Convey("Then env overrides the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.MinuteStyle, convey.ShouldEqual, "legacy")
				convey.So(cfg.KafkaBrokers, convey.ShouldResemble, []string{"k1:9092", "k2:9092"})
				convey.So(cfg.StrictStatKinds, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When list keys come from the environment", func() {
			_ = os.Setenv("MATCHREPORT_MUTATING_ROLES", "admin, analyst")
			_ = os.Setenv("MATCHREPORT_CORS_ORIGINS", "https://a.example,,https://b.example")

			cfg, err := config.Load()

			convey.Convey("Then each value is split on commas", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MutatingRoles, convey.ShouldResemble, []string{"admin", "analyst"})
				convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
			})
		})

		convey.Convey("When loading from a YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
store_driver: sqlite
sqlite_dsn: reports.db
worker_count: 4
stat_kinds:
  progressive_passes: rate
  xg: count
mutating_roles: [admin]
`)
			_ = os.Setenv("MATCHREPORT_CONFIG", path)

			cfg, err := config.Load()

			convey.Convey("Then the file values apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.SQLiteDSN, convey.ShouldEqual, "reports.db")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.StatKinds["progressive_passes"], convey.ShouldEqual, "rate")
				convey.So(cfg.MutatingRoles, convey.ShouldResemble, []string{"admin"})
			})

			convey.Convey("Then env still wins over the file", func() {
				_ = os.Setenv("MATCHREPORT_WORKER_COUNT", "9")
				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When the file is missing", func() {
			_ = os.Setenv("MATCHREPORT_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
			_, err := config.Load()

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When env sets an invalid value", func() {
			_ = os.Setenv("MATCHREPORT_STORE_DRIVER", "mongo")
			_, err := config.Load()

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
