package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchreport/internal/adapters/repository"
	"github.com/okian/matchreport/internal/config"
	"github.com/okian/matchreport/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given the store drivers", t, func() {
		ctx := context.Background()

		convey.Convey("When the driver is memory", func() {
			cfg := config.New()
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			_, ok := store.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("When the driver is sqlite", func() {
			cfg := config.New()
			cfg.StoreDriver = config.DriverSQLite
			cfg.SQLiteDSN = filepath.Join(t.TempDir(), "reports.db")

			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			sqlStore, ok := store.(*repository.SQLiteStore)
			convey.So(ok, convey.ShouldBeTrue)
			defer func() { _ = sqlStore.Close() }()

			n, err := store.Count(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 0)
		})

		convey.Convey("When the driver is unknown", func() {
			cfg := config.New()
			cfg.StoreDriver = "postgres"
			_, err := openStore(ctx, cfg)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestNewService(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.WorkerCount = 2

		convey.Convey("Then the service is wired from it", func() {
			svc, err := newService(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)

			st := svc.GetStats(ctx)
			convey.So(st.StoreDriver, convey.ShouldEqual, config.DriverMemory)
			convey.So(st.WorkerCount, convey.ShouldEqual, 2)
			convey.So(st.MinuteStyle, convey.ShouldEqual, "carry")
			convey.So(st.PublishEnabled, convey.ShouldBeFalse)
		})

		convey.Convey("Then an invalid stat kind is rejected", func() {
			cfg.StatKinds = map[string]string{"passes": "sometimes"}
			_, err := newService(ctx, cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Then brokers without a topic are rejected", func() {
			cfg.KafkaBrokers = []string{"localhost:9092"}
			cfg.KafkaTopic = ""
			_, err := newService(ctx, cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled HTTP handler", t, func() {
		cfg := config.New()
		svc, err := newService(context.Background(), cfg)
		convey.So(err, convey.ShouldBeNil)

		ts := httptest.NewServer(newHandler(cfg, svc))
		defer ts.Close()

		for _, path := range []string{"/healthz", "/stats", "/reports", "/api-docs", "/openapi.yaml", "/openapi.json"} {
			resp, err := ts.Client().Get(ts.URL + path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			_ = resp.Body.Close()
		}
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a cancelled context", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.WorkerCount = 1

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("Then run shuts down cleanly", func() {
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()

			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(10 * time.Second):
				convey.So("run did not return", convey.ShouldBeEmpty)
			}
		})
	})

	convey.Convey("Given an address that cannot be bound", t, func() {
		cfg := config.New()
		cfg.Addr = "256.0.0.1:99999"

		err := run(context.Background(), cfg)
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		svc, err := newService(context.Background(), config.New())
		convey.So(err, convey.ShouldBeNil)

		convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
		convey.So(func() { updateServiceMetrics(context.Background(), svc) }, convey.ShouldNotPanic)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
	})
}
