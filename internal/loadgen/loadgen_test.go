package loadgen_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchreport/internal/adapters/http/api"
	service "github.com/okian/matchreport/internal/app"
	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/internal/loadgen"
	"github.com/okian/matchreport/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestGenerator(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a := loadgen.NewGenerator(7).Reports(5, 12)
		b := loadgen.NewGenerator(7).Reports(5, 12)

		Convey("They produce the same matches and actions", func() {
			So(a, ShouldHaveLength, 5)
			for i := range a {
				So(a[i].PlayerName, ShouldNotEqual, b[i].PlayerName)
				So(a[i].Actions, ShouldResemble, b[i].Actions)
				So(*a[i].MinutesPlayed, ShouldEqual, *b[i].MinutesPlayed)
			}
		})

		Convey("Every generated report scores", func() {
			for _, r := range a {
				So(r.Actions, ShouldHaveLength, 12)
				So(scoring.Validate(r), ShouldBeNil)
				_, err := scoring.Summarize(r)
				So(err, ShouldBeNil)
			}
		})

		Convey("Action numbers are a permutation", func() {
			seen := map[int]bool{}
			for _, act := range a[0].Actions {
				seen[act.ActionNumber] = true
			}
			So(seen, ShouldHaveLength, 12)
			So(seen[1], ShouldBeTrue)
			So(seen[12], ShouldBeTrue)
		})
	})
}

func newService() *httptest.Server {
	svc := service.New(service.WithWorkerCount(1))
	return httptest.NewServer(api.NewServer(svc, svc).Handler())
}

func TestRunner(t *testing.T) {
	Convey("Given a running service", t, func() {
		ts := newService()
		defer ts.Close()

		Convey("A load run creates and verifies every report", func() {
			runner := loadgen.NewRunner(loadgen.Config{
				BaseURL:          ts.URL,
				Reports:          25,
				ActionsPerReport: 8,
				Workers:          4,
				Seed:             42,
			}, logger.Get())

			st, err := runner.Run(context.Background())
			So(err, ShouldBeNil)
			So(st.Generated, ShouldEqual, 25)
			So(st.Created, ShouldEqual, 25)
			So(st.Failed, ShouldEqual, 0)
			So(st.Verified, ShouldEqual, 25)
			So(st.Mismatched, ShouldEqual, 0)
		})

		Convey("A role that may not write fails every create", func() {
			runner := loadgen.NewRunner(loadgen.Config{
				BaseURL: ts.URL,
				Reports: 3,
				Workers: 1,
				Role:    "viewer",
			}, logger.Get())

			st, err := runner.Run(context.Background())
			So(err, ShouldBeNil)
			So(st.Created, ShouldEqual, 0)
			So(st.Failed, ShouldEqual, 3)
		})

		Convey("Defaults fill unset fields", func() {
			cfg := loadgen.NewRunner(loadgen.Config{}, logger.Get()).Config()
			So(cfg.BaseURL, ShouldEqual, loadgen.DefaultBaseURL)
			So(cfg.Reports, ShouldEqual, loadgen.DefaultReports)
			So(cfg.Role, ShouldEqual, loadgen.DefaultRole)
			So(cfg.Workers, ShouldBeGreaterThan, 0)
		})
	})
}

func TestRunnerUnhealthy(t *testing.T) {
	Convey("Given a service that fails health checks", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		runner := loadgen.NewRunner(loadgen.Config{BaseURL: ts.URL, Reports: 1}, logger.Get())
		_, err := runner.Run(context.Background())
		So(errors.Is(err, loadgen.ErrStatus), ShouldBeTrue)
	})
}

func TestClient(t *testing.T) {
	Convey("Given a client for a running service", t, func() {
		ts := newService()
		defer ts.Close()
		client := loadgen.NewClient(ts.URL, "admin", 5*time.Second)
		ctx := context.Background()

		Convey("It round-trips a generated report", func() {
			report := loadgen.NewGenerator(1).Report(3)
			created, err := client.Create(ctx, report)
			So(err, ShouldBeNil)

			got, err := client.Get(ctx, created.ID)
			So(err, ShouldBeNil)
			So(got.PlayerName, ShouldEqual, report.PlayerName)
			So(got.Summary.ActionCount, ShouldEqual, 3)

			So(client.Delete(ctx, created.ID), ShouldBeNil)
			_, err = client.Get(ctx, created.ID)
			So(errors.Is(err, loadgen.ErrStatus), ShouldBeTrue)
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Throughput is zero without a duration", t, func() {
		So(loadgen.Stats{Created: 10}.ReportsPerSecond(), ShouldEqual, 0)
		So(loadgen.Stats{Created: 10, Duration: 2 * time.Second}.ReportsPerSecond(), ShouldEqual, 5)
	})
}
