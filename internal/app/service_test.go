package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/matchreport/internal/adapters/repository"
	service "github.com/okian/matchreport/internal/app"
	"github.com/okian/matchreport/internal/domain/access"
	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/internal/domain/stats"
	"github.com/okian/matchreport/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newReport() model.Report {
	return model.Report{
		PlayerName:    "Sam Kerr",
		Opponent:      "Arsenal",
		MinutesPlayed: model.Float64(60),
		Actions: []model.Action{
			{ActionNumber: 2, Minute: 30.5, Score: -0.05},
			{ActionNumber: 1, Minute: 10.99, Score: 0.15},
		},
		Stats: model.StatBag{
			"passes":           float64(8),
			"passes_attempted": float64(10),
			"xg":               0.4,
			"xg_per90":         0.6,
		},
	}
}

func TestService_Score(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1))

		Convey("When scoring an unsaved report", func() {
			view, err := svc.Score(ctx, newReport(), stats.Hint{})

			Convey("Then the summary and stats are derived", func() {
				So(err, ShouldBeNil)
				So(view.ID, ShouldEqual, "")
				So(view.Summary.RawScore, ShouldEqual, "0.10000")
				So(view.Summary.R90Score, ShouldEqual, "0.15")
				So(view.Summary.XGChain, ShouldEqual, "0.150")
				So(view.Summary.Actions[0].ActionNumber, ShouldEqual, 1)
				So(view.Summary.Actions[0].MinuteDisplay, ShouldEqual, "10.99")
				So(len(view.Stats), ShouldEqual, 2)
				So(view.Stats[0].Key, ShouldEqual, "passes")
				So(view.Stats[0].Percentage, ShouldEqual, 80.0)
				So(*view.Stats[1].Per90, ShouldEqual, 0.6)
			})
		})

		Convey("When scoring a report with a NaN score", func() {
			r := newReport()
			r.Actions[0].Score = math.NaN()
			_, err := svc.Score(ctx, r, stats.Hint{})

			Convey("Then it is rejected as invalid input", func() {
				So(errors.Is(err, scoring.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When a hint selects stats", func() {
			view, err := svc.Score(ctx, newReport(), stats.Hint{StatsOrder: []string{"xg"}})

			Convey("Then only the listed stats are shown", func() {
				So(err, ShouldBeNil)
				So(len(view.Stats), ShouldEqual, 1)
				So(view.Stats[0].Key, ShouldEqual, "xg")
			})
		})
	})
}

func TestService_ReportLifecycle(t *testing.T) {
	Convey("Given a service over a memory store", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithStore(repository.NewMemoryStore(), "memory"),
			service.WithWorkerCount(1),
			service.WithQueueSize(8),
		)

		Convey("When creating a report without a player", func() {
			r := newReport()
			r.PlayerName = " "
			_, err := svc.CreateReport(ctx, r)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrMissingPlayer), ShouldBeTrue)
				So(errors.Is(err, scoring.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When creating a report with duplicate action numbers", func() {
			r := newReport()
			r.Actions[1].ActionNumber = 2
			_, err := svc.CreateReport(ctx, r)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, scoring.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When a report is created", func() {
			created, err := svc.CreateReport(ctx, newReport())
			So(err, ShouldBeNil)

			Convey("Then it has an id and a recompute is pending", func() {
				So(created.ID, ShouldNotBeEmpty)
				So(created.Summary.RawScore, ShouldEqual, "0.10000")
				st := svc.GetStats(ctx)
				So(st.Reports, ShouldEqual, 1)
				So(st.QueueLength, ShouldEqual, 1)
				So(st.PendingRecalcs, ShouldEqual, 1)
			})

			Convey("Then a second read is served from the summary cache", func() {
				view, err := svc.GetReport(ctx, created.ID, stats.Hint{})
				So(err, ShouldBeNil)
				So(view.Cached, ShouldBeTrue)
			})

			Convey("Then repeated edits coalesce into one pending recompute", func() {
				_, err := svc.ReplaceStats(ctx, created.ID, model.StatBag{"xa": 0.2})
				So(err, ShouldBeNil)
				So(svc.GetStats(ctx).QueueLength, ShouldEqual, 1)
			})

			Convey("Then replacing actions recomputes the summary", func() {
				view, err := svc.ReplaceActions(ctx, created.ID, []model.Action{
					{ActionNumber: 1, Minute: 5, Score: 0.2},
				})
				So(err, ShouldBeNil)
				So(view.Summary.RawScore, ShouldEqual, "0.20000")
				So(view.Summary.ActionCount, ShouldEqual, 1)
				So(view.Cached, ShouldBeFalse)
			})

			Convey("Then invalid actions leave the report unchanged", func() {
				_, err := svc.ReplaceActions(ctx, created.ID, []model.Action{{ActionNumber: 1, Minute: -1}})
				So(errors.Is(err, scoring.ErrInvalidInput), ShouldBeTrue)
				view, _ := svc.GetReport(ctx, created.ID, stats.Hint{})
				So(view.Summary.ActionCount, ShouldEqual, 2)
			})

			Convey("Then a stored r90 wins over the derived one", func() {
				upd := model.Report{ID: created.ID, PlayerName: "Sam Kerr", R90Score: model.Float64(0.31), MinutesPlayed: model.Float64(60)}
				view, err := svc.UpdateReport(ctx, upd)
				So(err, ShouldBeNil)
				So(view.Summary.R90Score, ShouldEqual, "0.31")
				So(*view.StoredR90, ShouldEqual, 0.31)
			})

			Convey("Then updating with negative minutes fails", func() {
				upd := model.Report{ID: created.ID, PlayerName: "Sam Kerr", MinutesPlayed: model.Float64(-3)}
				_, err := svc.UpdateReport(ctx, upd)
				So(errors.Is(err, scoring.ErrInvalidInput), ShouldBeTrue)
			})

			Convey("Then listing shows the header with scores", func() {
				list, err := svc.ListReports(ctx, 0)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 1)
				So(list[0].RawScore, ShouldEqual, "0.10000")
				So(list[0].ActionCount, ShouldEqual, 2)
			})

			Convey("Then deleting makes it unknown", func() {
				So(svc.DeleteReport(ctx, created.ID), ShouldBeNil)
				_, err := svc.GetReport(ctx, created.ID, stats.Hint{})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(svc.Recalculate(ctx, created.ID), repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the recompute queue is full", func() {
			small := service.New(service.WithQueueSize(1), service.WithWorkerCount(1))
			a, err := small.CreateReport(ctx, newReport())
			So(err, ShouldBeNil)
			b, err := small.CreateReport(ctx, newReport())

			Convey("Then the mutation still succeeds", func() {
				So(err, ShouldBeNil)
				So(b.ID, ShouldNotEqual, a.ID)
			})

			Convey("Then an explicit recalculation reports backpressure", func() {
				err := small.Recalculate(ctx, b.ID)
				So(err, ShouldNotBeNil)
				So(small.GetStats(ctx).PendingRecalcs, ShouldEqual, 1)
			})
		})
	})
}

func TestService_StalledClockServesFreshSummary(t *testing.T) {
	Convey("Given a service over a SQLite store with a stalled clock", t, func() {
		ctx := context.Background()
		db, err := repository.OpenSQLite(ctx, ":memory:")
		So(err, ShouldBeNil)
		defer func() { _ = db.Close() }()

		stamp := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
		store := repository.NewSQLiteStore(db, repository.WithClock(func() time.Time { return stamp }))
		svc := service.New(service.WithStore(store, "sqlite"), service.WithWorkerCount(1))

		created, err := svc.CreateReport(ctx, newReport())
		So(err, ShouldBeNil)
		_, err = svc.GetReport(ctx, created.ID, stats.Hint{})
		So(err, ShouldBeNil)

		Convey("When the actions are replaced", func() {
			view, err := svc.ReplaceActions(ctx, created.ID, []model.Action{{ActionNumber: 1, Minute: 5, Score: 0.2}})

			Convey("Then the summary reflects the new actions", func() {
				So(err, ShouldBeNil)
				So(view.Summary.RawScore, ShouldEqual, "0.20000")
				So(len(view.Summary.Actions), ShouldEqual, 1)

				got, err := svc.GetReport(ctx, created.ID, stats.Hint{})
				So(err, ShouldBeNil)
				So(got.Summary.RawScore, ShouldEqual, "0.20000")
			})
		})
	})
}

func TestService_Access(t *testing.T) {
	Convey("Given a service that only lets admins mutate", t, func() {
		svc := service.New(service.WithAuthorizer(access.NewRoleAuthorizer("admin")))
		ctx := context.Background()

		So(svc.CanMutate(ctx, "admin"), ShouldBeTrue)
		So(svc.CanMutate(ctx, "analyst"), ShouldBeFalse)
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(16))
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When reports are created", func() {
			created, err := svc.CreateReport(ctx, newReport())
			So(err, ShouldBeNil)

			Convey("Then workers drain the queue", func() {
				deadline := time.Now().Add(2 * time.Second)
				for svc.GetStats(ctx).ProcessedRecalcs == 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				st := svc.GetStats(ctx)
				So(st.Started, ShouldBeTrue)
				So(st.ProcessedRecalcs, ShouldEqual, 1)
				So(st.PendingRecalcs, ShouldEqual, 0)

				view, err := svc.GetReport(ctx, created.ID, stats.Hint{})
				So(err, ShouldBeNil)
				So(view.Cached, ShouldBeTrue)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})

		Convey("When stopped twice", func() {
			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.GetStats(ctx).Started, ShouldBeFalse)
		})
	})
}
