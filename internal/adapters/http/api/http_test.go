package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchreport/internal/adapters/http/api"
	"github.com/okian/matchreport/internal/adapters/mq/queue"
	"github.com/okian/matchreport/internal/adapters/repository"
	service "github.com/okian/matchreport/internal/app"
	"github.com/okian/matchreport/internal/domain/access"
	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/internal/domain/types"
	"github.com/okian/matchreport/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

const sampleReport = `{
	"player_name": "Sam Ortiz",
	"opponent": "Rovers",
	"match_date": "2026-03-14",
	"r90_score": null,
	"minutes_played": 45,
	"actions": [
		{"action_number": 2, "minute": 30.5, "score": 0.05, "action_type": "pass", "description": "line break"},
		{"action_number": 1, "minute": 10.25, "score": 0.1, "action_type": "dribble", "description": "beat man"}
	],
	"stats": {"passes": 10, "passes_attempted": 12, "tackles": 3}
}`

func newTestServer(opts ...service.Option) (*httptest.Server, *service.Service) {
	opts = append([]service.Option{service.WithWorkerCount(1)}, opts...)
	svc := service.New(opts...)
	srv := api.NewServer(svc, svc)
	return httptest.NewServer(srv.Handler()), svc
}

func do(ts *httptest.Server, method, path, role, body string) *http.Response {
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	So(err, ShouldBeNil)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set(api.RoleHeader, role)
	}
	resp, err := ts.Client().Do(req)
	So(err, ShouldBeNil)
	return resp
}

func decode(resp *http.Response, v any) {
	defer resp.Body.Close()
	So(json.NewDecoder(resp.Body).Decode(v), ShouldBeNil)
}

func createReport(ts *httptest.Server) types.ReportView {
	resp := do(ts, http.MethodPost, "/reports", "analyst", sampleReport)
	So(resp.StatusCode, ShouldEqual, http.StatusCreated)
	var view types.ReportView
	decode(resp, &view)
	return view
}

func TestScoreEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		ts, _ := newTestServer()
		defer ts.Close()

		Convey("POST /score summarizes without storing", func() {
			resp := do(ts, http.MethodPost, "/score", "", sampleReport)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var view types.ReportView
			decode(resp, &view)
			So(view.ID, ShouldBeEmpty)
			So(view.Summary.RawScore, ShouldEqual, "0.15000")
			So(view.Summary.R90Score, ShouldEqual, "0.30")
			So(view.Summary.ActionCount, ShouldEqual, 2)
			So(view.Summary.Actions[0].ActionNumber, ShouldEqual, 1)
			So(view.Summary.Actions[0].Tier, ShouldEqual, scoring.TierPositive)
			So(view.Stats, ShouldHaveLength, 2)
			So(view.Stats[0].Key, ShouldEqual, "passes")
			So(view.Stats[0].PercentageDisplay, ShouldEqual, "83.3")

			list := do(ts, http.MethodGet, "/reports", "", "")
			var body struct {
				Count int `json:"count"`
			}
			decode(list, &body)
			So(body.Count, ShouldEqual, 0)
		})

		Convey("selected_stats limits the stats shown", func() {
			resp := do(ts, http.MethodPost, "/score?selected_stats=tackles", "", sampleReport)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var view types.ReportView
			decode(resp, &view)
			So(view.Stats, ShouldHaveLength, 1)
			So(view.Stats[0].Key, ShouldEqual, "tackles")
		})

		Convey("malformed JSON is a bad request", func() {
			resp := do(ts, http.MethodPost, "/score", "", `{"player_name":`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("unknown fields are rejected", func() {
			resp := do(ts, http.MethodPost, "/score", "", `{"player_name":"x","mystery":1}`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("negative minutes are invalid input", func() {
			resp := do(ts, http.MethodPost, "/score", "", `{"player_name":"x","minutes_played":-5}`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			var body map[string]string
			decode(resp, &body)
			So(body["code"], ShouldEqual, "bad_request")
		})
	})
}

func TestReportLifecycle(t *testing.T) {
	Convey("Given the API server", t, func() {
		ts, _ := newTestServer()
		defer ts.Close()

		Convey("mutations require an allowed role", func() {
			resp := do(ts, http.MethodPost, "/reports", "", sampleReport)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
			resp.Body.Close()

			resp = do(ts, http.MethodPost, "/reports", "viewer", sampleReport)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
			resp.Body.Close()
		})

		Convey("a created report can be read, listed, changed and deleted", func() {
			created := createReport(ts)
			So(created.ID, ShouldNotBeEmpty)
			So(created.Summary.RawScore, ShouldEqual, "0.15000")
			path := "/reports/" + created.ID

			resp := do(ts, http.MethodGet, path+"?stats_order=tackles,passes", "", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var got types.ReportView
			decode(resp, &got)
			So(got.PlayerName, ShouldEqual, "Sam Ortiz")
			So(got.Stats[0].Key, ShouldEqual, "tackles")

			resp = do(ts, http.MethodGet, "/reports?limit=10", "", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var list struct {
				Reports []types.ReportHeader `json:"reports"`
				Count   int                  `json:"count"`
			}
			decode(resp, &list)
			So(list.Count, ShouldEqual, 1)
			So(list.Reports[0].R90Score, ShouldEqual, "0.30")

			resp = do(ts, http.MethodPut, path, "admin", `{"player_name":"Sam Ortiz","r90_score":1.25,"minutes_played":90}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			decode(resp, &got)
			So(got.Summary.R90Score, ShouldEqual, "1.25")

			resp = do(ts, http.MethodPut, path+"/actions", "admin", `[]`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			decode(resp, &got)
			So(got.Summary.ActionCount, ShouldEqual, 0)
			So(got.Summary.RawScore, ShouldEqual, "1.25000")

			resp = do(ts, http.MethodPut, path+"/stats", "admin", `{"shots": 4}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			decode(resp, &got)
			So(got.Stats, ShouldHaveLength, 1)
			So(got.Stats[0].Key, ShouldEqual, "shots")

			resp = do(ts, http.MethodPost, path+"/recalc", "admin", "")
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
			resp.Body.Close()

			resp = do(ts, http.MethodDelete, path, "admin", "")
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
			resp.Body.Close()

			resp = do(ts, http.MethodGet, path, "", "")
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			resp.Body.Close()
		})

		Convey("missing reports are not found", func() {
			for _, tc := range []struct{ method, path, body string }{
				{http.MethodPut, "/reports/nope", `{"player_name":"x"}`},
				{http.MethodPut, "/reports/nope/actions", `[]`},
				{http.MethodPut, "/reports/nope/stats", `{}`},
				{http.MethodPost, "/reports/nope/recalc", ""},
				{http.MethodDelete, "/reports/nope", ""},
			} {
				resp := do(ts, tc.method, tc.path, "admin", tc.body)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				resp.Body.Close()
			}
		})

		Convey("a bad limit is rejected", func() {
			resp := do(ts, http.MethodGet, "/reports?limit=abc", "", "")
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("a missing player name is rejected", func() {
			resp := do(ts, http.MethodPost, "/reports", "admin", `{"minutes_played":90}`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})
	})
}

func TestRecalcBackpressure(t *testing.T) {
	Convey("Given a server whose recompute queue holds one job and no workers run", t, func() {
		ts, _ := newTestServer(service.WithQueueSize(1))
		defer ts.Close()

		first := createReport(ts)
		second := createReport(ts)

		Convey("the create already filled the queue so an explicit recalc of another report is refused", func() {
			resp := do(ts, http.MethodPost, "/reports/"+second.ID+"/recalc", "admin", "")
			So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
			resp.Body.Close()

			Convey("while a recalc of the pending report is coalesced", func() {
				resp := do(ts, http.MethodPost, "/reports/"+first.ID+"/recalc", "admin", "")
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				resp.Body.Close()
			})
		})
	})
}

func TestStatsAndHealth(t *testing.T) {
	Convey("Given the API server", t, func() {
		ts, svc := newTestServer()
		defer ts.Close()

		Convey("GET /stats reports the service snapshot", func() {
			createReport(ts)
			resp := do(ts, http.MethodGet, "/stats", "", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var st types.ServiceStats
			decode(resp, &st)
			So(st.Reports, ShouldEqual, 1)
			So(st.StoreDriver, ShouldEqual, "memory")
			So(st.WorkerCount, ShouldEqual, 1)
			So(st.Started, ShouldBeFalse)
		})

		Convey("GET /healthz serves metrics", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			defer func() { _ = svc.Stop(context.Background()) }()

			resp := do(ts, http.MethodGet, "/healthz", "", "")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("unsupported methods are rejected by the router", func() {
			resp := do(ts, http.MethodPatch, "/reports", "", "")
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
			resp.Body.Close()
		})
	})
}

func TestHandlerOptions(t *testing.T) {
	Convey("Given a server with CORS origins", t, func() {
		svc := service.New()
		srv := api.NewServer(svc, svc, api.WithCORSOrigins([]string{"https://staff.example"}))
		ts := httptest.NewServer(srv.Handler(func(r *mux.Router) {
			r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
		}))
		defer ts.Close()

		Convey("cross-origin reads carry the allow header", func() {
			req, err := http.NewRequest(http.MethodGet, ts.URL+"/stats", nil)
			So(err, ShouldBeNil)
			req.Header.Set("Origin", "https://staff.example")
			resp, err := ts.Client().Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.Header.Get("Access-Control-Allow-Origin"), ShouldEqual, "https://staff.example")
		})

		Convey("a panicking handler yields a server error", func() {
			resp, err := ts.Client().Get(ts.URL + "/boom")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Wrapped API errors keep both kind and cause", t, func() {
		cause := fmt.Errorf("store: %w", repository.ErrNotFound)
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.op: bad request: store: report not found")

		So(api.Wrap("api.op", nil), ShouldBeNil)
		So(errors.Is(api.Wrap("api.op", queue.ErrFull), queue.ErrFull), ShouldBeTrue)
		So(errors.Is(api.NewKind("api.op", access.ErrForbidden), access.ErrForbidden), ShouldBeTrue)
	})
}
