package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/adapters/http/api"
	service "github.com/takumisawano-hash/dodo-demo-sub000/internal/app"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDependencies implements api.Dependencies with canned answers.
type mockDependencies struct {
	mu       sync.Mutex
	seen     map[string]bool
	known    map[string]bool
	syncRes  model.SyncResult
	batchRes model.BatchResult
	report   model.UnifiedReport
	trend    model.TrendReport
	events   []model.AgentEvent
	insights []model.Insight
	err      error

	syncCalls  int
	lastDays   int
	lastAgent  string
	lastInputs []model.Input
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		seen:    make(map[string]bool),
		known:   map[string]bool{"workout": true, "sleep": true},
		syncRes: model.SyncResult{Success: true, InputType: "workout", Insights: []model.Insight{}},
	}
}

func (m *mockDependencies) SeenRequest(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDependencies) UnrecordRequest(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDependencies) HasInputType(inputType string) bool {
	return m.known[inputType]
}

func (m *mockDependencies) SyncDataAcrossAgents(ctx context.Context, userID, inputType string, data map[string]any) model.SyncResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncCalls++
	return m.syncRes
}

func (m *mockDependencies) BatchSync(ctx context.Context, userID string, inputs []model.Input) model.BatchResult {
	m.lastInputs = inputs
	return m.batchRes
}

func (m *mockDependencies) GetUnifiedMetrics(ctx context.Context, userID string) (model.UnifiedReport, error) {
	m.report.UserID = userID
	return m.report, m.err
}

func (m *mockDependencies) GetWeeklyTrend(ctx context.Context, userID string, days int) (model.TrendReport, error) {
	m.lastDays = days
	return m.trend, m.err
}

func (m *mockDependencies) GetAgentData(ctx context.Context, userID, agentID string) ([]model.AgentEvent, error) {
	m.lastAgent = agentID
	return m.events, m.err
}

func (m *mockDependencies) InsightsForAgent(ctx context.Context, userID, agentID string) ([]model.Insight, error) {
	m.lastAgent = agentID
	return m.insights, m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps api.Dependencies, maxBatch int) *http.ServeMux {
	mux := http.NewServeMux()
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, maxBatch)
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps, 10)

		Convey("Then the health endpoint should expose metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint should return JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats, ShouldContainKey, "uptime_seconds")
		})

		Convey("Then a wrong method should be rejected", func() {
			w := do(mux, http.MethodGet, "/v1/sync", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSyncHandler(t *testing.T) {
	Convey("Given the sync endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps, 2)

		Convey("When a valid input is posted", func() {
			w := do(mux, http.MethodPost, "/v1/sync", `{"user_id":"u1","type":"workout","data":{"calories":300}}`)

			Convey("Then the sync result should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var res model.SyncResult
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.Success, ShouldBeTrue)
				So(deps.syncCalls, ShouldEqual, 1)
			})
		})

		Convey("When the body is malformed", func() {
			w := do(mux, http.MethodPost, "/v1/sync", `{"user_id":`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})
		})

		Convey("When required fields are missing", func() {
			w := do(mux, http.MethodPost, "/v1/sync", `{"type":"workout"}`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "missing user_id")
		})

		Convey("When the same request id is posted twice", func() {
			body := `{"request_id":"r1","user_id":"u1","type":"workout","data":{}}`
			first := do(mux, http.MethodPost, "/v1/sync", body)
			second := do(mux, http.MethodPost, "/v1/sync", body)

			Convey("Then the second should be acknowledged as a duplicate", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(second.Body.String(), ShouldContainSubstring, `"duplicate"`)
				So(deps.syncCalls, ShouldEqual, 1)
			})
		})

		Convey("When the input type is unknown", func() {
			deps.syncRes = model.SyncResult{Success: false, Error: "unknown input type: karaoke"}
			w := do(mux, http.MethodPost, "/v1/sync", `{"request_id":"r2","user_id":"u1","type":"karaoke","data":{}}`)

			Convey("Then it should be unprocessable and retryable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(w.Body.String(), ShouldContainSubstring, "unknown input type")
				So(deps.seen["r2"], ShouldBeFalse)
			})
		})

		Convey("When an unknown type is rejected with logging captured", func() {
			var buf bytes.Buffer
			So(logger.Init(logger.WithOutput(&buf)), ShouldBeNil)
			Reset(func() { _ = logger.Init() })
			deps.syncRes = model.SyncResult{Success: false, Error: "unknown input type: karaoke"}

			w := do(mux, http.MethodPost, "/v1/sync", `{"user_id":"u1","type":"karaoke","data":{}}`)

			Convey("Then the log names the operation and the input type", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(buf.String(), ShouldContainSubstring, "sync rejected")
				So(buf.String(), ShouldContainSubstring, "api.post_sync: unknown input type")
				So(buf.String(), ShouldContainSubstring, "input_type=karaoke")
			})
		})

		Convey("When a known type fails with logging captured", func() {
			var buf bytes.Buffer
			So(logger.Init(logger.WithOutput(&buf)), ShouldBeNil)
			Reset(func() { _ = logger.Init() })
			deps.syncRes = model.SyncResult{Success: false, Error: "store down"}

			do(mux, http.MethodPost, "/v1/sync", `{"user_id":"u1","type":"sleep","data":{}}`)

			Convey("Then the log carries the sync failure and its cause", func() {
				So(buf.String(), ShouldContainSubstring, "api.post_sync: sync failed: store down")
			})
		})

		Convey("When the primary write fails", func() {
			deps.syncRes = model.SyncResult{Success: false, Error: "store down"}
			w := do(mux, http.MethodPost, "/v1/sync", `{"user_id":"u1","type":"sleep","data":{}}`)

			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When a batch is posted", func() {
			deps.batchRes = model.BatchResult{Success: true, BatchCount: 2}
			w := do(mux, http.MethodPost, "/v1/sync/batch",
				`{"user_id":"u1","inputs":[{"type":"sleep","data":{"hours":5}},{"type":"workout","data":{}}]}`)

			Convey("Then inputs should be passed in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastInputs, ShouldHaveLength, 2)
				So(deps.lastInputs[0].Type, ShouldEqual, "sleep")
				So(deps.lastInputs[0].Data["hours"], ShouldEqual, 5.0)
			})
		})

		Convey("When a batch is above the limit", func() {
			w := do(mux, http.MethodPost, "/v1/sync/batch",
				`{"user_id":"u1","inputs":[{"type":"a"},{"type":"b"},{"type":"c"}]}`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "batch_too_large")
			So(deps.lastInputs, ShouldBeNil)
		})
	})
}

func TestUserHandler(t *testing.T) {
	Convey("Given the user endpoints", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps, 10)

		Convey("When the metrics are requested", func() {
			deps.report = model.UnifiedReport{OverallScore: 71}
			w := do(mux, http.MethodGet, "/v1/users/u42/metrics", "")

			Convey("Then the report should be returned for that user", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var report model.UnifiedReport
				So(json.Unmarshal(w.Body.Bytes(), &report), ShouldBeNil)
				So(report.UserID, ShouldEqual, "u42")
				So(report.OverallScore, ShouldEqual, 71)
			})
		})

		Convey("When the metrics fail", func() {
			deps.err = errors.New("boom")
			w := do(mux, http.MethodGet, "/v1/users/u1/metrics", "")

			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, "boom")
		})

		Convey("When a trend is requested with and without days", func() {
			do(mux, http.MethodGet, "/v1/users/u1/trend?days=14", "")
			So(deps.lastDays, ShouldEqual, 14)
			do(mux, http.MethodGet, "/v1/users/u1/trend", "")
			So(deps.lastDays, ShouldEqual, 0)
		})

		Convey("When a trend is requested with invalid days", func() {
			w := do(mux, http.MethodGet, "/v1/users/u1/trend?days=-3", "")

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an empty agent log is requested", func() {
			w := do(mux, http.MethodGet, "/v1/users/u1/agents/diet-coach/events", "")

			Convey("Then an empty array should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
				So(deps.lastAgent, ShouldEqual, "diet-coach")
			})
		})

		Convey("When insights are filtered by agent", func() {
			deps.insights = []model.Insight{{ID: "sleep-mental"}}
			w := do(mux, http.MethodGet, "/v1/users/u1/insights?agent=mental-coach", "")

			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastAgent, ShouldEqual, "mental-coach")
			So(w.Body.String(), ShouldContainSubstring, "sleep-mental")
		})
	})
}

func TestAPIWithService(t *testing.T) {
	Convey("Given the API over a running service", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithLocation(time.UTC))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc, 10)

		Convey("When a workout is posted and the insights are read", func() {
			w := do(mux, http.MethodPost, "/v1/sync", `{"user_id":"u1","type":"workout","data":{"calories":300}}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			r := do(mux, http.MethodGet, "/v1/users/u1/insights?agent=sleep-coach", "")

			Convey("Then the workout rule for the sleep coach should be listed", func() {
				var insights []model.Insight
				So(json.Unmarshal(r.Body.Bytes(), &insights), ShouldBeNil)
				So(insights, ShouldHaveLength, 1)
				So(insights[0].ID, ShouldEqual, "fitness-sleep")
			})
		})

		Convey("When an unknown type is posted", func() {
			w := do(mux, http.MethodPost, "/v1/sync", `{"user_id":"u1","type":"karaoke","data":{}}`)

			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given a wrapped API error", t, func() {
		cause := errors.New("unexpected EOF")
		err := api.WrapKind("api.post_sync", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause should match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.post_sync: bad request: unexpected EOF")
		})

		Convey("Then a bare kind should render without a cause", func() {
			So(api.NewKind("api.op", api.ErrInternal).Error(), ShouldEqual, "api.op: internal error")
		})
	})
}
