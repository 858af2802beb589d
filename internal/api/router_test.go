package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/weekly-dispatch/internal/api"
	"github.com/notifyhub/weekly-dispatch/internal/dispatch"
	"github.com/notifyhub/weekly-dispatch/internal/domain"
	"github.com/notifyhub/weekly-dispatch/internal/repository"
	"github.com/notifyhub/weekly-dispatch/internal/service"
)

const secret = "test-secret"

type fakeDispatcher struct {
	runErr error
	report *domain.RunReport
	last   *domain.RunReport
	gotNow time.Time
}

func (f *fakeDispatcher) RunOnce(_ context.Context, now time.Time) (*domain.RunReport, error) {
	f.gotNow = now
	if f.runErr != nil {
		return nil, f.runErr
	}
	f.last = f.report
	return f.report, nil
}

func (f *fakeDispatcher) DispatchNow(_ context.Context, userID string) (dispatch.Report, error) {
	if userID != "u1" {
		return dispatch.Report{}, domain.ErrNotFound
	}
	return dispatch.Report{UserID: userID, Result: domain.ResultSent}, nil
}

func (f *fakeDispatcher) LastRun() *domain.RunReport { return f.last }

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fixture struct {
	handler  http.Handler
	disp     *fakeDispatcher
	users    *repository.MockUserRepository
	outcomes *repository.MockOutcomeRepository
}

func newFixture() *fixture {
	f := &fixture{
		disp: &fakeDispatcher{report: &domain.RunReport{
			RunID:       "run-1",
			CompletedAt: time.Date(2025, time.June, 2, 9, 0, 3, 0, time.UTC),
			Summary:     domain.RunSummary{UsersChecked: 4, Generated: 2, Sent: 1, Skipped: 2, Errors: 1},
		}},
		users: repository.NewMockUserRepository(&domain.User{
			ID: "u1", Email: "u1@example.com",
			Schedule: domain.Schedule{Enabled: true, Day: domain.Monday, Time: "09:00", Timezone: "UTC", ItemCount: 5},
		}),
		outcomes: repository.NewMockOutcomeRepository(),
	}
	svc := service.NewScheduleService(f.users, dispatch.NewOutcomeLog(f.outcomes, zap.NewNop()), zap.NewNop())
	f.handler = api.NewRouter(api.Deps{
		Dispatcher: f.disp,
		Schedules:  svc,
		DB:         fakePinger{},
		Gatherer:   prometheus.NewRegistry(),
		CronSecret: secret,
		Logger:     zap.NewNop(),
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authorized {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestTrigger_Success(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/v1/cron/dispatch", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		RunID     string `json:"runId"`
		Timestamp string `json:"timestamp"`
		Summary   map[string]int
	}
	decode(t, rec, &body)
	if !body.Success || body.RunID != "run-1" || body.Message == "" {
		t.Fatalf("unexpected body %+v", body)
	}
	want := map[string]int{"usersChecked": 4, "generated": 2, "sent": 1, "skipped": 2, "errors": 1}
	for k, v := range want {
		if body.Summary[k] != v {
			t.Fatalf("summary[%s] = %d, want %d", k, body.Summary[k], v)
		}
	}
	if body.Timestamp != "2025-06-02T09:00:03Z" {
		t.Fatalf("timestamp = %q", body.Timestamp)
	}
	if f.disp.gotNow.IsZero() {
		t.Fatal("run instant not passed")
	}
}

func TestTrigger_Unauthorized(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/v1/cron/dispatch", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "unauthorized" {
		t.Fatalf("unexpected body %v", body)
	}
	if !f.disp.gotNow.IsZero() {
		t.Fatal("run must not start without authorization")
	}
}

func TestTrigger_PopulationLoadFailure(t *testing.T) {
	f := newFixture()
	f.disp.runErr = fmt.Errorf("%w: %w", domain.ErrPopulationLoad, errors.New("db down"))

	rec := f.do(t, http.MethodPost, "/api/v1/cron/dispatch", "", true)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "failed to process dispatch run" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestLastRun(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, http.MethodGet, "/api/v1/runs/last", "", true); rec.Code != http.StatusNotFound {
		t.Fatalf("want 404 before any run, got %d", rec.Code)
	}
	f.do(t, http.MethodPost, "/api/v1/cron/dispatch", "", true)

	rec := f.do(t, http.MethodGet, "/api/v1/runs/last", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var report domain.RunReport
	decode(t, rec, &report)
	if report.RunID != "run-1" || report.Summary.Sent != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSchedule_GetAndPut(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/v1/users/u1/schedule", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: want 200, got %d", rec.Code)
	}
	var got domain.Schedule
	decode(t, rec, &got)
	if got.Day != domain.Monday || got.Time != "09:00" {
		t.Fatalf("unexpected schedule %+v", got)
	}

	put := `{"enabled":true,"day":"WEDNESDAY","time":"8:15","timezone":"","itemCount":10,
		"preferences":{"focusAreas":["ai","ai"]}}`
	rec = f.do(t, http.MethodPut, "/api/v1/users/u1/schedule", put, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &got)
	if got.Day != domain.Wednesday || got.Time != "08:15" || got.Timezone != "UTC" || got.ItemCount != 10 {
		t.Fatalf("unexpected schedule %+v", got)
	}
	if !strings.Contains(rec.Body.String(), `"day":"wednesday"`) {
		t.Fatalf("day not stored lowercase: %s", rec.Body.String())
	}
}

func TestSchedule_PutErrors(t *testing.T) {
	tests := []struct {
		name string
		user string
		body string
		want int
	}{
		{"bad json", "u1", `{`, http.StatusBadRequest},
		{"bad count", "u1", `{"day":"monday","time":"09:00","itemCount":7}`, http.StatusUnprocessableEntity},
		{"bad zone", "u1", `{"day":"monday","time":"09:00","timezone":"Atlantis/Capital","itemCount":5}`, http.StatusUnprocessableEntity},
		{"unknown user", "ghost", `{"day":"monday","time":"09:00","itemCount":5}`, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(t, http.MethodPut, "/api/v1/users/"+tc.user+"/schedule", tc.body, true)
			if rec.Code != tc.want {
				t.Fatalf("want %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestOutcomes_Pagination(t *testing.T) {
	f := newFixture()
	base := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		delivered := base.AddDate(0, 0, 7*i)
		if err := f.outcomes.Append(context.Background(), &domain.Outcome{
			ID: fmt.Sprintf("o%d", i), UserID: "u1", RunID: "r", Status: domain.OutcomeDelivered,
			ItemCount: 5, AttemptedAt: delivered, DeliveredAt: &delivered,
		}); err != nil {
			t.Fatal(err)
		}
	}

	var body struct {
		Data  []domain.Outcome `json:"data"`
		Total int              `json:"total"`
		Limit int              `json:"limit"`
	}
	rec := f.do(t, http.MethodGet, "/api/v1/users/u1/outcomes", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	decode(t, rec, &body)
	if body.Total != 7 || len(body.Data) != 5 || body.Limit != 5 {
		t.Fatalf("default page: total=%d len=%d limit=%d", body.Total, len(body.Data), body.Limit)
	}
	if body.Data[0].ID != "o6" {
		t.Fatalf("want newest first, got %s", body.Data[0].ID)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/users/u1/outcomes?page=2&limit=1000", "", true)
	decode(t, rec, &body)
	if body.Limit != 100 || len(body.Data) != 0 {
		t.Fatalf("limit not capped: limit=%d len=%d", body.Limit, len(body.Data))
	}

	if rec := f.do(t, http.MethodGet, "/api/v1/users/ghost/outcomes", "", true); rec.Code != http.StatusNotFound {
		t.Fatalf("want 404 for unknown user, got %d", rec.Code)
	}
}

func TestDispatchNow(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/v1/users/u1/dispatch", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["result"] != "sent" || body["userId"] != "u1" {
		t.Fatalf("unexpected body %v", body)
	}

	if rec := f.do(t, http.MethodPost, "/api/v1/users/ghost/dispatch", "", true); rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/users/u1/dispatch", "", false); rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func TestProbes(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, http.MethodGet, "/health", "", false); rec.Code != http.StatusOK {
		t.Fatalf("health: want 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/ready", "", false); rec.Code != http.StatusOK {
		t.Fatalf("ready: want 200, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/metrics", "", false); rec.Code != http.StatusOK {
		t.Fatalf("metrics: want 200, got %d", rec.Code)
	}
}

func TestReady_DatabaseDown(t *testing.T) {
	h := api.NewRouter(api.Deps{
		Dispatcher: &fakeDispatcher{},
		DB:         fakePinger{err: errors.New("connection refused")},
		Gatherer:   prometheus.NewRegistry(),
		CronSecret: secret,
		Logger:     zap.NewNop(),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", rec.Code)
	}
}
