package jobs

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func newJobsRouter(inspector QueueInspector) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(inspector, nil, nil).MountRoutes)
	return r
}

func TestHealthWithoutInspector(t *testing.T) {
	rec := httptest.NewRecorder()
	newJobsRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"scheduled":0,"retry":0,"paused":false}`, rec.Body.String())
}

func TestHealthReportsQueueDepth(t *testing.T) {
	inspector := stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 4, Active: 1, Retry: 2}}
	rec := httptest.NewRecorder()
	newJobsRouter(inspector).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":4,"active":1,"scheduled":0,"retry":2,"paused":false}`, rec.Body.String())
}

func TestHealthInspectorFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	newJobsRouter(stubInspector{err: errors.New("redis down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTriggerWithoutClient(t *testing.T) {
	for _, path := range []string{"/jobs/low-stock-scan", "/jobs/dashboard-warmup", "/jobs/idempotency-cleanup"} {
		rec := httptest.NewRecorder()
		newJobsRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}
