package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/helmdesk/helmdesk/internal/jobs"
)

type stubPurger struct {
	n     int64
	err   error
	calls int
}

func (s *stubPurger) PurgeExpired(context.Context) (int64, error) {
	s.calls++
	return s.n, s.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionCleanupJobPurges(t *testing.T) {
	purger := &stubPurger{n: 4}
	job := NewSessionCleanupJob(purger, discard(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	require.NoError(t, job.Handle(context.Background(), NewSessionCleanupTask()))
	assert.Equal(t, 1, purger.calls)
}

func TestSessionCleanupJobReportsFailure(t *testing.T) {
	purger := &stubPurger{err: errors.New("db down")}
	job := NewSessionCleanupJob(purger, discard(), nil)

	assert.Error(t, job.Handle(context.Background(), NewSessionCleanupTask()))

	var empty *SessionCleanupJob
	assert.Error(t, empty.Handle(context.Background(), NewSessionCleanupTask()))
}

func TestSessionCleanupTaskType(t *testing.T) {
	assert.Equal(t, TaskSessionCleanup, NewSessionCleanupTask().Type())
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		code      int
		pending   int
	}{
		{name: "no inspector", inspector: nil, code: http.StatusOK},
		{name: "pending tasks", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, code: http.StatusOK, pending: 3},
		{name: "redis down", inspector: stubInspector{err: errors.New("dial tcp")}, code: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, discard()).MountRoutes)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

			require.Equal(t, tc.code, rr.Code)
			if tc.code != http.StatusOK {
				return
			}
			var body queueStatus
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}
