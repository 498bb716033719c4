package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skport-checkin/models"
	"skport-checkin/workers"
)

const testAdminToken = "admin-token-123"

type fakeTrigger struct {
	err   error
	calls int
}

func (f *fakeTrigger) TriggerAsync(context.Context) error {
	f.calls++
	return f.err
}

type brokenHistory struct{}

func (brokenHistory) ListRuns(context.Context, int) ([]models.CheckInRun, error) {
	return nil, errors.New("db down")
}

func (brokenHistory) LatestRun(context.Context) (*models.CheckInRun, error) {
	return nil, errors.New("db down")
}

func newTestApp(history RunHistory, trigger RunTrigger) *fiber.App {
	app := fiber.New()
	SetupCheckInRoutes(app, &CheckInHandler{History: history, Trigger: trigger}, testAdminToken)
	return app
}

func seededHistory(t *testing.T, n int) *workers.MemoryHistory {
	t.Helper()
	h := workers.NewMemoryHistory(200)
	base := time.Date(2026, 10, 18, 0, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, h.SaveRun(context.Background(), &models.CheckInRun{
			ID:        "run-" + string(rune('a'+i%26)),
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Total:     1,
			Succeeded: 1,
			Results: []models.ClaimRecord{
				{AccountName: "Main", Success: true, Status: "ok", Rewards: "Gold x100"},
			},
		}))
	}
	return h
}

func do(t *testing.T, app *fiber.App, method, target, auth string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	status, body := do(t, newTestApp(workers.NewMemoryHistory(1), &fakeTrigger{}), "GET", "/healthz", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestListRuns_Limits(t *testing.T) {
	app := newTestApp(seededHistory(t, 120), &fakeTrigger{})

	tests := []struct {
		query string
		want  int
	}{
		{"/runs", defaultRunsLimit},
		{"/runs?limit=3", 3},
		{"/runs?limit=0", defaultRunsLimit},
		{"/runs?limit=500", maxRunsLimit},
	}
	for _, tt := range tests {
		status, body := do(t, app, "GET", tt.query, "")
		require.Equal(t, fiber.StatusOK, status, tt.query)

		var runs []models.CheckInRun
		require.NoError(t, json.Unmarshal(body, &runs))
		assert.Len(t, runs, tt.want, tt.query)
	}
}

func TestListRuns_HistoryError(t *testing.T) {
	status, _ := do(t, newTestApp(brokenHistory{}, &fakeTrigger{}), "GET", "/runs", "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
}

func TestLatestRun(t *testing.T) {
	status, _ := do(t, newTestApp(workers.NewMemoryHistory(5), &fakeTrigger{}), "GET", "/runs/latest", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body := do(t, newTestApp(seededHistory(t, 2), &fakeTrigger{}), "GET", "/runs/latest", "")
	require.Equal(t, fiber.StatusOK, status)
	var run models.CheckInRun
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Equal(t, "run-b", run.ID)
	assert.Equal(t, "Main", run.Batch()[0].Name)
}

func TestStartRun(t *testing.T) {
	trigger := &fakeTrigger{}
	app := newTestApp(workers.NewMemoryHistory(5), trigger)

	status, _ := do(t, app, "POST", "/runs", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Zero(t, trigger.calls)

	status, body := do(t, app, "POST", "/runs", testAdminToken)
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.JSONEq(t, `{"status":"started"}`, string(body))
	assert.Equal(t, 1, trigger.calls)
}

func TestStartRun_AlreadyRunning(t *testing.T) {
	app := newTestApp(workers.NewMemoryHistory(5), &fakeTrigger{err: workers.ErrRunInProgress})

	status, _ := do(t, app, "POST", "/runs", testAdminToken)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestMetricsEndpoint(t *testing.T) {
	status, body := do(t, newTestApp(workers.NewMemoryHistory(1), &fakeTrigger{}), "GET", "/metrics", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), "go_goroutines")
}
