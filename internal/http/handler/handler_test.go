package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hospital-queue/internal/apperror"
	"hospital-queue/internal/audit"
	"hospital-queue/internal/clock"
	"hospital-queue/internal/config"
	"hospital-queue/internal/models"
	"hospital-queue/internal/queue"
	"hospital-queue/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type memoryLog struct {
	mu      sync.Mutex
	entries []models.QueueControlLog
}

func (m *memoryLog) Append(_ context.Context, e models.QueueControlLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryLog) ListByQueue(_ context.Context, queueID string, limit int) ([]models.QueueControlLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QueueControlLog
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].QueueID == queueID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

type envelope struct {
	Success       bool            `json:"success"`
	Code          string          `json:"code"`
	Error         string          `json:"error"`
	Message       string          `json:"message"`
	Retryable     bool            `json:"retryable"`
	ExistingToken string          `json:"existing_token"`
	Data          json.RawMessage `json:"data"`
}

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clk := clock.NewManual(time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC))
	logs := &memoryLog{}
	engine := queue.New(queue.Deps{
		Store: store.NewRedisStore(rdb, "test:"),
		Audit: audit.NewRecorder(logs, clk, nil),
		Clock: clk,
	}, queue.DefaultConfig())

	app := fiber.New()
	h := New(engine, logs, nil)
	h.Register(app, testSecret)
	h.RegisterDisplay(app, "board", "lobby-pass")
	return app
}

func bearer(t *testing.T, userID, role, hospitalID string) string {
	t.Helper()
	tok, err := config.GenerateToken(testSecret, time.Hour, userID, userID, role, hospitalID)
	require.NoError(t, err)
	return "Bearer " + tok
}

func call(t *testing.T, app *fiber.App, method, path, auth string, body any) (int, envelope, http.Header) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env, resp.Header
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

var takeBody = map[string]string{"hospital_id": "rs-01", "department": "gigi"}

const staffQueue = "/api/staff/queue/rs-01/gigi/2026-10-19"

func TestTakeQueue(t *testing.T) {
	app := setupApp(t)
	patient := bearer(t, "u-1", config.RolePatient, "")

	status, env, _ := call(t, app, http.MethodPost, "/api/queue/take", patient, takeBody)
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	tok := decode[models.Token](t, env.Data)
	assert.Equal(t, int64(1), tok.TokenNumber)
	assert.Equal(t, "2026-10-19", tok.Date)
	assert.Equal(t, models.TokenReady, tok.Status)

	status, env, _ = call(t, app, http.MethodPost, "/api/queue/take", patient, takeBody)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, string(apperror.TypeDuplicateBooking), env.Code)
	assert.Equal(t, tok.ID, env.ExistingToken)
}

func TestTakeQueue_Validation(t *testing.T) {
	app := setupApp(t)
	patient := bearer(t, "u-1", config.RolePatient, "")

	status, env, _ := call(t, app, http.MethodPost, "/api/queue/take", patient,
		map[string]string{"hospital_id": "rs-01", "department": "gigi", "date": "2026-10-01"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, string(apperror.TypeValidation), env.Code)
}

func TestAuth(t *testing.T) {
	app := setupApp(t)

	status, _, _ := call(t, app, http.MethodPost, "/api/queue/take", "", takeBody)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _, _ = call(t, app, http.MethodPost, "/api/queue/take", "Bearer nonsense", takeBody)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	patient := bearer(t, "u-1", config.RolePatient, "")
	status, _, _ = call(t, app, http.MethodPost, staffQueue+"/pause", patient, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	otherHospital := bearer(t, "staff-9", config.RoleStaff, "rs-02")
	status, _, _ = call(t, app, http.MethodPost, staffQueue+"/pause", otherHospital, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestStaffFlow(t *testing.T) {
	app := setupApp(t)
	staff := bearer(t, "staff-1", config.RoleStaff, "rs-01")

	for _, u := range []string{"u-1", "u-2", "u-3"} {
		status, env, _ := call(t, app, http.MethodPost, "/api/queue/take", bearer(t, u, config.RolePatient, ""), takeBody)
		require.Equal(t, fiber.StatusCreated, status, env.Error)
	}

	status, env, _ := call(t, app, http.MethodPost, staffQueue+"/pause", staff, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.Equal(t, models.QueuePaused, decode[models.QueueStatusView](t, env.Data).Status)

	status, env, _ = call(t, app, http.MethodPost, staffQueue+"/delay", staff, map[string]int{"minutes": 0})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env, _ = call(t, app, http.MethodPost, staffQueue+"/delay", staff, map[string]int{"minutes": 15})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	view := decode[models.QueueStatusView](t, env.Data)
	require.Len(t, view.Entries, 3)
	assert.Equal(t, []int{15, 25, 35}, []int{
		view.Entries[0].EstimatedWaitTimeMinutes,
		view.Entries[1].EstimatedWaitTimeMinutes,
		view.Entries[2].EstimatedWaitTimeMinutes,
	})

	status, env, _ = call(t, app, http.MethodPost, staffQueue+"/advance", staff, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	served := decode[models.Token](t, env.Data)
	assert.Equal(t, models.TokenServed, served.Status)
	assert.Equal(t, "u-1", served.UserID)

	status, env, _ = call(t, app, http.MethodPost, staffQueue+"/advance", staff, map[string]string{"token_id": served.ID})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, string(apperror.TypeInvalidTokenState), env.Code)

	status, env, _ = call(t, app, http.MethodPost, staffQueue+"/service-time", staff, map[string]int{"minutes": 5})
	require.Equal(t, fiber.StatusOK, status, env.Error)

	status, env, _ = call(t, app, http.MethodPost, staffQueue+"/resume", staff, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)

	status, env, _ = call(t, app, http.MethodGet, staffQueue+"/logs", staff, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	logs := decode[[]models.QueueControlLog](t, env.Data)
	require.Len(t, logs, 5)
	assert.Equal(t, models.ActionResume, logs[0].Action)
	assert.Equal(t, models.ActionPause, logs[4].Action)

	status, env, _ = call(t, app, http.MethodGet, "/api/staff/queues?hospital_id=rs-01&date=2026-10-19", staff, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.Len(t, decode[[]models.QueueStatusView](t, env.Data), 1)
}

func TestStaffControlUnknownQueue(t *testing.T) {
	app := setupApp(t)
	staff := bearer(t, "staff-1", config.RoleStaff, "rs-01")

	status, env, _ := call(t, app, http.MethodPost, staffQueue+"/pause", staff, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, string(apperror.TypeNotFound), env.Code)
}

func TestTokenReadAndCancel(t *testing.T) {
	app := setupApp(t)
	owner := bearer(t, "u-1", config.RolePatient, "")
	stranger := bearer(t, "u-2", config.RolePatient, "")
	staff := bearer(t, "staff-1", config.RoleStaff, "rs-01")

	_, env, _ := call(t, app, http.MethodPost, "/api/queue/take", owner, takeBody)
	tok := decode[models.Token](t, env.Data)

	status, _, _ := call(t, app, http.MethodGet, "/api/tokens/"+tok.ID, owner, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _, _ = call(t, app, http.MethodGet, "/api/tokens/"+tok.ID, stranger, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _, _ = call(t, app, http.MethodGet, "/api/tokens/"+tok.ID, staff, nil)
	assert.Equal(t, fiber.StatusOK, status)

	// Staff of another hospital cannot see the token.
	outsider := bearer(t, "staff-9", config.RoleStaff, "rs-02")
	status, _, _ = call(t, app, http.MethodGet, "/api/tokens/"+tok.ID, outsider, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	// The staff read is on the queue's audit trail.
	status, env, _ = call(t, app, http.MethodGet, staffQueue+"/logs", staff, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	logs := decode[[]models.QueueControlLog](t, env.Data)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionViewToken, logs[0].Action)
	assert.Equal(t, "staff-1", logs[0].StaffID)
	assert.Equal(t, tok.ID, logs[0].Details["token_id"])

	status, _, _ = call(t, app, http.MethodPost, "/api/tokens/"+tok.ID+"/cancel", stranger, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, env, _ = call(t, app, http.MethodPost, "/api/tokens/"+tok.ID+"/cancel", owner, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.Equal(t, models.TokenCancelled, decode[models.Token](t, env.Data).Status)
}

func TestPublicQueueStatus(t *testing.T) {
	app := setupApp(t)
	_, _, _ = call(t, app, http.MethodPost, "/api/queue/take", bearer(t, "u-1", config.RolePatient, ""), takeBody)

	req := httptest.NewRequest(http.MethodGet, "/api/queue/rs-01/gigi/2026-10-19", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(raw), "u-1")
	assert.Contains(t, string(raw), `"now_serving":1`)

	status, _, _ := call(t, app, http.MethodGet, "/api/queue/rs-01/mata/2026-10-19", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestDisplayBoard(t *testing.T) {
	app := setupApp(t)
	_, _, _ = call(t, app, http.MethodPost, "/api/queue/take", bearer(t, "u-1", config.RolePatient, ""), takeBody)

	status, _, _ := call(t, app, http.MethodGet, "/display/rs-01", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	basic := "Basic " + base64.StdEncoding.EncodeToString([]byte("board:lobby-pass"))
	status, env, _ := call(t, app, http.MethodGet, "/display/rs-01", basic, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)

	board := decode[struct {
		Date   string                   `json:"date"`
		Queues []models.QueueStatusView `json:"queues"`
	}](t, env.Data)
	assert.Equal(t, "2026-10-19", board.Date)
	require.Len(t, board.Queues, 1)
	assert.Equal(t, "gigi", board.Queues[0].Department)
	assert.NotContains(t, string(env.Data), "u-1")
}

func TestFail_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		status     int
		retryAfter string
	}{
		{apperror.NewConflict("busy", store.ErrVersionConflict), fiber.StatusConflict, "1"},
		{apperror.NewDependencyFailure("redis down", nil), fiber.StatusServiceUnavailable, ""},
		{apperror.NewInvalidTokenState("t", "served"), fiber.StatusUnprocessableEntity, ""},
		{apperror.NewForbidden("nope"), fiber.StatusForbidden, ""},
		{io.ErrUnexpectedEOF, fiber.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error { return fail(c, tt.err) })

		status, env, header := call(t, app, http.MethodGet, "/", "", nil)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.False(t, env.Success)
		assert.Equal(t, tt.retryAfter, header.Get("Retry-After"))
	}
}
