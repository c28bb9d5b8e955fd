package api_gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotion-market/point-ledger/internal/config"
	"github.com/emotion-market/point-ledger/internal/data/memory"
	"github.com/emotion-market/point-ledger/internal/platform/auth"
	"github.com/emotion-market/point-ledger/internal/point_engine/components"
)

const firstSnow = "6f1d2c1e-3b0a-4c55-9a3e-0d6a1f0b7a01"

type gateway struct {
	handler   http.Handler
	authority *auth.Authority
	clock     *clockwork.FakeClock
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newGateway(t *testing.T, readiness Pinger) *gateway {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	store := memory.NewStore()
	store.SeedCatalog(memory.DefaultCatalog(clock.Now()))
	services := components.CreateServices(store, components.MemoryRepositories(store), time.UTC, clock, logger)

	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "test"},
		Server:      config.ServerConfig{Port: 8080},
		Metrics:     config.MetricsConfig{Enabled: true},
	}
	authority := auth.NewAuthority("test-secret", "emotion-market", clock.Now)
	server := NewServer(logger, cfg, services, authority, readiness, clock)

	return &gateway{handler: server.Handler(), authority: authority, clock: clock}
}

func (g *gateway) token(t *testing.T, accountID uuid.UUID, admin bool) string {
	t.Helper()
	token, err := g.authority.Issue(auth.Principal{AccountID: accountID, Admin: admin}, time.Hour)
	require.NoError(t, err)
	return token
}

func (g *gateway) call(t *testing.T, token, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	g.handler.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded), rr.Body.String())
	}
	return rr.Code, decoded
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func TestServer_MemberJourney(t *testing.T) {
	g := newGateway(t, nil)
	accountID := uuid.New()
	token := g.token(t, accountID, false)

	status, body := g.call(t, token, http.MethodPost, "/api/v1/accounts", nil)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, float64(100), data(t, body)["balance"])

	status, body = g.call(t, token, http.MethodPost, "/api/v1/submissions", map[string]any{
		"emotion_type": "JOY",
		"intensity":    8,
		"body":         "Snow started falling just as the bus pulled in and everyone on the platform looked up at the same time, smiling.",
		"allow_resale": true,
	})
	require.Equal(t, http.StatusCreated, status, body)
	submitted := data(t, body)
	assert.Equal(t, float64(30), submitted["points_awarded"])
	assert.Equal(t, float64(130), submitted["balance"])
	assert.Equal(t, float64(4), submitted["remaining_submissions_today"])

	status, body = g.call(t, token, http.MethodPost, "/api/v1/purchases", map[string]any{"item_id": firstSnow})
	require.Equal(t, http.StatusCreated, status, body)
	bought := data(t, body)
	assert.Equal(t, float64(100), bought["balance"])
	purchaseID := bought["purchase"].(map[string]any)["id"].(string)

	status, body = g.call(t, token, http.MethodPost, "/api/v1/purchases", map[string]any{"item_id": firstSnow})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_PURCHASE", body["error"].(map[string]any)["code"])

	status, _ = g.call(t, token, http.MethodPost, "/api/v1/purchases/"+purchaseID+"/access", nil)
	assert.Equal(t, http.StatusOK, status)

	g.clock.Advance(7*24*time.Hour + time.Second)

	status, body = g.call(t, token, http.MethodGet, "/api/v1/accounts/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	token = g.token(t, accountID, false)
	status, body = g.call(t, token, http.MethodPost, "/api/v1/purchases/"+purchaseID+"/access", nil)
	require.Equal(t, http.StatusForbidden, status, body)
	assert.Equal(t, "ACCESS_DENIED", body["error"].(map[string]any)["code"])

	status, body = g.call(t, token, http.MethodGet, "/api/v1/purchases/"+purchaseID, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "EXPIRED", data(t, body)["status"])

	status, body = g.call(t, token, http.MethodGet, "/api/v1/accounts/me/summary", nil)
	require.Equal(t, http.StatusOK, status)
	summary := data(t, body)
	assert.Equal(t, float64(100), summary["balance"])
	assert.Equal(t, float64(130), summary["total_earned"])
	assert.Equal(t, float64(30), summary["total_spent"])

	status, body = g.call(t, token, http.MethodGet, "/api/v1/accounts/me/ledger?per_page=2", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 2)
	assert.Equal(t, float64(3), body["meta"].(map[string]any)["total_items"])
}

func TestServer_AdminRoutes(t *testing.T) {
	g := newGateway(t, nil)
	memberID := uuid.New()
	memberToken := g.token(t, memberID, false)
	adminToken := g.token(t, uuid.New(), true)

	status, _ := g.call(t, memberToken, http.MethodPost, "/api/v1/accounts", nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := g.call(t, memberToken, http.MethodPost, "/api/v1/submissions", map[string]any{
		"emotion_type": "SADNESS",
		"intensity":    4,
		"body":         "Missed the last train and walked home alone.",
	})
	require.Equal(t, http.StatusCreated, status, body)
	submissionID := data(t, body)["submission"].(map[string]any)["id"].(string)

	status, _ = g.call(t, memberToken, http.MethodPost, "/api/v1/admin/submissions/"+submissionID+"/reject", map[string]any{"reason": "spam"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = g.call(t, adminToken, http.MethodPost, "/api/v1/admin/submissions/"+submissionID+"/reject", map[string]any{"reason": "spam"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(100), data(t, body)["balance"])

	status, body = g.call(t, adminToken, http.MethodGet, "/api/v1/admin/accounts/"+memberID.String()+"/reconcile", nil)
	require.Equal(t, http.StatusOK, status)
	report := data(t, body)
	assert.Equal(t, true, report["consistent"])
	assert.Equal(t, float64(3), report["entry_count"])
}

func TestServer_Unauthenticated(t *testing.T) {
	g := newGateway(t, nil)

	status, body := g.call(t, "", http.MethodGet, "/api/v1/accounts/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])
}

func TestServer_OperationalEndpoints(t *testing.T) {
	t.Run("health", func(t *testing.T) {
		g := newGateway(t, nil)
		status, body := g.call(t, "", http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("ready", func(t *testing.T) {
		g := newGateway(t, pinger{})
		status, _ := g.call(t, "", http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("not ready", func(t *testing.T) {
		g := newGateway(t, pinger{err: errors.New("connection refused")})
		status, body := g.call(t, "", http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "unavailable", body["status"])
	})

	t.Run("metrics", func(t *testing.T) {
		g := newGateway(t, nil)
		status, _ := g.call(t, "", http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, status)

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rr := httptest.NewRecorder()
		g.handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "point_ledger_http_requests_total")
	})
}
