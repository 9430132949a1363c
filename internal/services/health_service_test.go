package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightcli/internal/cleaning"
	"insightcli/internal/impute"
)

type fakeHubStats struct{ clients int }

func (f *fakeHubStats) ClientCount() int { return f.clients }
func (f *fakeHubStats) Stats() map[string]interface{} {
	return map[string]interface{}{"active_clients": f.clients}
}

func TestHealthService_HealthCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cleaning.NewStore(impute.Capabilities{}, logger, nil)
	svc := NewHealthService("1.0.0", "2026-08-28T00:00:00Z", "abc123", store, &fakeHubStats{clients: 2}, logger)

	status := svc.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.0.0", status.Version)
	require.Contains(t, status.Services, "sessions")
	require.Contains(t, status.Services, "websocket")
}

func TestHealthService_Readiness(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cleaning.NewStore(impute.Capabilities{}, logger, nil)

	ready := NewHealthService("1.0.0", "", "", store, &fakeHubStats{}, logger)
	assert.Equal(t, "ready", ready.ReadinessCheck(context.Background()).Status)

	degraded := NewHealthService("1.0.0", "", "", nil, nil, logger)
	assert.Equal(t, "not_ready", degraded.ReadinessCheck(context.Background()).Status)
}

func TestHealthService_LivenessAndVersion(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cleaning.NewStore(impute.Capabilities{}, logger, nil)
	svc := NewHealthService("1.0.0", "2026-08-28T00:00:00Z", "abc123", store, &fakeHubStats{}, logger)

	live := svc.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	require.Contains(t, live.Runtime, "go_version")

	version := svc.Version()
	assert.Equal(t, "1.0.0", version["version"])
	assert.Equal(t, "abc123", version["build_id"])
}
