package circuit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/voyago/backend-voyago/internal/circuit"
)

func newAdminServer(t *testing.T) (*httptest.Server, *circuit.Registry) {
	t.Helper()
	registry := circuit.NewRegistry(circuit.NewMemoryStore(), circuit.DefaultConfig())
	handler := &circuit.AdminHandler{Registry: registry}

	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, registry
}

func TestAdminListCircuits(t *testing.T) {
	server, registry := newAdminServer(t)
	registry.Get("content-provider", nil)
	registry.Get("scraper", nil)

	resp, err := http.Get(server.URL + "/admin/circuits")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Circuits []circuit.Stats `json:"circuits"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Circuits, 2)
	require.Equal(t, "content-provider", body.Circuits[0].Name)
	require.Equal(t, "scraper", body.Circuits[1].Name)
}

func TestAdminGetCircuit(t *testing.T) {
	server, registry := newAdminServer(t)
	breaker := registry.Get("content-provider", &circuit.Config{
		FailureThresholdPct: 50,
		VolumeThreshold:     2,
		WindowSize:          10,
		OpenTimeout:         time.Minute,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = breaker.Execute(ctx, func(context.Context) (any, error) { return nil, errUpstream })
	}

	resp, err := http.Get(server.URL + "/admin/circuits/content-provider")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats circuit.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, "content-provider", stats.Name)
	require.Equal(t, "open", stats.State.String())
	require.InDelta(t, 100.0, stats.FailureRate, 0.01)
	require.NotNil(t, stats.OpenedAt)
	require.Equal(t, int64(60_000), stats.Config.OpenTimeoutMs)
}

func TestAdminGetUnknownCircuit(t *testing.T) {
	server, _ := newAdminServer(t)

	resp, err := http.Get(server.URL + "/admin/circuits/nope")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestAdminResetCircuit(t *testing.T) {
	server, registry := newAdminServer(t)
	breaker := registry.Get("flaky", &circuit.Config{
		FailureThresholdPct: 50,
		VolumeThreshold:     2,
		WindowSize:          10,
		OpenTimeout:         time.Minute,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = breaker.Execute(ctx, func(context.Context) (any, error) { return nil, errUpstream })
	}

	resp, err := http.Post(server.URL+"/admin/circuits/flaky/reset", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stats, err := registry.Stats(ctx, "flaky")
	require.NoError(t, err)
	require.Equal(t, circuit.StateClosed, stats.State)
	require.Zero(t, stats.Total)
}

func TestAdminResetUnknownCircuitSucceeds(t *testing.T) {
	server, _ := newAdminServer(t)

	resp, err := http.Post(server.URL+"/admin/circuits/never-registered/reset", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminResetAll(t *testing.T) {
	server, registry := newAdminServer(t)
	cfg := &circuit.Config{
		FailureThresholdPct: 50,
		VolumeThreshold:     2,
		WindowSize:          10,
		OpenTimeout:         time.Minute,
	}
	ctx := context.Background()
	for _, name := range []string{"one", "two"} {
		b := registry.Get(name, cfg)
		for i := 0; i < 2; i++ {
			_, _ = b.Execute(ctx, func(context.Context) (any, error) { return nil, errUpstream })
		}
	}

	resp, err := http.Post(server.URL+"/admin/circuits/reset", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	all, err := registry.AllStats(ctx)
	require.NoError(t, err)
	for _, s := range all {
		require.Equal(t, circuit.StateClosed, s.State)
	}
}
