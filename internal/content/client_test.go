package content_test

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
	"github.com/voyago/backend-voyago/internal/content"
)

func newClient(t *testing.T, baseURL string, cfg circuit.Config) content.Client {
	t.Helper()
	return content.Client{
		HTTP: circuit.HTTPClient{
			Client:      &http.Client{},
			Breaker:     circuit.NewBreaker("content-provider", cfg, circuit.NewMemoryStore()),
			MaxAttempts: 1,
			BaseBackoff: time.Millisecond,
		},
		BaseURL: baseURL,
		APIKey:  "test-key",
	}
}

func TestFetchPlace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/places/ubud-monkey-forest", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(content.PlaceEnrichment{
			PlaceID:     "ubud-monkey-forest",
			Name:        "Sacred Monkey Forest Sanctuary",
			Rating:      4.6,
			ReviewCount: 31250,
			Source:      "partner-feed",
		})
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server.URL, circuit.DefaultConfig())
	doc, err := client.FetchPlace(context.Background(), "ubud-monkey-forest")
	require.NoError(t, err)
	require.Equal(t, "Sacred Monkey Forest Sanctuary", doc.Name)
	require.Equal(t, 4.6, doc.Rating)
}

func TestFetchPlaceRequiresID(t *testing.T) {
	client := newClient(t, "http://unused", circuit.DefaultConfig())
	_, err := client.FetchPlace(context.Background(), "  ")
	require.Error(t, err)
}

func TestFetchPlaceNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server.URL, circuit.DefaultConfig())
	_, err := client.FetchPlace(context.Background(), "missing")
	require.ErrorIs(t, err, content.ErrNotFound)
}

func TestFetchPlaceProviderOutageTripsBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server.URL, circuit.Config{
		FailureThresholdPct: 50,
		VolumeThreshold:     2,
		WindowSize:          10,
		OpenTimeout:         time.Minute,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.FetchPlace(ctx, "any")
		require.Error(t, err)
	}

	_, err := client.FetchPlace(ctx, "any")
	require.ErrorIs(t, err, circuit.ErrCircuitOpen)
}

func newHandlerServer(t *testing.T, client content.Client) *httptest.Server {
	t.Helper()
	router := chi.NewRouter()
	router.Get("/api/v1/places/{placeID}/enrichment", content.Handler{Client: client}.GetPlace)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestGetPlaceHandler(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(content.PlaceEnrichment{Name: "Tegallalang Rice Terrace", Source: "partner-feed"})
	}))
	t.Cleanup(provider.Close)

	server := newHandlerServer(t, newClient(t, provider.URL, circuit.DefaultConfig()))
	resp, err := http.Get(server.URL + "/api/v1/places/tegallalang/enrichment")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc content.PlaceEnrichment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	require.Equal(t, "Tegallalang Rice Terrace", doc.Name)
	require.Equal(t, "tegallalang", doc.PlaceID)
}

func TestGetPlaceHandlerNotFound(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(provider.Close)

	server := newHandlerServer(t, newClient(t, provider.URL, circuit.DefaultConfig()))
	resp, err := http.Get(server.URL + "/api/v1/places/ghost/enrichment")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetPlaceHandlerOpenCircuit(t *testing.T) {
	client := newClient(t, "http://127.0.0.1:1", circuit.Config{
		FailureThresholdPct: 50,
		VolumeThreshold:     1,
		WindowSize:          10,
		OpenTimeout:         time.Minute,
	})

	server := newHandlerServer(t, client)

	// First request records the connection failure and trips the breaker.
	resp, err := http.Get(server.URL + "/api/v1/places/any/enrichment")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/v1/places/any/enrichment")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
