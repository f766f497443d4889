package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voyago/backend-voyago/internal/circuit"
	"github.com/voyago/backend-voyago/internal/common"
)

// ErrNotFound is returned when the provider has no document for a place.
var ErrNotFound = errors.New("content: place not found")

// PlaceEnrichment is the document the external content provider serves for a
// point of interest.
type PlaceEnrichment struct {
	PlaceID      string   `json:"place_id"`
	Name         string   `json:"name"`
	Summary      string   `json:"summary"`
	Rating       float64  `json:"rating"`
	ReviewCount  int      `json:"review_count"`
	OpeningHours []string `json:"opening_hours,omitempty"`
	PhotoURLs    []string `json:"photo_urls,omitempty"`
	Source       string   `json:"source"`
}

// Client fetches POI enrichment from the third-party content provider. Every
// request runs under the shared circuit breaker, so a misbehaving provider
// is cut off for the whole fleet, not per process.
type Client struct {
	HTTP    circuit.HTTPClient
	BaseURL string
	APIKey  string
}

// FetchPlace retrieves the enrichment document for one place.
func (c Client) FetchPlace(ctx context.Context, placeID string) (PlaceEnrichment, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return PlaceEnrichment{}, errors.New("content: place id is required")
	}
	endpoint := fmt.Sprintf("%s/v1/places/%s", strings.TrimRight(c.BaseURL, "/"), url.PathEscape(placeID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PlaceEnrichment{}, err
	}
	req.Header.Set("Accept", "application/json")
	if key := strings.TrimSpace(c.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return PlaceEnrichment{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return PlaceEnrichment{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return PlaceEnrichment{}, fmt.Errorf("content: provider status %s", resp.Status)
	}

	var doc PlaceEnrichment
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return PlaceEnrichment{}, fmt.Errorf("content: decode enrichment: %w", err)
	}
	if doc.PlaceID == "" {
		doc.PlaceID = placeID
	}
	return doc, nil
}

// Handler exposes the enrichment lookup over HTTP.
type Handler struct {
	Client Client
}

// GetPlace serves GET /api/v1/places/{placeID}/enrichment.
func (h Handler) GetPlace(w http.ResponseWriter, r *http.Request) {
	placeID := strings.TrimSpace(chi.URLParam(r, "placeID"))
	doc, err := h.Client.FetchPlace(r.Context(), placeID)
	switch {
	case err == nil:
		common.JSON(w, http.StatusOK, doc)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "place has no enrichment document", nil)
	case errors.Is(err, circuit.ErrCircuitOpen):
		common.JSONError(w, http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", "content provider temporarily disabled", nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "PROVIDER_ERROR", "content provider request failed", nil)
	}
}
