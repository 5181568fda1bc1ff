package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/anirudh2403/Seat-Reservation-System/internal/ledger/domain"
)

// HTTPClient validates seats against the catalog service's REST API.
type HTTPClient struct {
	log     *slog.Logger
	baseURL string
	hc      *http.Client
}

func NewHTTPClient(log *slog.Logger, baseURL string) *HTTPClient {
	return &HTTPClient{
		log:     log,
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 5 * time.Second},
	}
}

// ValidateSeats returns the refs the catalog does not know about.
func (c *HTTPClient) ValidateSeats(ctx context.Context, refs []domain.SeatRef) ([]domain.SeatRef, error) {
	var unknown []domain.SeatRef
	for _, r := range refs {
		ok, err := c.seatExists(ctx, r)
		if err != nil {
			return nil, err
		}
		if !ok {
			unknown = append(unknown, r)
		}
	}
	return unknown, nil
}

func (c *HTTPClient) seatExists(ctx context.Context, ref domain.SeatRef) (bool, error) {
	u := fmt.Sprintf("%s/v1/events/%s/seats/%s",
		c.baseURL, url.PathEscape(ref.EventID), url.PathEscape(ref.SeatID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return false, fmt.Errorf("catalog lookup %s: %w", ref.Key(), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, fmt.Errorf("catalog lookup %s: %w", ref.Key(), err)
		}
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("catalog lookup %s: unexpected status %d", ref.Key(), resp.StatusCode)
	}
}
