package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPBusinessSource reads business counters from the booking platform's
// internal metrics endpoints. Each endpoint returns {"count": n}. Any
// transport or decode failure surfaces as an error, which the alert rules
// treat as "value unavailable".
type HTTPBusinessSource struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
}

// NewHTTPBusinessSource creates a source rooted at baseURL.
func NewHTTPBusinessSource(logger *zap.Logger, baseURL string, timeout time.Duration) *HTTPBusinessSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBusinessSource{
		logger:  logger.Named("business-metrics"),
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// StuckBookings returns the count of bookings stuck in a non-terminal state.
func (s *HTTPBusinessSource) StuckBookings(ctx context.Context) (int, error) {
	return s.fetchCount(ctx, "/internal/metrics/stuck-bookings")
}

// ErrorsLastHour returns the count of platform errors logged in the last hour.
func (s *HTTPBusinessSource) ErrorsLastHour(ctx context.Context) (int, error) {
	return s.fetchCount(ctx, "/internal/metrics/errors-last-hour")
}

func (s *HTTPBusinessSource) fetchCount(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("metrics endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("metrics endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode metrics response: %w", err)
	}
	return payload.Count, nil
}
