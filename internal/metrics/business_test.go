package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPBusinessSource_Counts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/metrics/stuck-bookings":
			w.Write([]byte(`{"count": 12}`))
		case "/internal/metrics/errors-last-hour":
			w.Write([]byte(`{"count": 3}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	logger, _ := zap.NewDevelopment()
	source := NewHTTPBusinessSource(logger, srv.URL, 5*time.Second)

	stuck, err := source.StuckBookings(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, stuck)

	errs, err := source.ErrorsLastHour(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, errs)
}

func TestHTTPBusinessSource_ErrorsSurfaceAsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger, _ := zap.NewDevelopment()
	source := NewHTTPBusinessSource(logger, srv.URL, 5*time.Second)

	_, err := source.StuckBookings(context.Background())
	require.Error(t, err)

	unreachable := NewHTTPBusinessSource(logger, "http://127.0.0.1:1", time.Second)
	_, err = unreachable.ErrorsLastHour(context.Background())
	require.Error(t, err)
}
