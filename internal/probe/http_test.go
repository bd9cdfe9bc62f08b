package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/model"
)

func TestHTTPProber_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger, _ := zap.NewDevelopment()
	prober := NewHTTPProber(logger, 5*time.Second)

	res := prober.Check(context.Background(), model.Target{
		Name: "api",
		Kind: model.TargetKindHTTP,
		URL:  srv.URL,
	})

	require.True(t, res.Success)
	require.Equal(t, "api", res.Target)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Empty(t, res.Error)
	require.False(t, res.CheckedAt.IsZero())
	require.GreaterOrEqual(t, res.ResponseTimeMs, int64(0))
}

func TestHTTPProber_ErrorStatusIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	logger, _ := zap.NewDevelopment()
	prober := NewHTTPProber(logger, 5*time.Second)

	res := prober.Check(context.Background(), model.Target{Name: "api", URL: srv.URL})
	require.False(t, res.Success)
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	require.NotEmpty(t, res.Error)
}

func TestHTTPProber_ConnectionRefusedIsFailure(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	prober := NewHTTPProber(logger, time.Second)

	res := prober.Check(context.Background(), model.Target{
		Name: "api",
		URL:  "http://127.0.0.1:1",
	})
	require.False(t, res.Success)
	require.NotEmpty(t, res.Error)
	require.False(t, res.CheckedAt.IsZero())
}

func TestHTTPProber_TimeoutIsBounded(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()

	logger, _ := zap.NewDevelopment()
	prober := NewHTTPProber(logger, 5*time.Second)

	start := time.Now()
	res := prober.Check(context.Background(), model.Target{
		Name:    "slow",
		URL:     slow.URL,
		Timeout: 100 * time.Millisecond,
	})
	require.False(t, res.Success)
	require.Less(t, time.Since(start), time.Second)
}
