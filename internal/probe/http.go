package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/model"
)

const defaultProbeTimeout = 10 * time.Second

// HTTPProber checks HTTP endpoints. A response with status >= 400, a
// transport error, or a timeout all count as a failed check.
type HTTPProber struct {
	logger *zap.Logger
	client *http.Client
}

// NewHTTPProber creates an HTTP prober with the given default timeout.
// Per-target timeouts override it.
func NewHTTPProber(logger *zap.Logger, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HTTPProber{
		logger: logger.Named("http-prober"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Check implements Prober.
func (p *HTTPProber) Check(ctx context.Context, target model.Target) model.ProbeResult {
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = p.client.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result := model.ProbeResult{Target: target.Name}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("invalid probe request: %v", err)
		result.CheckedAt = time.Now()
		return result
	}

	resp, err := p.client.Do(req)
	result.ResponseTimeMs = time.Since(start).Milliseconds()
	result.CheckedAt = time.Now()
	if err != nil {
		result.Error = err.Error()
		p.logger.Debug("HTTP probe failed",
			zap.String("target", target.Name),
			zap.Error(err))
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 400 {
		result.Error = fmt.Sprintf("unexpected status: %d", resp.StatusCode)
		return result
	}

	result.Success = true
	return result
}
