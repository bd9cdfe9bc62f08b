package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/model"
)

// DockerProber checks that a container is running and healthy. Used for
// backing services that run next to the dashboard, such as the platform
// database container.
type DockerProber struct {
	logger *zap.Logger
	docker *client.Client
}

// NewDockerProber connects to the local Docker daemon.
func NewDockerProber(logger *zap.Logger) (*DockerProber, error) {
	docker, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerProber{
		logger: logger.Named("docker-prober"),
		docker: docker,
	}, nil
}

// Check implements Prober. The check succeeds when the container is running
// and, if it defines a healthcheck, reports healthy.
func (p *DockerProber) Check(ctx context.Context, target model.Target) model.ProbeResult {
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result := model.ProbeResult{Target: target.Name}

	info, err := p.docker.ContainerInspect(ctx, target.Container)
	result.ResponseTimeMs = time.Since(start).Milliseconds()
	result.CheckedAt = time.Now()
	if err != nil {
		result.Error = err.Error()
		p.logger.Debug("Container inspect failed",
			zap.String("target", target.Name),
			zap.String("container", target.Container),
			zap.Error(err))
		return result
	}

	if info.State == nil || !info.State.Running {
		status := "unknown"
		if info.State != nil {
			status = info.State.Status
		}
		result.Error = fmt.Sprintf("container not running: %s", status)
		return result
	}
	if info.State.Health != nil && info.State.Health.Status != "healthy" {
		result.Error = fmt.Sprintf("container unhealthy: %s", info.State.Health.Status)
		return result
	}

	result.Success = true
	return result
}

// Close releases the docker client.
func (p *DockerProber) Close() error {
	return p.docker.Close()
}
