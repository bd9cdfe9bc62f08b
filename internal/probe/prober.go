// Package probe holds the health-check providers the monitor fans out to
// each cycle. Every prober enforces its own bounded timeout; a probe failure
// is an expected result, never an error returned to the caller.
package probe

import (
	"context"

	"github.com/stayflow/opsdash/internal/model"
)

// Prober performs one health check against one target.
type Prober interface {
	// Check probes the target and always returns a result; failures are
	// reported through ProbeResult.Success, not an error.
	Check(ctx context.Context, target model.Target) model.ProbeResult
}
