package alert

import (
	"sync"
	"time"

	"github.com/stayflow/opsdash/internal/model"
)

const defaultMaxHistory = 500

// Ledger tracks acknowledgement and snooze state per alert id and retains a
// bounded history of every evaluated alert. Ledger entries survive across
// evaluation cycles; alert instances themselves do not.
//
// Snooze expiry is lazy: a snooze stops suppressing once now reaches the
// deadline, without any background cleanup. Prune exists only to bound
// memory, not for correctness.
type Ledger struct {
	mu           sync.Mutex
	acknowledged map[string]time.Time
	snoozed      map[string]time.Time
	history      []model.Alert
	maxHistory   int

	now func() time.Time
}

// NewLedger creates a ledger retaining at most maxHistory alerts. A
// non-positive maxHistory falls back to the default.
func NewLedger(maxHistory int) *Ledger {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Ledger{
		acknowledged: make(map[string]time.Time),
		snoozed:      make(map[string]time.Time),
		maxHistory:   maxHistory,
		now:          time.Now,
	}
}

// Acknowledge marks an alert id as acknowledged. Idempotent: re-acknowledging
// keeps the original timestamp.
func (l *Ledger) Acknowledge(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.acknowledged[id]; !ok {
		l.acknowledged[id] = l.now()
	}
}

// Unacknowledge clears both the acknowledgement and any snooze for an id.
func (l *Ledger) Unacknowledge(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.acknowledged, id)
	delete(l.snoozed, id)
}

// Snooze suppresses an alert id until now + duration. A new snooze overwrites
// any prior one; snoozes do not stack.
func (l *Ledger) Snooze(id string, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snoozed[id] = l.now().Add(duration)
}

// Annotate joins ledger state onto an alert instance by id.
func (l *Ledger) Annotate(a *model.Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.annotateLocked(a)
}

// AnnotateAll joins ledger state onto every alert in the slice.
func (l *Ledger) AnnotateAll(alerts []model.Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range alerts {
		l.annotateLocked(&alerts[i])
	}
}

func (l *Ledger) annotateLocked(a *model.Alert) {
	if at, ok := l.acknowledged[a.ID]; ok {
		a.IsAcknowledged = true
		ackAt := at
		a.AcknowledgedAt = &ackAt
	} else {
		a.IsAcknowledged = false
		a.AcknowledgedAt = nil
	}

	a.IsSnoozed = false
	a.SnoozedUntil = nil
	if until, ok := l.snoozed[a.ID]; ok && l.now().Before(until) {
		a.IsSnoozed = true
		u := until
		a.SnoozedUntil = &u
	}
}

// AppendHistory records evaluated alerts, suppressed or not, evicting the
// oldest entries past the retention bound.
func (l *Ledger) AppendHistory(alerts []model.Alert) {
	if len(alerts) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, alerts...)
	if len(l.history) > l.maxHistory {
		l.history = l.history[len(l.history)-l.maxHistory:]
	}
}

// History returns up to limit retained alerts, most recent first, optionally
// filtered by severity. A non-positive limit returns everything retained.
func (l *Ledger) History(limit int, severity model.AlertSeverity) []model.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Alert, 0, len(l.history))
	for i := len(l.history) - 1; i >= 0; i-- {
		if severity != "" && l.history[i].Severity != severity {
			continue
		}
		out = append(out, l.history[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Prune drops acknowledgements older than maxAge and snoozes whose deadline
// passed more than maxAge ago. Memory bounding only; expiry itself is lazy.
func (l *Ledger) Prune(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxAge)
	removed := 0
	for id, at := range l.acknowledged {
		if at.Before(cutoff) {
			delete(l.acknowledged, id)
			removed++
		}
	}
	for id, until := range l.snoozed {
		if until.Before(cutoff) {
			delete(l.snoozed, id)
			removed++
		}
	}
	return removed
}
