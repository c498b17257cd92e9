// Package poller keeps PR-type workstreams synchronized with their
// external check state and derives notifications from meaningful
// transitions.
package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/checks"
	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/notify"
	"github.com/kestrelhq/kestrel/internal/workstream"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 30 * time.Second

// AggregateStatus is the derived check state of one workstream.
type AggregateStatus string

const (
	AggregateUnknown AggregateStatus = "unknown"
	AggregatePending AggregateStatus = "pending"
	AggregateSuccess AggregateStatus = "success"
	AggregateFailure AggregateStatus = "failure"
)

// CacheEntry records the last observed state for one workstream. Entries
// live only in memory: after a restart every workstream reads as unknown
// again, so the first poll can never fire a transition notification.
type CacheEntry struct {
	LastStatus    AggregateStatus
	LastCheckedAt time.Time
}

// Config tunes the synchronizer.
type Config struct {
	Interval time.Duration
	Enabled  bool
}

// Poller periodically asks the status provider about every pollable
// workstream, updates each one through the manager, and queues
// notifications for meaningful transitions.
//
// Workstreams are visited strictly sequentially within a cycle, so total
// cycle latency is the sum of per-item fetch latencies. The timer loop
// runs cycles back to back in one goroutine; a user-triggered PollNow may
// still overlap a timer cycle. All manager and queue mutations are
// serialized internally, so overlapping cycles cannot corrupt state.
type Poller struct {
	manager  *workstream.Manager
	queue    *notify.Queue
	provider checks.Provider
	interval time.Duration
	enabled  bool

	mu    sync.Mutex
	cache map[string]CacheEntry

	cancel  context.CancelFunc
	done    chan struct{}
	updates chan struct{}
}

// New creates a poller. A nil provider makes Start a silent no-op.
func New(mgr *workstream.Manager, queue *notify.Queue, provider checks.Provider, cfg Config) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		manager:  mgr,
		queue:    queue,
		provider: provider,
		interval: interval,
		enabled:  cfg.Enabled,
		cache:    make(map[string]CacheEntry),
		updates:  make(chan struct{}, 1),
	}
}

// Updates returns a coalescing signal channel poked whenever a poll
// cycle may have changed workstream state.
func (p *Poller) Updates() <-chan struct{} {
	return p.updates
}

func (p *Poller) signal() {
	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// Start runs one poll cycle immediately, then recurring cycles on a
// fixed timer, until Stop. No-op if disabled or no provider is
// configured.
func (p *Poller) Start() {
	if !p.enabled || p.provider == nil || p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		if p.cycle() {
			p.signal()
		}

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if p.cycle() {
					p.signal()
				}
			}
		}
	}()
}

// Stop cancels future scheduled cycles and waits for the loop to exit.
// The provider fetch inside a running cycle is not cancelled; its result
// still lands when it completes.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
}

// PollNow runs one cycle synchronously (e.g. a user-triggered refresh)
// and always signals that something may have changed, even if nothing
// did.
func (p *Poller) PollNow() {
	if p.provider != nil {
		p.cycle()
	}
	p.signal()
}

// CachedStatus is a pure read of the in-memory cache. Never touches the
// network.
func (p *Poller) CachedStatus(id string) (CacheEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[id]
	return entry, ok
}

// cycle polls every pollable workstream sequentially. One workstream's
// fetch failure is recorded in its statusMessage and does not abort the
// rest. Reports whether any workstream changed.
func (p *Poller) cycle() bool {
	changed := false
	for _, ws := range p.manager.GetActive() {
		if ws.Type != models.TypePR {
			continue
		}
		ref, ok := checks.RefFromMetadata(ws.Metadata)
		if !ok {
			continue
		}
		if p.pollOne(ws, ref) {
			changed = true
		}
	}
	return changed
}

func (p *Poller) pollOne(ws *models.Workstream, ref checks.Ref) bool {
	// Deliberately not tied to Stop: an in-flight fetch runs to
	// completion and its result is applied.
	summary, err := p.provider.CheckSummary(context.Background(), ref)
	if err != nil {
		msg := fmt.Sprintf("check fetch failed: %v", err)
		_, _ = p.manager.Apply(ws.ID, workstream.Update{StatusMessage: &msg})
		return true
	}

	agg := Aggregate(summary)

	p.mu.Lock()
	prev := AggregateUnknown
	if entry, ok := p.cache[ws.ID]; ok {
		prev = entry.LastStatus
	}
	p.cache[ws.ID] = CacheEntry{LastStatus: agg, LastCheckedAt: time.Now().UTC()}
	p.mu.Unlock()

	if text, ok := transitionMessage(prev, agg, ws.Name, summary); ok {
		p.queue.Add(models.NotifyPRUpdate, text, ws.ID)
	}

	status := classify(agg)
	msg := summarize(summary)
	_, _ = p.manager.Apply(ws.ID, workstream.Update{Status: &status, StatusMessage: &msg})
	return true
}

// Aggregate derives the coarse check state from a summary: any failure
// wins, then any pending, then full success, otherwise unknown.
func Aggregate(s *checks.Summary) AggregateStatus {
	switch {
	case s.Failing > 0:
		return AggregateFailure
	case s.Pending > 0:
		return AggregatePending
	case s.Passing == s.Total && s.Total > 0:
		return AggregateSuccess
	default:
		return AggregateUnknown
	}
}

// transitionMessage decides whether a prev→next transition warrants a
// notification. Only arrivals at success or failure, plus failure→pending
// ("checks restarted"), qualify. The very first observation after boot
// (prev unknown) is always silent so process start never causes a burst.
func transitionMessage(prev, next AggregateStatus, name string, s *checks.Summary) (string, bool) {
	if prev == AggregateUnknown || prev == next {
		return "", false
	}
	switch {
	case next == AggregateSuccess:
		return fmt.Sprintf("%s: all checks passed", name), true
	case next == AggregateFailure:
		return fmt.Sprintf("%s: checks failing (%s)", name, failingPreview(s)), true
	case prev == AggregateFailure && next == AggregatePending:
		return fmt.Sprintf("%s: checks restarted", name), true
	}
	return "", false
}

// failingPreview names up to three failing checks.
func failingPreview(s *checks.Summary) string {
	names := s.FailingNames
	if len(names) == 0 {
		return fmt.Sprintf("%d failing", s.Failing)
	}
	if len(names) > 3 {
		return strings.Join(names[:3], ", ") + fmt.Sprintf(" and %d more", len(names)-3)
	}
	return strings.Join(names, ", ")
}

// classify maps the aggregate check state onto the workstream's own
// status field.
func classify(agg AggregateStatus) models.WorkstreamStatus {
	switch agg {
	case AggregateFailure:
		return models.StatusError
	case AggregateSuccess:
		return models.StatusWaiting
	default:
		return models.StatusInProgress
	}
}

// summarize renders a human-readable status line for the workstream.
func summarize(s *checks.Summary) string {
	switch Aggregate(s) {
	case AggregateFailure:
		return fmt.Sprintf("%d/%d checks failing: %s", s.Failing, s.Total, failingPreview(s))
	case AggregatePending:
		return fmt.Sprintf("%d/%d checks pending", s.Pending, s.Total)
	case AggregateSuccess:
		return fmt.Sprintf("all %d checks passing", s.Total)
	default:
		return "no checks reported"
	}
}
