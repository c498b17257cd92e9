// Package notify keeps a bounded, in-memory log of derived events
// surfaced to the user.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/models"
)

// DefaultMax is the queue capacity when none is configured.
const DefaultMax = 50

// Queue is a bounded notification log. The cap is a hard ceiling: once an
// add pushes the queue over it, already-read notifications are evicted
// first (oldest first), and only when no read items remain does eviction
// begin consuming unread ones.
//
// A coalescing signal channel announces mutations so renderers can react
// without the queue knowing its subscribers.
type Queue struct {
	mu      sync.Mutex
	max     int
	items   []*models.Notification
	updates chan struct{}
}

// NewQueue creates a queue with the given capacity (DefaultMax if <= 0).
func NewQueue(max int) *Queue {
	if max <= 0 {
		max = DefaultMax
	}
	return &Queue{
		max:     max,
		updates: make(chan struct{}, 1),
	}
}

// Updates returns a channel that receives a signal whenever the queue
// changes. Signals coalesce; receivers should re-read queue state.
func (q *Queue) Updates() <-chan struct{} {
	return q.updates
}

func (q *Queue) signal() {
	select {
	case q.updates <- struct{}{}:
	default:
	}
}

// Add appends a notification. Always succeeds; if the queue exceeds its
// cap afterward, eviction runs immediately.
func (q *Queue) Add(typ models.NotificationType, message, workstreamID string) *models.Notification {
	n := &models.Notification{
		ID:           models.NewID(),
		Type:         typ,
		Message:      message,
		WorkstreamID: workstreamID,
		Timestamp:    time.Now().UTC(),
	}

	q.mu.Lock()
	q.items = append(q.items, n)
	q.evictLocked()
	q.mu.Unlock()

	q.signal()
	return n
}

// evictLocked removes exactly len-max items, sacrificing read
// notifications before unread ones regardless of age.
func (q *Queue) evictLocked() {
	overflow := len(q.items) - q.max
	if overflow <= 0 {
		return
	}

	// Rank candidates: read before unread, then oldest first. Insertion
	// order stands in for age so equal timestamps stay deterministic.
	order := make([]int, len(q.items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := q.items[order[a]], q.items[order[b]]
		if ia.Read != ib.Read {
			return ia.Read
		}
		return order[a] < order[b]
	})

	drop := make(map[int]bool, overflow)
	for _, idx := range order[:overflow] {
		drop[idx] = true
	}

	kept := q.items[:0]
	for i, n := range q.items {
		if !drop[i] {
			kept = append(kept, n)
		}
	}
	q.items = kept
}

// MarkAsRead flags one notification as read. Reports whether it was found.
func (q *Queue) MarkAsRead(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, n := range q.items {
		if n.ID == id {
			n.Read = true
			q.signal()
			return true
		}
	}
	return false
}

// MarkAllAsRead flags every notification as read.
func (q *Queue) MarkAllAsRead() {
	q.mu.Lock()
	for _, n := range q.items {
		n.Read = true
	}
	q.mu.Unlock()
	q.signal()
}

// Remove deletes one notification. Reports whether it was found.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.signal()
			return true
		}
	}
	return false
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
	q.signal()
}

// ClearRead removes all read notifications and returns how many went.
func (q *Queue) ClearRead() int {
	q.mu.Lock()
	kept := q.items[:0]
	removed := 0
	for _, n := range q.items {
		if n.Read {
			removed++
		} else {
			kept = append(kept, n)
		}
	}
	q.items = kept
	q.mu.Unlock()

	if removed > 0 {
		q.signal()
	}
	return removed
}

// Notifications returns all notifications, newest first.
func (q *Queue) Notifications() []*models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*models.Notification, len(q.items))
	for i, n := range q.items {
		out[len(q.items)-1-i] = n
	}
	return out
}

// Unread returns unread notifications, newest first.
func (q *Queue) Unread() []*models.Notification {
	return q.filter(func(n *models.Notification) bool { return !n.Read })
}

// ByWorkstream returns notifications referencing a workstream, newest first.
func (q *Queue) ByWorkstream(workstreamID string) []*models.Notification {
	return q.filter(func(n *models.Notification) bool { return n.WorkstreamID == workstreamID })
}

// ByType returns notifications of one type, newest first.
func (q *Queue) ByType(typ models.NotificationType) []*models.Notification {
	return q.filter(func(n *models.Notification) bool { return n.Type == typ })
}

func (q *Queue) filter(keep func(*models.Notification) bool) []*models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*models.Notification
	for i := len(q.items) - 1; i >= 0; i-- {
		if keep(q.items[i]) {
			out = append(out, q.items[i])
		}
	}
	return out
}

// UnreadCounts tallies unread notifications per type. The result always
// contains every notification type, zero-filled when absent.
func (q *Queue) UnreadCounts() map[models.NotificationType]int {
	counts := make(map[models.NotificationType]int, len(models.NotificationTypes))
	for _, typ := range models.NotificationTypes {
		counts[typ] = 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, n := range q.items {
		if !n.Read {
			counts[n.Type]++
		}
	}
	return counts
}

// HasUrgent reports whether any unread notification demands attention.
func (q *Queue) HasUrgent() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, n := range q.items {
		if n.Read {
			continue
		}
		switch n.Type {
		case models.NotifyError, models.NotifyAgentStuck, models.NotifyAgentNeedsInput:
			return true
		}
	}
	return false
}
