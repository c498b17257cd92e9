package models

import "time"

// WorkstreamStatus represents the state of a workstream.
type WorkstreamStatus string

const (
	StatusNeedsInput WorkstreamStatus = "needs_input"
	StatusInProgress WorkstreamStatus = "in_progress"
	StatusWaiting    WorkstreamStatus = "waiting"
	StatusDone       WorkstreamStatus = "done"
	StatusError      WorkstreamStatus = "error"
)

// WorkstreamType represents the kind of work a workstream tracks.
type WorkstreamType string

const (
	TypePR            WorkstreamType = "pr"
	TypeTicket        WorkstreamType = "ticket"
	TypeAsk           WorkstreamType = "ask"
	TypeInvestigation WorkstreamType = "investigation"
	TypeCustom        WorkstreamType = "custom"
)

// ModelConfig holds per-workstream model/behavior overrides.
type ModelConfig struct {
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Progress is a transient snapshot of in-flight agent activity.
// Informational only; nothing durable depends on it.
type Progress struct {
	Phase     string    `json:"phase,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Workstream is a tracked unit of work with its own status and
// conversation history.
//
// ID is immutable after creation. CreatedAt is the sole stable sort key
// for presenting numbered lists to the user and must never be mutated.
// Messages preserves insertion order.
type Workstream struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Type          WorkstreamType    `json:"type"`
	Status        WorkstreamStatus  `json:"status"`
	StatusMessage string            `json:"statusMessage,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	Messages      []Message         `json:"messages"`
	TokenEstimate int               `json:"tokenEstimate"`
	TurnCount     int               `json:"turnCount"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	ModelConfig   ModelConfig       `json:"modelConfig"`
	LiveProgress  *Progress         `json:"liveProgress,omitempty"`
}

// Terminal reports whether the workstream has reached a terminal status.
// An error workstream can still be re-entered via in_progress on retry,
// but for polling purposes both done and error are final.
func (w *Workstream) Terminal() bool {
	return w.Status == StatusDone || w.Status == StatusError
}

// NeedsAttention reports whether the workstream is blocked on the user.
func (w *Workstream) NeedsAttention() bool {
	return w.Status == StatusNeedsInput || w.Status == StatusError
}

// Clone returns a deep copy of the workstream. Messages and metadata are
// copied so mutations on the clone never leak back into the original.
func (w *Workstream) Clone() *Workstream {
	c := *w
	c.Messages = make([]Message, len(w.Messages))
	copy(c.Messages, w.Messages)
	if w.Metadata != nil {
		c.Metadata = make(map[string]string, len(w.Metadata))
		for k, v := range w.Metadata {
			c.Metadata[k] = v
		}
	}
	if w.LiveProgress != nil {
		p := *w.LiveProgress
		c.LiveProgress = &p
	}
	return &c
}
