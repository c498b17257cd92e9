package models

import "time"

// NotificationType categorizes a queued notification.
type NotificationType string

const (
	NotifyPRUpdate        NotificationType = "pr_update"
	NotifyAgentDone       NotificationType = "agent_done"
	NotifyAgentStuck      NotificationType = "agent_stuck"
	NotifyAgentNeedsInput NotificationType = "agent_needs_input"
	NotifyReminder        NotificationType = "reminder"
	NotifyInfo            NotificationType = "info"
	NotifyError           NotificationType = "error"
)

// NotificationTypes lists every notification type in display order.
// Used for fixed-shape tallies so absent types still report zero.
var NotificationTypes = []NotificationType{
	NotifyPRUpdate,
	NotifyAgentDone,
	NotifyAgentStuck,
	NotifyAgentNeedsInput,
	NotifyReminder,
	NotifyInfo,
	NotifyError,
}

// Notification is a derived event surfaced to the user. WorkstreamID is a
// non-owning back-reference used only for lookup; deleting a workstream
// never cascades into its notifications.
type Notification struct {
	ID           string           `json:"id"`
	Type         NotificationType `json:"type"`
	Message      string           `json:"message"`
	WorkstreamID string           `json:"workstreamId,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
	Read         bool             `json:"read"`
}
