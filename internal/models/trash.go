package models

import "time"

// TrashedWorkstream is a soft-deleted workstream awaiting restore or purge.
// Created only by the manager's delete operation.
type TrashedWorkstream struct {
	Workstream
	DeletedAt      time.Time `json:"deletedAt"`
	DeletionReason string    `json:"deletionReason,omitempty"`
}
