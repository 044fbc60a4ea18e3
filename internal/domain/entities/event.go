package entities

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventCreated          EventType = "created"
	EventSent             EventType = "sent"
	EventViewed           EventType = "viewed"
	EventApproved         EventType = "approved"
	EventDeclined         EventType = "declined"
	EventExpired          EventType = "expired"
	EventRevised          EventType = "revised"
	EventArchived         EventType = "archived"
	EventDeleted          EventType = "deleted"
	EventActivated        EventType = "activated"
	EventVoided           EventType = "voided"
	EventLinkedToProposal EventType = "linked_to_proposal"
	EventPaid             EventType = "paid"
	EventOverdue          EventType = "overdue"

	// EventExpiring is dispatched as a reminder and never stored.
	EventExpiring EventType = "expiring"
)

// Void reasons recorded in event metadata.
const (
	VoidReasonProposalDeclined = "proposal_declined"
	VoidReasonProposalExpired  = "proposal_expired"
	VoidReasonProposalDeleted  = "proposal_deleted"
)

// EventKey is the natural dedup key of an audit row: one event of a given
// type per entity version. Re-applying a write with the same key replaces
// the row instead of appending a duplicate.
func EventKey(t EventType, version int64) string {
	return fmt.Sprintf("%s#%d", t, version)
}

// ProposalEvent is an append-only audit row.
//
// Storage model (DynamoDB):
//   - PK: proposal_id
//   - SK: key
type ProposalEvent struct {
	ProposalID string         `json:"proposal_id"`
	Key        string         `json:"key"`
	Type       EventType      `json:"type"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ActorID    string         `json:"actor_id"`
	CreatedAt  time.Time      `json:"created_at"`
}

// InvoiceEvent is an append-only audit row.
//
// Storage model (DynamoDB):
//   - PK: invoice_id
//   - SK: key
type InvoiceEvent struct {
	InvoiceID string         `json:"invoice_id"`
	Key       string         `json:"key"`
	Type      EventType      `json:"type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ActorID   string         `json:"actor_id"`
	CreatedAt time.Time      `json:"created_at"`
}
