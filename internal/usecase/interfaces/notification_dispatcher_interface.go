package interfaces

import (
	"context"
	"time"

	"agency_portal/internal/domain/entities"
)

//go:generate mockgen -source=notification_dispatcher_interface.go -destination=mocks/mock_notification_dispatcher.go -package=mock_interfaces

// Notification is the payload handed to the dispatcher after a transition.
type Notification struct {
	Event      entities.EventType `json:"event"`
	ProposalID string             `json:"proposal_id"`
	Recipient  string             `json:"recipient"`
	Title      string             `json:"title"`
	Value      int64              `json:"value"`
	Currency   string             `json:"currency"`
	ExpiresAt  *time.Time         `json:"expires_at,omitempty"`
	ApprovedAt *time.Time         `json:"approved_at,omitempty"`
	InvoiceID  string             `json:"invoice_id,omitempty"`
}

// INotificationDispatcher hands lifecycle events to outbound delivery.
// Implementations must not block on delivery; callers log and ignore
// returned errors.
type INotificationDispatcher interface {
	Notify(ctx context.Context, n Notification) error
}
