package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase/interfaces"

	"github.com/hibiken/asynq"
)

const (
	TypeProposalNotify = "proposal:notify"
	TypePortalSweep    = "portal:sweep"

	QueueCritical = "critical"
	QueueDefault  = "default"

	notifyMaxRetry = 5
	// Reminder task ids are kept this long so a second sweep inside the
	// reminder window does not email the client twice.
	reminderRetention = 48 * time.Hour
)

// Enqueuer is the part of *asynq.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var _ Enqueuer = (*asynq.Client)(nil)

// Dispatcher hands notifications to the worker through asynq. Notify only
// enqueues, so a slow mail server never holds up a lifecycle transition.
type Dispatcher struct {
	client Enqueuer
}

var _ interfaces.INotificationDispatcher = (*Dispatcher)(nil)

func NewDispatcher(client Enqueuer) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) Notify(ctx context.Context, n interfaces.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	opts := []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(notifyMaxRetry)}
	if n.Event == entities.EventExpiring {
		opts = append(opts, asynq.TaskID(reminderTaskID(n)), asynq.Retention(reminderRetention))
	}

	info, err := d.client.EnqueueContext(ctx, asynq.NewTask(TypeProposalNotify, payload), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		log.Printf("[queue][dispatcher] reminder already queued proposal_id=%s", n.ProposalID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeProposalNotify, err)
	}
	log.Printf("[queue][dispatcher] enqueued event=%s proposal_id=%s task_id=%s", n.Event, n.ProposalID, info.ID)
	return nil
}

func reminderTaskID(n interfaces.Notification) string {
	var expires int64
	if n.ExpiresAt != nil {
		expires = n.ExpiresAt.Unix()
	}
	return fmt.Sprintf("%s:%s:%d", n.Event, n.ProposalID, expires)
}

// LoggingDispatcher stands in when notifications are disabled.
type LoggingDispatcher struct{}

var _ interfaces.INotificationDispatcher = LoggingDispatcher{}

func (LoggingDispatcher) Notify(_ context.Context, n interfaces.Notification) error {
	log.Printf("[queue][dispatcher] notifications disabled event=%s proposal_id=%s recipient=%s", n.Event, n.ProposalID, n.Recipient)
	return nil
}
