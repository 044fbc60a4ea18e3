package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"agency_portal/internal/infrastructure/email"
	"agency_portal/internal/usecase"
	"agency_portal/internal/usecase/interfaces"

	"github.com/hibiken/asynq"
)

// ProposalSweeper expires proposals past their expiry date.
type ProposalSweeper interface {
	ExpireDue(ctx context.Context) (usecase.ExpirySweepResult, error)
}

// InvoiceSweeper flags unpaid invoices past their due date.
type InvoiceSweeper interface {
	MarkOverdue(ctx context.Context) ([]string, error)
}

// TaskProcessor holds what the task handlers need.
type TaskProcessor struct {
	sender    email.Sender
	from      string
	proposals ProposalSweeper
	invoices  InvoiceSweeper
}

func NewTaskProcessor(sender email.Sender, from string, proposals ProposalSweeper, invoices InvoiceSweeper) *TaskProcessor {
	return &TaskProcessor{sender: sender, from: from, proposals: proposals, invoices: invoices}
}

// SweepResult is what one sweep pass changed.
type SweepResult struct {
	Expired          []string
	Reminded         []string
	SkippedReminders []string
	Overdue          []string
}

func (p *TaskProcessor) HandleNotifyTask(ctx context.Context, t *asynq.Task) error {
	var n interfaces.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("failed to unmarshal notify payload: %v: %w", err, asynq.SkipRetry)
	}
	if n.Recipient == "" {
		return fmt.Errorf("notify payload without recipient: %w", asynq.SkipRetry)
	}

	subject, msg, err := email.Render(p.from, n)
	if errors.Is(err, email.ErrUnknownTemplate) {
		log.Printf("[queue][notify] no template event=%s proposal_id=%s", n.Event, n.ProposalID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("render %s: %v: %w", n.Event, err, asynq.SkipRetry)
	}

	if err := p.sender.Send(ctx, []string{n.Recipient}, subject, msg); err != nil {
		// Retried by asynq.
		return fmt.Errorf("send %s for proposal %s: %w", n.Event, n.ProposalID, err)
	}
	log.Printf("[queue][notify] delivered event=%s proposal_id=%s", n.Event, n.ProposalID)
	return nil
}

func (p *TaskProcessor) HandleSweepTask(ctx context.Context, _ *asynq.Task) error {
	_, err := p.Sweep(ctx)
	return err
}

// Sweep expires due proposals, then marks overdue invoices. Both halves run
// even when the first fails.
func (p *TaskProcessor) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	var errs []error

	expiry, err := p.proposals.ExpireDue(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire proposals: %w", err))
	}
	res.Expired = expiry.Expired
	res.Reminded = expiry.Reminded
	res.SkippedReminders = expiry.SkippedReminders

	overdue, err := p.invoices.MarkOverdue(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("mark overdue invoices: %w", err))
	}
	res.Overdue = overdue

	log.Printf("[queue][sweep] done expired=%d reminded=%d skipped_reminders=%d overdue=%d",
		len(res.Expired), len(res.Reminded), len(res.SkippedReminders), len(res.Overdue))
	return res, errors.Join(errs...)
}
