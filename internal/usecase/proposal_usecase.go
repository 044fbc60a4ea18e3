package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"agency_portal/internal/domain/clauses"
	"agency_portal/internal/domain/entities"
	"agency_portal/internal/domain/pricing"
	"agency_portal/internal/infrastructure/metrics"
	"agency_portal/internal/usecase/interfaces"

	"github.com/google/uuid"
)

var (
	ErrProposalNotFound       = errors.New("proposal not found")
	ErrInvalidProposalID      = errors.New("invalid proposal id")
	ErrInvalidClientID        = errors.New("invalid client id")
	ErrInvalidClientEmail     = errors.New("invalid client email")
	ErrInvalidTitle           = errors.New("invalid title")
	ErrInvalidCurrency        = errors.New("invalid currency")
	ErrInvalidActor           = errors.New("invalid actor")
	ErrInvalidLineItem        = pricing.ErrInvalidLineItem
	ErrAmountOverflow         = pricing.ErrAmountOverflow
	ErrTooManyLineItems       = errors.New("too many line items")
	ErrInvalidBillingPlan     = errors.New("invalid billing plan")
	ErrNoServicesSelected     = errors.New("Please select at least one service")
	ErrSignatureRequired      = errors.New("signature required")
	ErrProposalNotDraft       = errors.New("proposal is not a draft")
	ErrProposalExpired        = errors.New("proposal expired")
	ErrProposalNotExpired     = errors.New("proposal has not expired")
	ErrInvalidTransition      = errors.New("invalid proposal status transition")
	ErrConcurrentModification = errors.New("proposal modified concurrently")
	ErrInvoiceAlreadyPaid     = errors.New("linked invoice already paid")
)

const systemActor = "system"

// IProposalUseCase is the proposal lifecycle engine.
//
// Every mutating operation validates before writing, then commits the
// proposal, invoice, snapshot and audit rows as one unit guarded by the
// proposal version. Notifications are sent after the commit and never
// fail the operation.
//
// Repeating send, view, approve, decline or expire on a proposal that is
// already in the target state returns the current state without writing.
type IProposalUseCase interface {
	Create(ctx context.Context, in CreateProposalInput) (ProposalDetails, error)
	Get(ctx context.Context, id string) (ProposalDetails, error)
	ListEvents(ctx context.Context, id string) ([]entities.ProposalEvent, error)
	AddItems(ctx context.Context, id string, items []LineItemInput, actorID string) (ProposalDetails, error)
	ReplaceItems(ctx context.Context, id string, items []LineItemInput, actorID string) (ProposalDetails, error)
	SaveBillingPlan(ctx context.Context, id string, in BillingPlanInput, actorID string) (ProposalDetails, error)
	Send(ctx context.Context, id string, actorID string) (ProposalDetails, error)
	MarkViewed(ctx context.Context, id string, actorID string) (ProposalDetails, error)
	Approve(ctx context.Context, id string, signature string, actorID string) (ProposalDetails, error)
	Decline(ctx context.Context, id string, reason string, actorID string) (ProposalDetails, error)
	Expire(ctx context.Context, id string) (ProposalDetails, error)
	ExpireDue(ctx context.Context) (ExpirySweepResult, error)
	Revise(ctx context.Context, id string, actorID string) (ProposalDetails, error)
	Archive(ctx context.Context, id string, actorID string) (ProposalDetails, error)
	Delete(ctx context.Context, id string, actorID string) error
}

type CreateProposalInput struct {
	ClientID    string
	ClientEmail string
	Title       string
	Description string
	Currency    string
	ActorID     string
}

type LineItemInput struct {
	ServiceType string
	Name        string
	Description string
	Quantity    int64
	UnitPrice   int64
}

type BillingPlanInput struct {
	Type             entities.BillingPlanType
	DepositPercent   int
	PaymentTermsDays int
	StartDate        *time.Time
}

// ProposalDetails is a proposal with the rows that hang off it.
// Invoice is nil when the linked invoice is missing.
type ProposalDetails struct {
	Proposal    entities.Proposal
	Items       []entities.LineItem
	BillingPlan *entities.BillingPlan
	Invoice     *entities.Invoice
	Snapshots   []entities.ClauseSnapshot
}

// ExpirySweepResult lists proposal ids by outcome. SkippedReminders holds
// proposals inside the reminder window whose reminder was not dispatched.
type ExpirySweepResult struct {
	Expired          []string
	Reminded         []string
	SkippedReminders []string
	Failed           map[string]string
}

type ProposalSettings struct {
	ExpiryWindow            time.Duration
	ReminderWindow          time.Duration
	DefaultPaymentTermsDays int
	DefaultCurrency         string
	MaxLineItems            int
	Now                     func() time.Time
}

func DefaultProposalSettings() ProposalSettings {
	return ProposalSettings{
		ExpiryWindow:            30 * 24 * time.Hour,
		ReminderWindow:          24 * time.Hour,
		DefaultPaymentTermsDays: 14,
		DefaultCurrency:         "USD",
		MaxLineItems:            40,
		Now:                     func() time.Time { return time.Now().UTC() },
	}
}

type ProposalUseCase struct {
	repo     interfaces.IProposalRepository
	invoices interfaces.IInvoiceRepository
	clauses  interfaces.IClauseStore
	resolver interfaces.IClauseResolver
	notifier interfaces.INotificationDispatcher
	settings ProposalSettings
}

var _ IProposalUseCase = (*ProposalUseCase)(nil)

func NewProposalUseCase(
	repo interfaces.IProposalRepository,
	invoices interfaces.IInvoiceRepository,
	clauseStore interfaces.IClauseStore,
	resolver interfaces.IClauseResolver,
	notifier interfaces.INotificationDispatcher,
	settings ProposalSettings,
) *ProposalUseCase {
	defaults := DefaultProposalSettings()
	if settings.ExpiryWindow <= 0 {
		settings.ExpiryWindow = defaults.ExpiryWindow
	}
	if settings.ReminderWindow < 0 {
		settings.ReminderWindow = 0
	}
	if settings.DefaultPaymentTermsDays <= 0 {
		settings.DefaultPaymentTermsDays = defaults.DefaultPaymentTermsDays
	}
	if settings.DefaultCurrency == "" {
		settings.DefaultCurrency = defaults.DefaultCurrency
	}
	if settings.MaxLineItems <= 0 {
		settings.MaxLineItems = defaults.MaxLineItems
	}
	if settings.Now == nil {
		settings.Now = defaults.Now
	}
	return &ProposalUseCase{
		repo:     repo,
		invoices: invoices,
		clauses:  clauseStore,
		resolver: resolver,
		notifier: notifier,
		settings: settings,
	}
}

// proposalState is everything a transition reads before it writes.
type proposalState struct {
	proposal entities.Proposal
	items    []entities.LineItem
	plan     *entities.BillingPlan
	invoice  *entities.Invoice
}

func (s proposalState) details() ProposalDetails {
	return ProposalDetails{Proposal: s.proposal, Items: s.items, BillingPlan: s.plan, Invoice: s.invoice}
}

func (u *ProposalUseCase) Create(ctx context.Context, in CreateProposalInput) (ProposalDetails, error) {
	clientID := strings.TrimSpace(in.ClientID)
	title := strings.TrimSpace(in.Title)
	email := strings.TrimSpace(in.ClientEmail)
	actor := strings.TrimSpace(in.ActorID)
	log.Printf("[proposal][usecase] create start client_id=%q actor=%q", clientID, actor)

	if clientID == "" {
		return ProposalDetails{}, ErrInvalidClientID
	}
	if title == "" {
		return ProposalDetails{}, ErrInvalidTitle
	}
	if email != "" && !strings.Contains(email, "@") {
		return ProposalDetails{}, ErrInvalidClientEmail
	}
	if actor == "" {
		return ProposalDetails{}, ErrInvalidActor
	}
	currency, err := u.normalizeCurrency(in.Currency)
	if err != nil {
		return ProposalDetails{}, err
	}

	now := u.settings.Now()
	p := entities.Proposal{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		ClientEmail: email,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      entities.ProposalStatusDraft,
		Currency:    currency,
		CreatedBy:   actor,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	inv := u.newLinkedInvoice(p, nil, now)
	p.InvoiceID = inv.ID

	commit := interfaces.ProposalCommit{
		Proposal:       p,
		Invoice:        &inv,
		ProposalEvents: []entities.ProposalEvent{proposalEvent(p, entities.EventCreated, actor, now, nil)},
		InvoiceEvents:  linkedInvoiceEvents(inv, p.ID, actor, now),
	}
	if err := u.commit(ctx, "create", commit); err != nil {
		log.Printf("[proposal][usecase] create failed client_id=%s err=%v", clientID, err)
		return ProposalDetails{}, err
	}
	log.Printf("[proposal][usecase] create success proposal_id=%s invoice_id=%s", p.ID, inv.ID)
	return ProposalDetails{Proposal: p, Items: []entities.LineItem{}, Invoice: &inv}, nil
}

func (u *ProposalUseCase) Get(ctx context.Context, id string) (ProposalDetails, error) {
	st, err := u.load(ctx, id)
	if err != nil {
		return ProposalDetails{}, err
	}
	snaps, err := u.repo.ListSnapshots(ctx, st.proposal.ID)
	if err != nil {
		return ProposalDetails{}, err
	}
	d := st.details()
	d.Snapshots = snaps
	return d, nil
}

func (u *ProposalUseCase) ListEvents(ctx context.Context, id string) ([]entities.ProposalEvent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidProposalID
	}
	return u.repo.ListEvents(ctx, id)
}

func (u *ProposalUseCase) AddItems(ctx context.Context, id string, items []LineItemInput, actorID string) (ProposalDetails, error) {
	if len(items) == 0 {
		return ProposalDetails{}, fmt.Errorf("%w: no items", ErrInvalidLineItem)
	}
	return u.mutateItems(ctx, "add_items", id, items, actorID, true)
}

func (u *ProposalUseCase) ReplaceItems(ctx context.Context, id string, items []LineItemInput, actorID string) (ProposalDetails, error) {
	return u.mutateItems(ctx, "replace_items", id, items, actorID, false)
}

// mutateItems appends or replaces line items, then brings the proposal
// value, the invoice amount and the billing plan in line with them.
func (u *ProposalUseCase) mutateItems(ctx context.Context, op, id string, in []LineItemInput, actorID string, appendMode bool) (ProposalDetails, error) {
	log.Printf("[proposal][usecase] %s start proposal_id=%q items=%d", op, id, len(in))
	if strings.TrimSpace(actorID) == "" {
		return ProposalDetails{}, ErrInvalidActor
	}
	st, err := u.load(ctx, id)
	if err != nil {
		return ProposalDetails{}, err
	}
	if st.proposal.Status != entities.ProposalStatusDraft {
		log.Printf("[proposal][usecase] %s rejected proposal_id=%s status=%s", op, st.proposal.ID, st.proposal.Status)
		u.observe(op, metrics.OutcomeRejected)
		return ProposalDetails{}, ErrProposalNotDraft
	}

	var items []entities.LineItem
	nextSort := 0
	if appendMode {
		items = append(items, st.items...)
		for _, it := range st.items {
			if it.SortOrder >= nextSort {
				nextSort = it.SortOrder + 1
			}
		}
	}
	for i, raw := range in {
		it, err := buildLineItem(st.proposal.ID, raw, nextSort+i)
		if err != nil {
			log.Printf("[proposal][usecase] %s invalid item proposal_id=%s index=%d err=%v", op, st.proposal.ID, i, err)
			return ProposalDetails{}, err
		}
		items = append(items, it)
	}
	if len(items) > u.settings.MaxLineItems {
		return ProposalDetails{}, ErrTooManyLineItems
	}
	if items == nil {
		items = []entities.LineItem{}
	}
	st.items = items

	now := u.settings.Now()
	if err := u.recompute(&st, now); err != nil {
		return ProposalDetails{}, err
	}
	commit := u.baseCommit(&st, now)
	commit.Items = &items
	if err := u.commit(ctx, op, commit); err != nil {
		log.Printf("[proposal][usecase] %s failed proposal_id=%s err=%v", op, st.proposal.ID, err)
		return ProposalDetails{}, err
	}
	log.Printf("[proposal][usecase] %s success proposal_id=%s value=%d", op, st.proposal.ID, st.proposal.Value)
	return st.details(), nil
}

func (u *ProposalUseCase) SaveBillingPlan(ctx context.Context, id string, in BillingPlanInput, actorID string) (ProposalDetails, error) {
	log.Printf("[proposal][usecase] save-billing-plan start proposal_id=%q type=%s", id, in.Type)
	if strings.TrimSpace(actorID) == "" {
		return ProposalDetails{}, ErrInvalidActor
	}
	if !in.Type.Valid() || in.DepositPercent < 0 || in.DepositPercent > 100 || in.PaymentTermsDays < 0 {
		return ProposalDetails{}, ErrInvalidBillingPlan
	}
	st, err := u.load(ctx, id)
	if err != nil {
		return ProposalDetails{}, err
	}
	if st.proposal.Status != entities.ProposalStatusDraft {
		u.observe("save_billing_plan", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrProposalNotDraft
	}

	terms := in.PaymentTermsDays
	if terms == 0 {
		terms = u.settings.DefaultPaymentTermsDays
	}
	percent := in.DepositPercent
	if in.Type != entities.BillingPlanSplit {
		percent = 0
	}
	now := u.settings.Now()
	st.plan = &entities.BillingPlan{
		ProposalID:       st.proposal.ID,
		Type:             in.Type,
		Currency:         st.proposal.Currency,
		DepositPercent:   percent,
		PaymentTermsDays: terms,
		StartDate:        in.StartDate,
	}
	if err := u.recompute(&st, now); err != nil {
		return ProposalDetails{}, err
	}
	if err := u.commit(ctx, "save_billing_plan", u.baseCommit(&st, now)); err != nil {
		log.Printf("[proposal][usecase] save-billing-plan failed proposal_id=%s err=%v", st.proposal.ID, err)
		return ProposalDetails{}, err
	}
	log.Printf("[proposal][usecase] save-billing-plan success proposal_id=%s total=%d deposit=%d", st.proposal.ID, st.plan.Total, st.plan.Deposit)
	return st.details(), nil
}

func (u *ProposalUseCase) Send(ctx context.Context, id string, actorID string) (ProposalDetails, error) {
	log.Printf("[proposal][usecase] send start proposal_id=%q", id)
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return ProposalDetails{}, ErrInvalidActor
	}
	st, err := u.load(ctx, id)
	if err != nil {
		return ProposalDetails{}, err
	}
	switch st.proposal.Status {
	case entities.ProposalStatusDraft:
	case entities.ProposalStatusSent, entities.ProposalStatusViewed:
		log.Printf("[proposal][usecase] send noop proposal_id=%s status=%s", st.proposal.ID, st.proposal.Status)
		u.observe("send", metrics.OutcomeNoop)
		return st.details(), nil
	default:
		u.observe("send", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrInvalidTransition
	}
	if len(st.items) == 0 {
		log.Printf("[proposal][usecase] send rejected proposal_id=%s reason=no-items", st.proposal.ID)
		u.observe("send", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrNoServicesSelected
	}

	codes := u.resolver.Resolve(clauses.ServiceTypes(st.items))
	active, err := u.clauses.SelectActiveClausesByCode(ctx, codes)
	if err != nil {
		log.Printf("[proposal][usecase] send clause lookup failed proposal_id=%s err=%v", st.proposal.ID, err)
		return ProposalDetails{}, err
	}

	now := u.settings.Now()
	if err := u.recompute(&st, now); err != nil {
		return ProposalDetails{}, err
	}
	snap := buildSnapshot(st.proposal.ID, st.proposal.SnapshotVersion+1, active, now)

	p := &st.proposal
	expires := now.Add(u.settings.ExpiryWindow)
	p.Status = entities.ProposalStatusSent
	p.SentAt = &now
	p.ExpiresAt = &expires
	p.SnapshotVersion = snap.Version

	commit := u.baseCommit(&st, now)
	commit.Snapshot = &snap
	commit.ProposalEvents = append(commit.ProposalEvents, proposalEvent(*p, entities.EventSent, actor, now, map[string]any{
		"snapshot_version": snap.Version,
		"clause_count":     len(snap.Items),
		"value":            p.Value,
	}))
	if err := u.commit(ctx, "send", commit); err != nil {
		log.Printf("[proposal][usecase] send failed proposal_id=%s err=%v", p.ID, err)
		return ProposalDetails{}, err
	}
	log.Printf("[proposal][usecase] send success proposal_id=%s snapshot_version=%d clauses=%d", p.ID, snap.Version, len(snap.Items))

	u.notify(ctx, u.notification(entities.EventSent, st))
	d := st.details()
	d.Snapshots = []entities.ClauseSnapshot{snap}
	return d, nil
}

func (u *ProposalUseCase) MarkViewed(ctx context.Context, id string, actorID string) (ProposalDetails, error) {
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return ProposalDetails{}, ErrInvalidActor
	}
	st, err := u.load(ctx, id)
	if err != nil {
		return ProposalDetails{}, err
	}
	switch st.proposal.Status {
	case entities.ProposalStatusSent:
	case entities.ProposalStatusViewed:
		u.observe("view", metrics.OutcomeNoop)
		return st.details(), nil
	default:
		u.observe("view", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrInvalidTransition
	}

	now := u.settings.Now()
	st.proposal.Status = entities.ProposalStatusViewed
	commit := u.proposalOnlyCommit(&st, now)
	commit.ProposalEvents = []entities.ProposalEvent{proposalEvent(st.proposal, entities.EventViewed, actor, now, nil)}
	if err := u.commit(ctx, "view", commit); err != nil {
		return ProposalDetails{}, err
	}
	log.Printf("[proposal][usecase] view success proposal_id=%s", st.proposal.ID)
	return st.details(), nil
}

func (u *ProposalUseCase) Approve(ctx context.Context, id string, signature string, actorID string) (ProposalDetails, error) {
	log.Printf("[proposal][usecase] approve start proposal_id=%q", id)
	actor := strings.TrimSpace(actorID)
	signature = strings.TrimSpace(signature)
	if actor == "" {
		return ProposalDetails{}, ErrInvalidActor
	}
	if signature == "" {
		return ProposalDetails{}, ErrSignatureRequired
	}
	st, err := u.load(ctx, id)
	if err != nil {
		return ProposalDetails{}, err
	}
	if st.proposal.Status == entities.ProposalStatusApproved {
		log.Printf("[proposal][usecase] approve noop proposal_id=%s", st.proposal.ID)
		u.observe("approve", metrics.OutcomeNoop)
		return st.details(), nil
	}
	if !st.proposal.Status.AwaitingResponse() {
		u.observe("approve", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrInvalidTransition
	}
	now := u.settings.Now()
	if st.proposal.Expired(now) {
		log.Printf("[proposal][usecase] approve rejected proposal_id=%s reason=expired", st.proposal.ID)
		u.observe("approve", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrProposalExpired
	}

	if err := u.recompute(&st, now); err != nil {
		return ProposalDetails{}, err
	}
	p := &st.proposal
	p.Status = entities.ProposalStatusApproved
	p.ApprovedAt = &now
	p.ApprovedBy = actor
	p.Signature = signature

	commit := u.baseCommit(&st, now)
	activated := false
	if inv := st.invoice; inv != nil {
		switch {
		case inv.Status == entities.InvoiceStatusPaid:
			log.Printf("[proposal][usecase] approve invoice already paid proposal_id=%s invoice_id=%s", p.ID, inv.ID)
		case inv.Status == entities.InvoiceStatusVoid:
			log.Printf("[proposal][usecase] approve inconsistency: linked invoice void proposal_id=%s invoice_id=%s", p.ID, inv.ID)
		default:
			due := now.AddDate(0, 0, u.paymentTerms(st.plan))
			inv.Status = entities.InvoiceStatusUnpaid
			inv.ActivationSource = entities.ActivationSourceProposalApproval
			inv.DueDate = &due
			inv.LockedFromSend = true
			activated = true
			commit.InvoiceEvents = append(commit.InvoiceEvents, invoiceEvent(*inv, entities.EventActivated, actor, now, map[string]any{
				"proposal_id":  p.ID,
				"amount_cents": inv.AmountCents,
				"due_date":     due.Format(time.RFC3339),
			}))
		}
	}
	commit.ProposalEvents = append(commit.ProposalEvents, proposalEvent(*p, entities.EventApproved, actor, now, map[string]any{
		"signature":  signature,
		"invoice_id": p.InvoiceID,
	}))
	if err := u.commit(ctx, "approve", commit); err != nil {
		log.Printf("[proposal][usecase] approve failed proposal_id=%s err=%v", p.ID, err)
		return ProposalDetails{}, err
	}
	log.Printf("[proposal][usecase] approve success proposal_id=%s invoice_activated=%t", p.ID, activated)

	if activated {
		u.notify(ctx, u.notification(entities.EventActivated, st))
	}
	u.notify(ctx, u.notification(entities.EventApproved, st))
	return st.details(), nil
}

func (u *ProposalUseCase) Decline(ctx context.Context, id string, reason string, actorID string) (ProposalDetails, error) {
	log.Printf("[proposal][usecase] decline start proposal_id=%q", id)
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return ProposalDetails{}, ErrInvalidActor
	}
	st, err := u.load(ctx, id)
	if err != nil {
		return ProposalDetails{}, err
	}
	if st.proposal.Status == entities.ProposalStatusDeclined {
		u.observe("decline", metrics.OutcomeNoop)
		return st.details(), nil
	}
	if !st.proposal.Status.AwaitingResponse() {
		u.observe("decline", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrInvalidTransition
	}

	now := u.settings.Now()
	p := &st.proposal
	p.Status = entities.ProposalStatusDeclined
	p.DeclinedAt = &now
	p.DeclineReason = strings.TrimSpace(reason)

	commit := u.proposalOnlyCommit(&st, now)
	u.voidInvoice(&st, &commit, entities.VoidReasonProposalDeclined, actor, now)
	commit.ProposalEvents = append(commit.ProposalEvents, proposalEvent(*p, entities.EventDeclined, actor, now, map[string]any{
		"reason": p.DeclineReason,
	}))
	if err := u.commit(ctx, "decline", commit); err != nil {
		log.Printf("[proposal][usecase] decline failed proposal_id=%s err=%v", p.ID, err)
		return ProposalDetails{}, err
	}
	log.Printf("[proposal][usecase] decline success proposal_id=%s", p.ID)

	u.notify(ctx, u.notification(entities.EventDeclined, st))
	return st.details(), nil
}

// Expire moves a sent or viewed proposal whose expiry has passed to
// expired and voids its invoice. It is driven by the scheduled sweep.
func (u *ProposalUseCase) Expire(ctx context.Context, id string) (ProposalDetails, error) {
	st, err := u.load(ctx, id)
	if err != nil {
		return ProposalDetails{}, err
	}
	if st.proposal.Status == entities.ProposalStatusExpired {
		u.observe("expire", metrics.OutcomeNoop)
		return st.details(), nil
	}
	if !st.proposal.Status.AwaitingResponse() {
		u.observe("expire", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrInvalidTransition
	}
	now := u.settings.Now()
	if !st.proposal.Expired(now) {
		u.observe("expire", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrProposalNotExpired
	}

	p := &st.proposal
	p.Status = entities.ProposalStatusExpired
	commit := u.proposalOnlyCommit(&st, now)
	u.voidInvoice(&st, &commit, entities.VoidReasonProposalExpired, systemActor, now)
	commit.ProposalEvents = append(commit.ProposalEvents, proposalEvent(*p, entities.EventExpired, systemActor, now, map[string]any{
		"expires_at": p.ExpiresAt.Format(time.RFC3339),
	}))
	if err := u.commit(ctx, "expire", commit); err != nil {
		log.Printf("[proposal][usecase] expire failed proposal_id=%s err=%v", p.ID, err)
		return ProposalDetails{}, err
	}
	log.Printf("[proposal][usecase] expire success proposal_id=%s", p.ID)

	u.notify(ctx, u.notification(entities.EventExpired, st))
	return st.details(), nil
}

// ExpireDue expires every awaiting proposal past its expiry and sends an
// expiring reminder for those that will lapse within the reminder window.
// One failing proposal does not stop the sweep.
func (u *ProposalUseCase) ExpireDue(ctx context.Context) (ExpirySweepResult, error) {
	now := u.settings.Now()
	res := ExpirySweepResult{Failed: map[string]string{}}
	log.Printf("[proposal][sweep] start now=%s", now.Format(time.RFC3339))

	due, err := u.repo.ListAwaitingResponseExpiringBefore(ctx, now.Add(u.settings.ReminderWindow))
	if err != nil {
		log.Printf("[proposal][sweep] list failed err=%v", err)
		return res, err
	}
	for _, p := range due {
		if !p.Expired(now) {
			sent := u.notify(ctx, interfaces.Notification{
				Event:      entities.EventExpiring,
				ProposalID: p.ID,
				Recipient:  p.ClientEmail,
				Title:      p.Title,
				Value:      p.Value,
				Currency:   p.Currency,
				ExpiresAt:  p.ExpiresAt,
				InvoiceID:  p.InvoiceID,
			})
			if sent {
				res.Reminded = append(res.Reminded, p.ID)
			} else {
				res.SkippedReminders = append(res.SkippedReminders, p.ID)
			}
			continue
		}
		if _, err := u.Expire(ctx, p.ID); err != nil {
			log.Printf("[proposal][sweep] expire failed proposal_id=%s err=%v", p.ID, err)
			res.Failed[p.ID] = err.Error()
			continue
		}
		res.Expired = append(res.Expired, p.ID)
	}
	metrics.AddExpired(len(res.Expired))
	log.Printf("[proposal][sweep] done expired=%d reminded=%d skipped_reminders=%d failed=%d",
		len(res.Expired), len(res.Reminded), len(res.SkippedReminders), len(res.Failed))
	return res, nil
}

// Revise returns a proposal to draft so it can be edited and re-sent.
//
// The linked invoice goes back to pending and stays locked from send. A
// void invoice is never reopened: a fresh pending invoice is linked
// instead. Revising is refused once the invoice has been paid. Clause
// snapshots are kept as issued.
func (u *ProposalUseCase) Revise(ctx context.Context, id string, actorID string) (ProposalDetails, error) {
	log.Printf("[proposal][usecase] revise start proposal_id=%q", id)
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return ProposalDetails{}, ErrInvalidActor
	}
	st, err := u.load(ctx, id)
	if err != nil {
		return ProposalDetails{}, err
	}
	prev := st.proposal.Status
	switch prev {
	case entities.ProposalStatusDraft:
		u.observe("revise", metrics.OutcomeNoop)
		return st.details(), nil
	case entities.ProposalStatusSent, entities.ProposalStatusViewed, entities.ProposalStatusApproved,
		entities.ProposalStatusDeclined, entities.ProposalStatusExpired:
	default:
		u.observe("revise", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrInvalidTransition
	}
	if st.invoice != nil && st.invoice.Status == entities.InvoiceStatusPaid {
		u.observe("revise", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrInvoiceAlreadyPaid
	}

	now := u.settings.Now()
	p := &st.proposal
	p.Status = entities.ProposalStatusDraft
	p.SentAt, p.ExpiresAt, p.ApprovedAt, p.DeclinedAt = nil, nil, nil, nil
	p.ApprovedBy, p.Signature, p.DeclineReason = "", "", ""

	commit := u.proposalOnlyCommit(&st, now)
	if st.invoice == nil || st.invoice.Status == entities.InvoiceStatusVoid {
		if st.invoice == nil {
			log.Printf("[proposal][usecase] revise inconsistency: linked invoice missing proposal_id=%s", p.ID)
		}
		inv := u.newLinkedInvoice(*p, st.items, now)
		p.InvoiceID = inv.ID
		st.invoice = &inv
		commit.Proposal = *p
		commit.Invoice = &inv
		commit.ExpectedInvoiceVersion = 0
		commit.InvoiceEvents = linkedInvoiceEvents(inv, p.ID, actor, now)
	} else {
		inv := st.invoice
		prevInvoice := inv.Status
		commit.ExpectedInvoiceVersion = inv.Version
		inv.Status = entities.InvoiceStatusPending
		inv.DueDate = nil
		inv.ActivationSource = ""
		inv.LockedFromSend = true
		inv.Version++
		inv.UpdatedAt = now
		commit.Invoice = inv
		commit.InvoiceEvents = []entities.InvoiceEvent{invoiceEvent(*inv, entities.EventRevised, actor, now, map[string]any{
			"proposal_id":     p.ID,
			"previous_status": string(prevInvoice),
		})}
	}
	commit.ProposalEvents = []entities.ProposalEvent{proposalEvent(*p, entities.EventRevised, actor, now, map[string]any{
		"previous_status": string(prev),
	})}
	if err := u.commit(ctx, "revise", commit); err != nil {
		log.Printf("[proposal][usecase] revise failed proposal_id=%s err=%v", p.ID, err)
		return ProposalDetails{}, err
	}
	log.Printf("[proposal][usecase] revise success proposal_id=%s previous_status=%s invoice_id=%s", p.ID, prev, p.InvoiceID)
	return st.details(), nil
}

// Archive is the admin escape hatch for removing a non-draft proposal
// from view. Drafts are deleted instead.
func (u *ProposalUseCase) Archive(ctx context.Context, id string, actorID string) (ProposalDetails, error) {
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return ProposalDetails{}, ErrInvalidActor
	}
	st, err := u.load(ctx, id)
	if err != nil {
		return ProposalDetails{}, err
	}
	switch st.proposal.Status {
	case entities.ProposalStatusArchived:
		u.observe("archive", metrics.OutcomeNoop)
		return st.details(), nil
	case entities.ProposalStatusDraft:
		u.observe("archive", metrics.OutcomeRejected)
		return ProposalDetails{}, ErrInvalidTransition
	}

	now := u.settings.Now()
	prev := st.proposal.Status
	st.proposal.Status = entities.ProposalStatusArchived
	st.proposal.ArchivedAt = &now
	commit := u.proposalOnlyCommit(&st, now)
	commit.ProposalEvents = []entities.ProposalEvent{proposalEvent(st.proposal, entities.EventArchived, actor, now, map[string]any{
		"previous_status": string(prev),
	})}
	if err := u.commit(ctx, "archive", commit); err != nil {
		return ProposalDetails{}, err
	}
	log.Printf("[proposal][usecase] archive success proposal_id=%s previous_status=%s", st.proposal.ID, prev)
	return st.details(), nil
}

// Delete removes a draft proposal with its items and billing plan and
// voids its pending invoice. Anything past draft must be archived.
func (u *ProposalUseCase) Delete(ctx context.Context, id string, actorID string) error {
	log.Printf("[proposal][usecase] delete start proposal_id=%q", id)
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return ErrInvalidActor
	}
	st, err := u.load(ctx, id)
	if err != nil {
		return err
	}
	if st.proposal.Status != entities.ProposalStatusDraft {
		log.Printf("[proposal][usecase] delete rejected proposal_id=%s status=%s", st.proposal.ID, st.proposal.Status)
		u.observe("delete", metrics.OutcomeRejected)
		return ErrProposalNotDraft
	}

	now := u.settings.Now()
	commit := u.proposalOnlyCommit(&st, now)
	commit.DeleteProposal = true
	u.voidInvoice(&st, &commit, entities.VoidReasonProposalDeleted, actor, now)
	commit.ProposalEvents = append(commit.ProposalEvents, proposalEvent(st.proposal, entities.EventDeleted, actor, now, nil))
	if err := u.commit(ctx, "delete", commit); err != nil {
		log.Printf("[proposal][usecase] delete failed proposal_id=%s err=%v", st.proposal.ID, err)
		return err
	}
	log.Printf("[proposal][usecase] delete success proposal_id=%s", st.proposal.ID)
	return nil
}

func (u *ProposalUseCase) load(ctx context.Context, id string) (proposalState, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return proposalState{}, ErrInvalidProposalID
	}
	p, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return proposalState{}, err
	}
	if p.ID == "" {
		return proposalState{}, ErrProposalNotFound
	}
	items, err := u.repo.ListItems(ctx, p.ID)
	if err != nil {
		return proposalState{}, err
	}
	if items == nil {
		items = []entities.LineItem{}
	}
	st := proposalState{proposal: p, items: items}

	plan, err := u.repo.GetBillingPlan(ctx, p.ID)
	if err != nil {
		return proposalState{}, err
	}
	if plan.ProposalID != "" {
		st.plan = &plan
	}

	if p.InvoiceID != "" {
		inv, err := u.invoices.GetByID(ctx, p.InvoiceID)
		if err != nil {
			return proposalState{}, err
		}
		if inv.ID != "" {
			st.invoice = &inv
		}
	}
	if st.invoice == nil {
		log.Printf("[proposal][usecase] inconsistency: linked invoice missing proposal_id=%s invoice_id=%q", p.ID, p.InvoiceID)
	}
	return st, nil
}

// recompute derives the proposal value from its items and syncs the
// invoice amount and billing plan totals to it.
func (u *ProposalUseCase) recompute(st *proposalState, now time.Time) error {
	total, err := pricing.Total(st.items)
	if err != nil {
		return err
	}
	st.proposal.Value = total
	if inv := st.invoice; inv != nil && !inv.Status.Final() {
		inv.AmountCents = total
		inv.Currency = st.proposal.Currency
		inv.Items = entities.MirrorLineItems(st.items)
	}
	if plan := st.plan; plan != nil {
		deposit, err := pricing.Deposit(plan.Type, total, plan.DepositPercent)
		if err != nil {
			return err
		}
		plan.Total = total
		plan.Deposit = deposit
		plan.UpdatedAt = now
	}
	return nil
}

// baseCommit writes the proposal plus the invoice and billing plan as
// they stand in st, bumping versions.
func (u *ProposalUseCase) baseCommit(st *proposalState, now time.Time) interfaces.ProposalCommit {
	c := u.proposalOnlyCommit(st, now)
	if inv := st.invoice; inv != nil && !inv.Status.Final() {
		c.ExpectedInvoiceVersion = inv.Version
		inv.Version++
		inv.UpdatedAt = now
		c.Invoice = inv
	}
	c.BillingPlan = st.plan
	return c
}

func (u *ProposalUseCase) proposalOnlyCommit(st *proposalState, now time.Time) interfaces.ProposalCommit {
	expected := st.proposal.Version
	st.proposal.Version++
	st.proposal.UpdatedAt = now
	return interfaces.ProposalCommit{Proposal: st.proposal, ExpectedVersion: expected}
}

// voidInvoice voids the linked invoice unless it is already final. A
// missing invoice is logged and skipped.
func (u *ProposalUseCase) voidInvoice(st *proposalState, c *interfaces.ProposalCommit, reason, actor string, now time.Time) {
	inv := st.invoice
	if inv == nil {
		return
	}
	if inv.Status.Final() {
		log.Printf("[proposal][usecase] invoice already final proposal_id=%s invoice_id=%s status=%s", st.proposal.ID, inv.ID, inv.Status)
		return
	}
	c.ExpectedInvoiceVersion = inv.Version
	inv.Status = entities.InvoiceStatusVoid
	inv.LockedFromSend = true
	inv.Version++
	inv.UpdatedAt = now
	c.Invoice = inv
	c.InvoiceEvents = append(c.InvoiceEvents, invoiceEvent(*inv, entities.EventVoided, actor, now, map[string]any{
		"reason":      reason,
		"proposal_id": st.proposal.ID,
	}))
}

func (u *ProposalUseCase) commit(ctx context.Context, op string, c interfaces.ProposalCommit) error {
	if err := u.repo.Commit(ctx, c); err != nil {
		if errors.Is(err, interfaces.ErrVersionConflict) {
			u.observe(op, metrics.OutcomeConflict)
			return ErrConcurrentModification
		}
		u.observe(op, metrics.OutcomeError)
		return err
	}
	u.observe(op, metrics.OutcomeOK)
	return nil
}

func (u *ProposalUseCase) observe(op, outcome string) {
	metrics.ObserveTransition(op, outcome)
}

// notify reports whether the notification was handed to the dispatcher.
func (u *ProposalUseCase) notify(ctx context.Context, n interfaces.Notification) bool {
	if u.notifier == nil {
		return false
	}
	if strings.TrimSpace(n.Recipient) == "" {
		log.Printf("[proposal][notify] skipped event=%s proposal_id=%s reason=no-recipient", n.Event, n.ProposalID)
		metrics.ObserveNotification(string(n.Event), metrics.OutcomeSkipped)
		return false
	}
	if err := u.notifier.Notify(ctx, n); err != nil {
		log.Printf("[proposal][notify] failed event=%s proposal_id=%s err=%v", n.Event, n.ProposalID, err)
		metrics.ObserveNotification(string(n.Event), metrics.OutcomeError)
		return false
	}
	metrics.ObserveNotification(string(n.Event), metrics.OutcomeOK)
	return true
}

func (u *ProposalUseCase) notification(event entities.EventType, st proposalState) interfaces.Notification {
	p := st.proposal
	return interfaces.Notification{
		Event:      event,
		ProposalID: p.ID,
		Recipient:  p.ClientEmail,
		Title:      p.Title,
		Value:      p.Value,
		Currency:   p.Currency,
		ExpiresAt:  p.ExpiresAt,
		ApprovedAt: p.ApprovedAt,
		InvoiceID:  p.InvoiceID,
	}
}

func (u *ProposalUseCase) paymentTerms(plan *entities.BillingPlan) int {
	if plan != nil && plan.PaymentTermsDays > 0 {
		return plan.PaymentTermsDays
	}
	return u.settings.DefaultPaymentTermsDays
}

func (u *ProposalUseCase) normalizeCurrency(raw string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if c == "" {
		return u.settings.DefaultCurrency, nil
	}
	if len(c) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return c, nil
}

func (u *ProposalUseCase) newLinkedInvoice(p entities.Proposal, items []entities.LineItem, now time.Time) entities.Invoice {
	return entities.Invoice{
		ID:             uuid.NewString(),
		ClientID:       p.ClientID,
		ProposalID:     p.ID,
		AmountCents:    p.Value,
		Currency:       p.Currency,
		Description:    "Invoice for proposal: " + p.Title,
		Status:         entities.InvoiceStatusPending,
		LockedFromSend: true,
		Items:          entities.MirrorLineItems(items),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func buildLineItem(proposalID string, in LineItemInput, sortOrder int) (entities.LineItem, error) {
	svc := entities.NormalizeServiceType(in.ServiceType)
	name := strings.TrimSpace(in.Name)
	if svc == "" || name == "" || in.Quantity < 1 {
		return entities.LineItem{}, ErrInvalidLineItem
	}
	total, err := pricing.LineTotal(in.Quantity, in.UnitPrice)
	if err != nil {
		return entities.LineItem{}, err
	}
	return entities.LineItem{
		ID:          uuid.NewString(),
		ProposalID:  proposalID,
		ServiceType: svc,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		LineTotal:   total,
		SortOrder:   sortOrder,
	}, nil
}

func buildSnapshot(proposalID string, version int, active []entities.Clause, now time.Time) entities.ClauseSnapshot {
	items := make([]entities.ClauseSnapshotItem, 0, len(active))
	codes := make([]string, 0, len(active))
	for i, cl := range active {
		items = append(items, entities.ClauseSnapshotItem{
			ClauseCode: cl.Code,
			Section:    cl.Section,
			Title:      cl.Title,
			Body:       cl.Body,
			SortOrder:  i,
		})
		codes = append(codes, cl.Code)
	}
	return entities.ClauseSnapshot{
		ProposalID:  proposalID,
		Version:     version,
		Status:      entities.SnapshotStatusLocked,
		ContentHash: clauses.ContentHash(codes),
		Items:       items,
		CreatedAt:   now,
	}
}

func proposalEvent(p entities.Proposal, t entities.EventType, actor string, now time.Time, meta map[string]any) entities.ProposalEvent {
	return entities.ProposalEvent{
		ProposalID: p.ID,
		Key:        entities.EventKey(t, p.Version),
		Type:       t,
		Metadata:   meta,
		ActorID:    actor,
		CreatedAt:  now,
	}
}

func invoiceEvent(inv entities.Invoice, t entities.EventType, actor string, now time.Time, meta map[string]any) entities.InvoiceEvent {
	return entities.InvoiceEvent{
		InvoiceID: inv.ID,
		Key:       entities.EventKey(t, inv.Version),
		Type:      t,
		Metadata:  meta,
		ActorID:   actor,
		CreatedAt: now,
	}
}

func linkedInvoiceEvents(inv entities.Invoice, proposalID, actor string, now time.Time) []entities.InvoiceEvent {
	return []entities.InvoiceEvent{
		invoiceEvent(inv, entities.EventCreated, actor, now, nil),
		invoiceEvent(inv, entities.EventLinkedToProposal, actor, now, map[string]any{"proposal_id": proposalID}),
	}
}
