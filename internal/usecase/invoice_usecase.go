package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"agency_portal/internal/domain/entities"
	"agency_portal/internal/infrastructure/metrics"
	"agency_portal/internal/usecase/interfaces"
)

var (
	ErrInvoiceNotFound                = errors.New("invoice not found")
	ErrInvalidInvoiceID               = errors.New("invalid invoice id")
	ErrInvoiceLocked                  = errors.New("invoice is locked by its proposal")
	ErrInvoiceNotSendable             = errors.New("invoice cannot be sent in its current status")
	ErrInvoiceNotPayable              = errors.New("invoice is not payable")
	ErrInvalidPaymentPayload          = errors.New("invalid payment payload")
	ErrPaymentGatewayNotConfigured    = errors.New("payment gateway not configured")
	ErrPaymentGatewayBadRequest       = errors.New("payment gateway bad request")
	ErrPaymentGatewayUnauthorized     = errors.New("payment gateway unauthorized")
	ErrPaymentGatewayInvalidUsers     = errors.New("payment gateway invalid users involved")
	ErrPaymentGatewayCustomerNotFound = errors.New("payment gateway customer not found")
)

// IInvoiceUseCase covers the client-facing side of invoices: reading,
// sending unlocked invoices, paying activated ones and the overdue sweep.
// Status changes driven by a proposal live in the proposal use case.
type IInvoiceUseCase interface {
	Get(ctx context.Context, id string) (entities.Invoice, error)
	ListEvents(ctx context.Context, id string) ([]entities.InvoiceEvent, error)
	ListPayments(ctx context.Context, id string) ([]entities.InvoicePayment, error)
	Send(ctx context.Context, id string, actorID string) (entities.Invoice, error)
	Pay(ctx context.Context, id string, payload json.RawMessage, actorID string) (entities.InvoicePayment, entities.Invoice, error)
	MarkOverdue(ctx context.Context) ([]string, error)
}

type InvoiceSettings struct {
	// RequirePaymentMethod rejects payloads without payment_method_id and
	// payer. Off when the gateway runs in mock mode.
	RequirePaymentMethod bool
	// SandboxPayerEmail fills payer.email when neither id nor email is given.
	SandboxPayerEmail string
	Now               func() time.Time
}

type InvoiceUseCase struct {
	repo     interfaces.IInvoiceRepository
	gateway  interfaces.IPaymentGateway
	settings InvoiceSettings
}

var _ IInvoiceUseCase = (*InvoiceUseCase)(nil)

func NewInvoiceUseCase(repo interfaces.IInvoiceRepository, gateway interfaces.IPaymentGateway, settings InvoiceSettings) *InvoiceUseCase {
	if settings.Now == nil {
		settings.Now = func() time.Time { return time.Now().UTC() }
	}
	return &InvoiceUseCase{repo: repo, gateway: gateway, settings: settings}
}

func (u *InvoiceUseCase) Get(ctx context.Context, id string) (entities.Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.Invoice{}, ErrInvalidInvoiceID
	}
	inv, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return entities.Invoice{}, err
	}
	if inv.ID == "" {
		return entities.Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (u *InvoiceUseCase) ListEvents(ctx context.Context, id string) ([]entities.InvoiceEvent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidInvoiceID
	}
	return u.repo.ListEvents(ctx, id)
}

func (u *InvoiceUseCase) ListPayments(ctx context.Context, id string) ([]entities.InvoicePayment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidInvoiceID
	}
	return u.repo.ListPayments(ctx, id)
}

// Send is the client-facing send action. Invoices linked to a proposal
// stay locked and are refused.
func (u *InvoiceUseCase) Send(ctx context.Context, id string, actorID string) (entities.Invoice, error) {
	log.Printf("[invoice][usecase] send start invoice_id=%q", id)
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return entities.Invoice{}, ErrInvalidActor
	}
	inv, err := u.Get(ctx, id)
	if err != nil {
		return entities.Invoice{}, err
	}
	if inv.LockedFromSend {
		log.Printf("[invoice][usecase] send rejected invoice_id=%s reason=locked proposal_id=%s", inv.ID, inv.ProposalID)
		metrics.ObserveTransition("invoice_send", metrics.OutcomeRejected)
		return entities.Invoice{}, ErrInvoiceLocked
	}
	if inv.Status != entities.InvoiceStatusDraft && inv.Status != entities.InvoiceStatusReady {
		metrics.ObserveTransition("invoice_send", metrics.OutcomeRejected)
		return entities.Invoice{}, ErrInvoiceNotSendable
	}

	now := u.settings.Now()
	expected := inv.Version
	inv.Status = entities.InvoiceStatusPending
	inv.Version++
	inv.UpdatedAt = now
	err = u.commit(ctx, "invoice_send", interfaces.InvoiceCommit{
		Invoice:         inv,
		ExpectedVersion: expected,
		Events:          []entities.InvoiceEvent{invoiceEvent(inv, entities.EventSent, actor, now, nil)},
	})
	if err != nil {
		log.Printf("[invoice][usecase] send failed invoice_id=%s err=%v", inv.ID, err)
		return entities.Invoice{}, err
	}
	log.Printf("[invoice][usecase] send success invoice_id=%s", inv.ID)
	return inv, nil
}

// Pay charges an unpaid or overdue invoice through the payment gateway.
// The invoice amount is the source of truth for the charged amount. An
// approved provider status marks the invoice paid; any other status only
// records the attempt.
func (u *InvoiceUseCase) Pay(ctx context.Context, id string, payload json.RawMessage, actorID string) (entities.InvoicePayment, entities.Invoice, error) {
	log.Printf("[payment][usecase] pay start raw_invoice_id=%q payload_len=%d", id, len(payload))
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return entities.InvoicePayment{}, entities.Invoice{}, ErrInvalidActor
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	var reqMap map[string]any
	if err := json.Unmarshal(payload, &reqMap); err != nil || reqMap == nil {
		log.Printf("[payment][usecase] invalid payload (not-object) invoice_id=%s", id)
		return entities.InvoicePayment{}, entities.Invoice{}, ErrInvalidPaymentPayload
	}
	if u.gateway == nil {
		log.Printf("[payment][usecase] gateway not configured invoice_id=%s", id)
		return entities.InvoicePayment{}, entities.Invoice{}, ErrPaymentGatewayNotConfigured
	}

	inv, err := u.Get(ctx, id)
	if err != nil {
		return entities.InvoicePayment{}, entities.Invoice{}, err
	}
	if inv.Status != entities.InvoiceStatusUnpaid && inv.Status != entities.InvoiceStatusOverdue {
		log.Printf("[payment][usecase] invoice not payable invoice_id=%s status=%s", inv.ID, inv.Status)
		metrics.ObserveTransition("pay", metrics.OutcomeRejected)
		return entities.InvoicePayment{}, entities.Invoice{}, ErrInvoiceNotPayable
	}

	if u.settings.RequirePaymentMethod {
		if !hasNonEmptyString(reqMap, "payment_method_id") {
			log.Printf("[payment][usecase] missing payment_method_id invoice_id=%s", inv.ID)
			return entities.InvoicePayment{}, entities.Invoice{}, ErrInvalidPaymentPayload
		}
		ensurePayerDefaults(reqMap, u.settings.SandboxPayerEmail)
		if !hasPayer(reqMap) {
			log.Printf("[payment][usecase] missing/invalid payer invoice_id=%s", inv.ID)
			return entities.InvoicePayment{}, entities.Invoice{}, ErrInvalidPaymentPayload
		}
	}
	if _, ok := reqMap["external_reference"]; !ok {
		reqMap["external_reference"] = inv.ID
	}
	if _, ok := reqMap["description"]; !ok {
		reqMap["description"] = inv.Description
	}
	reqMap["transaction_amount"] = entities.MajorUnits(inv.AmountCents)
	body, err := json.Marshal(reqMap)
	if err != nil {
		return entities.InvoicePayment{}, entities.Invoice{}, err
	}

	log.Printf("[payment][usecase] calling payment gateway invoice_id=%s amount_cents=%d", inv.ID, inv.AmountCents)
	chargeCtx := interfaces.WithIdempotencyKey(ctx, paymentIdempotencyKey(inv))
	providerID, providerStatus, providerResp, err := u.gateway.CreatePayment(chargeCtx, body)
	if err != nil {
		log.Printf("[payment][usecase] payment gateway failed invoice_id=%s err=%v", inv.ID, err)
		metrics.ObserveTransition("pay", metrics.OutcomeError)
		return entities.InvoicePayment{}, entities.Invoice{}, classifyGatewayError(err)
	}
	log.Printf("[payment][usecase] payment gateway success invoice_id=%s provider_payment_id=%s provider_status=%s", inv.ID, providerID, providerStatus)

	var parsed map[string]interface{}
	if err := json.Unmarshal(providerResp, &parsed); err != nil {
		log.Printf("[payment][usecase] provider response unmarshal failed invoice_id=%s err=%v", inv.ID, err)
	}

	now := u.settings.Now()
	payment := entities.InvoicePayment{
		ID:                 providerID,
		InvoiceID:          inv.ID,
		Date:               now,
		Status:             entities.PaymentStatusFromProvider(providerStatus),
		AmountCents:        inv.AmountCents,
		ProviderPayloadRaw: providerResp,
		ProviderPayload:    parsed,
	}

	charged := inv.Version
	inv, err = u.recordPayment(ctx, inv, payment, actor, now)
	if errors.Is(err, ErrConcurrentModification) {
		// The provider already holds this charge, so record it against the
		// current row rather than leaving it for a retry to bill again.
		log.Printf("[payment][usecase] commit conflict after charge, reloading invoice_id=%s payment_id=%s", inv.ID, payment.ID)
		fresh, getErr := u.Get(ctx, inv.ID)
		switch {
		case getErr != nil:
			err = getErr
		case fresh.Status != entities.InvoiceStatusUnpaid && fresh.Status != entities.InvoiceStatusOverdue:
			err = ErrInvoiceNotPayable
		default:
			inv, err = u.recordPayment(ctx, fresh, payment, actor, now)
		}
	}
	if err != nil {
		log.Printf("[payment][usecase] ERROR orphaned_provider_payment invoice_id=%s charged_version=%d provider_payment_id=%s provider_status=%s idempotency_key=%s err=%v",
			inv.ID, charged, payment.ID, providerStatus, paymentIdempotencyKey(entities.Invoice{ID: inv.ID, Version: charged}), err)
		return entities.InvoicePayment{}, entities.Invoice{}, err
	}
	log.Printf("[payment][usecase] pay success invoice_id=%s payment_id=%s status=%s", inv.ID, payment.ID, payment.Status)
	return payment, inv, nil
}

// recordPayment stores the payment row and, for an approved charge, marks
// the invoice paid. inv is the row as last read.
func (u *InvoiceUseCase) recordPayment(ctx context.Context, inv entities.Invoice, payment entities.InvoicePayment, actor string, now time.Time) (entities.Invoice, error) {
	expected := inv.Version
	inv.Version++
	inv.UpdatedAt = now
	var events []entities.InvoiceEvent
	if payment.Status == entities.PaymentStatusApproved {
		inv.Status = entities.InvoiceStatusPaid
		inv.PaidAt = &now
		events = append(events, invoiceEvent(inv, entities.EventPaid, actor, now, map[string]any{
			"payment_id":   payment.ID,
			"amount_cents": payment.AmountCents,
		}))
	}
	err := u.commit(ctx, "pay", interfaces.InvoiceCommit{
		Invoice:         inv,
		ExpectedVersion: expected,
		Events:          events,
		Payment:         &payment,
	})
	if err != nil {
		inv.Version = expected
		return inv, err
	}
	return inv, nil
}

// MarkOverdue flags every unpaid invoice whose due date has passed.
func (u *InvoiceUseCase) MarkOverdue(ctx context.Context) ([]string, error) {
	now := u.settings.Now()
	due, err := u.repo.ListUnpaidDueBefore(ctx, now)
	if err != nil {
		log.Printf("[invoice][sweep] list failed err=%v", err)
		return nil, err
	}
	var marked []string
	for _, inv := range due {
		if inv.Status != entities.InvoiceStatusUnpaid || inv.DueDate == nil {
			continue
		}
		expected := inv.Version
		inv.Status = entities.InvoiceStatusOverdue
		inv.Version++
		inv.UpdatedAt = now
		err := u.commit(ctx, "overdue", interfaces.InvoiceCommit{
			Invoice:         inv,
			ExpectedVersion: expected,
			Events: []entities.InvoiceEvent{invoiceEvent(inv, entities.EventOverdue, systemActor, now, map[string]any{
				"due_date": inv.DueDate.Format(time.RFC3339),
			})},
		})
		if err != nil {
			log.Printf("[invoice][sweep] overdue failed invoice_id=%s err=%v", inv.ID, err)
			continue
		}
		marked = append(marked, inv.ID)
	}
	metrics.AddOverdue(len(marked))
	log.Printf("[invoice][sweep] overdue done marked=%d", len(marked))
	return marked, nil
}

func (u *InvoiceUseCase) commit(ctx context.Context, op string, c interfaces.InvoiceCommit) error {
	if err := u.repo.Commit(ctx, c); err != nil {
		if errors.Is(err, interfaces.ErrVersionConflict) {
			metrics.ObserveTransition(op, metrics.OutcomeConflict)
			return ErrConcurrentModification
		}
		metrics.ObserveTransition(op, metrics.OutcomeError)
		return err
	}
	metrics.ObserveTransition(op, metrics.OutcomeOK)
	return nil
}

// paymentIdempotencyKey identifies one charge attempt per invoice version.
func paymentIdempotencyKey(inv entities.Invoice) string {
	return fmt.Sprintf("invoice-%s-v%d", inv.ID, inv.Version)
}

func hasNonEmptyString(m map[string]any, key string) bool {
	s, ok := m[key].(string)
	return ok && strings.TrimSpace(s) != ""
}

func hasPayer(m map[string]any) bool {
	payer, ok := m["payer"].(map[string]any)
	if !ok {
		return false
	}
	return hasNonEmptyString(payer, "email") || hasPayerID(payer)
}

func hasPayerID(payer map[string]any) bool {
	v, ok := payer["id"]
	if !ok || v == nil {
		return false
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	return s != "" && s != "<nil>"
}

func ensurePayerDefaults(m map[string]any, sandboxEmail string) {
	v, ok := m["payer"]
	if !ok || v == nil {
		v = map[string]any{}
		m["payer"] = v
	}
	payer, ok := v.(map[string]any)
	if !ok {
		return
	}
	if _, ok := payer["type"]; !ok {
		payer["type"] = "customer"
	}
	if !hasPayerID(payer) && !hasNonEmptyString(payer, "email") && sandboxEmail != "" {
		payer["email"] = sandboxEmail
	}
}

func classifyGatewayError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "customer not found") || strings.Contains(msg, "\"code\":2002"):
		return ErrPaymentGatewayCustomerNotFound
	case strings.Contains(msg, "invalid users involved") || strings.Contains(msg, "\"code\":2034"):
		return ErrPaymentGatewayInvalidUsers
	case strings.Contains(msg, "\"error\":\"unauthorized\"") || strings.Contains(msg, "\"status\":401"):
		return ErrPaymentGatewayUnauthorized
	case strings.Contains(msg, "\"error\":\"bad_request\"") || strings.Contains(msg, "\"status\":400"):
		return ErrPaymentGatewayBadRequest
	}
	return err
}
