// Package memory is an in-process persistence adapter used for local runs
// (STORAGE_DRIVER=memory) and for lifecycle tests. It honors the same
// version guards as the DynamoDB adapter.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase/interfaces"
)

type Store struct {
	mu sync.Mutex

	proposals      map[string]entities.Proposal
	items          map[string][]entities.LineItem
	plans          map[string]entities.BillingPlan
	snapshots      map[string][]entities.ClauseSnapshot
	proposalEvents map[string][]entities.ProposalEvent
	invoices       map[string]entities.Invoice
	invoiceEvents  map[string][]entities.InvoiceEvent
	payments       map[string][]entities.InvoicePayment
}

var (
	_ interfaces.IProposalRepository = (*Store)(nil)
	_ interfaces.IInvoiceRepository  = (*InvoiceStore)(nil)
)

func NewStore() *Store {
	return &Store{
		proposals:      map[string]entities.Proposal{},
		items:          map[string][]entities.LineItem{},
		plans:          map[string]entities.BillingPlan{},
		snapshots:      map[string][]entities.ClauseSnapshot{},
		proposalEvents: map[string][]entities.ProposalEvent{},
		invoices:       map[string]entities.Invoice{},
		invoiceEvents:  map[string][]entities.InvoiceEvent{},
		payments:       map[string][]entities.InvoicePayment{},
	}
}

// Invoices returns the invoice repository view of the same store, so a
// proposal commit and an invoice read see the same rows.
func (s *Store) Invoices() *InvoiceStore {
	return &InvoiceStore{s: s}
}

func (s *Store) GetByID(_ context.Context, id string) (entities.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proposals[id], nil
}

func (s *Store) ListItems(_ context.Context, proposalID string) ([]entities.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]entities.LineItem{}, s.items[proposalID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *Store) GetBillingPlan(_ context.Context, proposalID string) (entities.BillingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plans[proposalID], nil
}

func (s *Store) ListSnapshots(_ context.Context, proposalID string) ([]entities.ClauseSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.ClauseSnapshot, 0, len(s.snapshots[proposalID]))
	for _, snap := range s.snapshots[proposalID] {
		snap.Items = append([]entities.ClauseSnapshotItem{}, snap.Items...)
		out = append(out, snap)
	}
	return out, nil
}

func (s *Store) ListEvents(_ context.Context, proposalID string) ([]entities.ProposalEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.ProposalEvent{}, s.proposalEvents[proposalID]...), nil
}

func (s *Store) ListAwaitingResponseExpiringBefore(_ context.Context, before time.Time) ([]entities.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.Proposal
	for _, p := range s.proposals {
		if p.Status.AwaitingResponse() && p.ExpiresAt != nil && p.ExpiresAt.Before(before) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out, nil
}

// Commit checks every guard before applying anything.
func (s *Store) Commit(_ context.Context, c interfaces.ProposalCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Proposal.ID
	if s.proposals[id].Version != c.ExpectedVersion {
		return interfaces.ErrVersionConflict
	}
	if c.Invoice != nil && s.invoices[c.Invoice.ID].Version != c.ExpectedInvoiceVersion {
		return interfaces.ErrVersionConflict
	}
	if c.Snapshot != nil {
		for _, existing := range s.snapshots[id] {
			if existing.Version == c.Snapshot.Version {
				return interfaces.ErrVersionConflict
			}
		}
	}

	if c.DeleteProposal {
		delete(s.proposals, id)
		delete(s.items, id)
		delete(s.plans, id)
	} else {
		s.proposals[id] = c.Proposal
		if c.Items != nil {
			s.items[id] = append([]entities.LineItem{}, (*c.Items)...)
		}
		if c.BillingPlan != nil {
			s.plans[id] = *c.BillingPlan
		}
	}
	if c.Invoice != nil {
		inv := *c.Invoice
		inv.Items = append([]entities.InvoiceLineItem{}, inv.Items...)
		s.invoices[inv.ID] = inv
	}
	if c.Snapshot != nil {
		snap := *c.Snapshot
		snap.Items = append([]entities.ClauseSnapshotItem{}, snap.Items...)
		s.snapshots[id] = append(s.snapshots[id], snap)
	}
	for _, ev := range c.ProposalEvents {
		s.proposalEvents[ev.ProposalID] = upsertProposalEvent(s.proposalEvents[ev.ProposalID], ev)
	}
	for _, ev := range c.InvoiceEvents {
		s.invoiceEvents[ev.InvoiceID] = upsertInvoiceEvent(s.invoiceEvents[ev.InvoiceID], ev)
	}
	return nil
}

type InvoiceStore struct {
	s *Store
}

func (r *InvoiceStore) GetByID(_ context.Context, id string) (entities.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv := r.s.invoices[id]
	inv.Items = append([]entities.InvoiceLineItem(nil), inv.Items...)
	return inv, nil
}

func (r *InvoiceStore) ListEvents(_ context.Context, invoiceID string) ([]entities.InvoiceEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]entities.InvoiceEvent{}, r.s.invoiceEvents[invoiceID]...), nil
}

func (r *InvoiceStore) ListPayments(_ context.Context, invoiceID string) ([]entities.InvoicePayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]entities.InvoicePayment{}, r.s.payments[invoiceID]...), nil
}

func (r *InvoiceStore) ListUnpaidDueBefore(_ context.Context, before time.Time) ([]entities.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entities.Invoice
	for _, inv := range r.s.invoices {
		if inv.Status == entities.InvoiceStatusUnpaid && inv.DueDate != nil && inv.DueDate.Before(before) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InvoiceStore) Commit(_ context.Context, c interfaces.InvoiceCommit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.invoices[c.Invoice.ID].Version != c.ExpectedVersion {
		return interfaces.ErrVersionConflict
	}
	if c.Payment != nil {
		for _, p := range r.s.payments[c.Invoice.ID] {
			if p.ID == c.Payment.ID {
				return interfaces.ErrVersionConflict
			}
		}
	}
	r.s.invoices[c.Invoice.ID] = c.Invoice
	for _, ev := range c.Events {
		r.s.invoiceEvents[ev.InvoiceID] = upsertInvoiceEvent(r.s.invoiceEvents[ev.InvoiceID], ev)
	}
	if c.Payment != nil {
		p := *c.Payment
		p.ProviderPayloadRaw = append(json.RawMessage(nil), p.ProviderPayloadRaw...)
		r.s.payments[c.Invoice.ID] = append(r.s.payments[c.Invoice.ID], p)
	}
	return nil
}

func upsertProposalEvent(list []entities.ProposalEvent, ev entities.ProposalEvent) []entities.ProposalEvent {
	for i := range list {
		if list[i].Key == ev.Key {
			list[i] = ev
			return list
		}
	}
	return append(list, ev)
}

func upsertInvoiceEvent(list []entities.InvoiceEvent, ev entities.InvoiceEvent) []entities.InvoiceEvent {
	for i := range list {
		if list[i].Key == ev.Key {
			list[i] = ev
			return list
		}
	}
	return append(list, ev)
}
