package interfaces

import (
	"context"
	"time"

	"agency_portal/internal/domain/entities"
)

//go:generate mockgen -source=invoice_repository_interface.go -destination=mocks/mock_invoice_repository.go -package=mock_interfaces

// InvoiceCommit is the unit of work of an invoice-only change (client
// send, payment, overdue). Invoice is written only if the stored version
// equals ExpectedVersion.
type InvoiceCommit struct {
	Invoice         entities.Invoice
	ExpectedVersion int64
	Events          []entities.InvoiceEvent
	Payment         *entities.InvoicePayment
}

// IInvoiceRepository abstracts persistence for invoices, their audit log
// and payments.
type IInvoiceRepository interface {
	GetByID(ctx context.Context, id string) (entities.Invoice, error)
	ListEvents(ctx context.Context, invoiceID string) ([]entities.InvoiceEvent, error)
	ListPayments(ctx context.Context, invoiceID string) ([]entities.InvoicePayment, error)
	ListUnpaidDueBefore(ctx context.Context, before time.Time) ([]entities.Invoice, error)
	Commit(ctx context.Context, c InvoiceCommit) error
}
