package repository

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultInvoicesTableName      = "invoices"
	defaultInvoiceEventsTableName = "invoice_events"
	defaultPaymentsTableName      = "invoice_payments"
	invoicesStatusDueIndex        = "status-due_date-index"
	paymentsInvoiceIDIndex        = "invoice_id-index"
)

type invoiceItem struct {
	ID               string                     `dynamodbav:"id"`
	ClientID         string                     `dynamodbav:"client_id"`
	ProposalID       string                     `dynamodbav:"proposal_id,omitempty"`
	AmountCents      int64                      `dynamodbav:"amount_cents"`
	Currency         string                     `dynamodbav:"currency"`
	Description      string                     `dynamodbav:"description"`
	Status           string                     `dynamodbav:"status"`
	DueDate          string                     `dynamodbav:"due_date,omitempty"`
	LockedFromSend   bool                       `dynamodbav:"locked_from_send"`
	ActivationSource string                     `dynamodbav:"activation_source,omitempty"`
	Items            []entities.InvoiceLineItem `dynamodbav:"items,omitempty"`
	PaidAt           string                     `dynamodbav:"paid_at,omitempty"`
	Version          int64                      `dynamodbav:"version"`
	CreatedAt        string                     `dynamodbav:"created_at"`
	UpdatedAt        string                     `dynamodbav:"updated_at"`
}

type invoiceEventItem struct {
	InvoiceID string         `dynamodbav:"invoice_id"`
	Key       string         `dynamodbav:"key"`
	Type      string         `dynamodbav:"type"`
	Metadata  map[string]any `dynamodbav:"metadata,omitempty"`
	ActorID   string         `dynamodbav:"actor_id"`
	CreatedAt string         `dynamodbav:"created_at"`
}

type invoicePaymentItem struct {
	ID                 string                 `dynamodbav:"id"`
	InvoiceID          string                 `dynamodbav:"invoice_id"`
	Date               string                 `dynamodbav:"date"`
	Status             string                 `dynamodbav:"status"`
	AmountCents        int64                  `dynamodbav:"amount_cents"`
	ProviderPayload    map[string]interface{} `dynamodbav:"provider_payload,omitempty"`
	ProviderPayloadRaw string                 `dynamodbav:"provider_payload_raw,omitempty"`
}

// InvoiceDynamoRepository persists invoices, their audit log and payments.
//
// Table requirements:
//   - invoices: PK id; GSI status-due_date-index (PK status, SK due_date)
//   - invoice_events: PK invoice_id, SK key
//   - invoice_payments: PK id; GSI invoice_id-index (PK invoice_id)
type InvoiceDynamoRepository struct {
	ddb      DynamoAPI
	invoices string
	events   string
	payments string
}

var _ interfaces.IInvoiceRepository = (*InvoiceDynamoRepository)(nil)

func NewInvoiceDynamoRepository(ddb DynamoAPI) *InvoiceDynamoRepository {
	return &InvoiceDynamoRepository{
		ddb:      ddb,
		invoices: getenvDefault("INVOICES_TABLE", defaultInvoicesTableName),
		events:   getenvDefault("INVOICE_EVENTS_TABLE", defaultInvoiceEventsTableName),
		payments: getenvDefault("INVOICE_PAYMENTS_TABLE", defaultPaymentsTableName),
	}
}

func (r *InvoiceDynamoRepository) GetByID(ctx context.Context, id string) (entities.Invoice, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.invoices),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Invoice{}, err
	}
	if len(out.Item) == 0 {
		return entities.Invoice{}, nil
	}
	var it invoiceItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Invoice{}, err
	}
	return fromInvoiceItem(it), nil
}

func (r *InvoiceDynamoRepository) ListEvents(ctx context.Context, invoiceID string) ([]entities.InvoiceEvent, error) {
	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.events),
		KeyConditionExpression: aws.String("invoice_id = :iid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":iid": &types.AttributeValueMemberS{Value: invoiceID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	events := make([]entities.InvoiceEvent, 0, len(out.Items))
	for _, raw := range out.Items {
		var it invoiceEventItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		events = append(events, entities.InvoiceEvent{
			InvoiceID: it.InvoiceID,
			Key:       it.Key,
			Type:      entities.EventType(it.Type),
			Metadata:  it.Metadata,
			ActorID:   it.ActorID,
			CreatedAt: parseTime(it.CreatedAt),
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events, nil
}

func (r *InvoiceDynamoRepository) ListPayments(ctx context.Context, invoiceID string) ([]entities.InvoicePayment, error) {
	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.payments),
		IndexName:              aws.String(paymentsInvoiceIDIndex),
		KeyConditionExpression: aws.String("invoice_id = :iid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":iid": &types.AttributeValueMemberS{Value: invoiceID},
		},
	})
	if err != nil {
		return nil, err
	}
	payments := make([]entities.InvoicePayment, 0, len(out.Items))
	for _, raw := range out.Items {
		var it invoicePaymentItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		payments = append(payments, fromInvoicePaymentItem(it))
	}
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].Date.Before(payments[j].Date) })
	return payments, nil
}

func (r *InvoiceDynamoRepository) ListUnpaidDueBefore(ctx context.Context, before time.Time) ([]entities.Invoice, error) {
	p := dynamodb.NewQueryPaginator(r.ddb, &dynamodb.QueryInput{
		TableName:              aws.String(r.invoices),
		IndexName:              aws.String(invoicesStatusDueIndex),
		KeyConditionExpression: aws.String("#status = :status AND #due_date < :before"),
		ExpressionAttributeNames: map[string]string{
			"#status":   "status",
			"#due_date": "due_date",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(entities.InvoiceStatusUnpaid)},
			":before": &types.AttributeValueMemberS{Value: formatTime(before)},
		},
	})
	var out []entities.Invoice
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var rows []invoiceItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &rows); err != nil {
			return nil, err
		}
		for _, it := range rows {
			out = append(out, fromInvoiceItem(it))
		}
	}
	return out, nil
}

// Commit writes the invoice, its events and an optional payment row in
// one transaction.
func (r *InvoiceDynamoRepository) Commit(ctx context.Context, c interfaces.InvoiceCommit) error {
	put, err := invoicePut(r.invoices, c.Invoice, c.ExpectedVersion)
	if err != nil {
		return err
	}
	tx := []types.TransactWriteItem{put}
	for _, ev := range c.Events {
		evPut, err := invoiceEventPut(r.events, ev)
		if err != nil {
			return err
		}
		tx = append(tx, evPut)
	}
	if c.Payment != nil {
		av, err := attributevalue.MarshalMap(toInvoicePaymentItem(*c.Payment))
		if err != nil {
			return err
		}
		tx = append(tx, types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(r.payments),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(#id)"),
			ExpressionAttributeNames: map[string]string{
				"#id": "id",
			},
		}})
	}

	_, err = r.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx})
	if err != nil {
		mapped := mapWriteError(err)
		log.Printf("[invoice][repository] commit failed invoice_id=%s err=%v", c.Invoice.ID, mapped)
		return mapped
	}
	return nil
}

func invoicePut(table string, inv entities.Invoice, expected int64) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(toInvoiceItem(inv))
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	cond, names, values := versionCondition("id", expected)
	return types.TransactWriteItem{Put: &types.Put{
		TableName:                 aws.String(table),
		Item:                      av,
		ConditionExpression:       cond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}}, nil
}

func invoiceEventPut(table string, ev entities.InvoiceEvent) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(invoiceEventItem{
		InvoiceID: ev.InvoiceID,
		Key:       ev.Key,
		Type:      string(ev.Type),
		Metadata:  ev.Metadata,
		ActorID:   ev.ActorID,
		CreatedAt: formatTime(ev.CreatedAt),
	})
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{Put: &types.Put{TableName: aws.String(table), Item: av}}, nil
}

func toInvoiceItem(inv entities.Invoice) invoiceItem {
	return invoiceItem{
		ID:               inv.ID,
		ClientID:         inv.ClientID,
		ProposalID:       inv.ProposalID,
		AmountCents:      inv.AmountCents,
		Currency:         inv.Currency,
		Description:      inv.Description,
		Status:           string(inv.Status),
		DueDate:          formatTimePtr(inv.DueDate),
		LockedFromSend:   inv.LockedFromSend,
		ActivationSource: inv.ActivationSource,
		Items:            inv.Items,
		PaidAt:           formatTimePtr(inv.PaidAt),
		Version:          inv.Version,
		CreatedAt:        formatTime(inv.CreatedAt),
		UpdatedAt:        formatTime(inv.UpdatedAt),
	}
}

func fromInvoiceItem(it invoiceItem) entities.Invoice {
	return entities.Invoice{
		ID:               it.ID,
		ClientID:         it.ClientID,
		ProposalID:       it.ProposalID,
		AmountCents:      it.AmountCents,
		Currency:         it.Currency,
		Description:      it.Description,
		Status:           entities.InvoiceStatus(it.Status),
		DueDate:          parseTimePtr(it.DueDate),
		LockedFromSend:   it.LockedFromSend,
		ActivationSource: it.ActivationSource,
		Items:            it.Items,
		PaidAt:           parseTimePtr(it.PaidAt),
		Version:          it.Version,
		CreatedAt:        parseTime(it.CreatedAt),
		UpdatedAt:        parseTime(it.UpdatedAt),
	}
}

func toInvoicePaymentItem(p entities.InvoicePayment) invoicePaymentItem {
	return invoicePaymentItem{
		ID:                 p.ID,
		InvoiceID:          p.InvoiceID,
		Date:               formatTime(p.Date),
		Status:             string(p.Status),
		AmountCents:        p.AmountCents,
		ProviderPayload:    p.ProviderPayload,
		ProviderPayloadRaw: string(p.ProviderPayloadRaw),
	}
}

func fromInvoicePaymentItem(it invoicePaymentItem) entities.InvoicePayment {
	return entities.InvoicePayment{
		ID:                 it.ID,
		InvoiceID:          it.InvoiceID,
		Date:               parseTime(it.Date),
		Status:             entities.PaymentStatus(it.Status),
		AmountCents:        it.AmountCents,
		ProviderPayload:    it.ProviderPayload,
		ProviderPayloadRaw: json.RawMessage(it.ProviderPayloadRaw),
	}
}
