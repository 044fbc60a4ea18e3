package repository

import (
	"context"
	"errors"
	"fmt"
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
	defaultProposalsTableName      = "proposals"
	defaultProposalItemsTableName  = "proposal_items"
	defaultBillingPlansTableName   = "billing_plans"
	defaultSnapshotsTableName      = "proposal_clause_snapshots"
	defaultProposalEventsTableName = "proposal_events"
	proposalsStatusExpiresIndex    = "status-expires_at-index"
)

type proposalItem struct {
	ID              string `dynamodbav:"id"`
	ClientID        string `dynamodbav:"client_id"`
	ClientEmail     string `dynamodbav:"client_email,omitempty"`
	Title           string `dynamodbav:"title"`
	Description     string `dynamodbav:"description,omitempty"`
	Status          string `dynamodbav:"status"`
	Currency        string `dynamodbav:"currency"`
	Value           int64  `dynamodbav:"value"`
	InvoiceID       string `dynamodbav:"invoice_id,omitempty"`
	CreatedBy       string `dynamodbav:"created_by"`
	ApprovedBy      string `dynamodbav:"approved_by,omitempty"`
	Signature       string `dynamodbav:"signature,omitempty"`
	DeclineReason   string `dynamodbav:"decline_reason,omitempty"`
	ExpiresAt       string `dynamodbav:"expires_at,omitempty"`
	SentAt          string `dynamodbav:"sent_at,omitempty"`
	ApprovedAt      string `dynamodbav:"approved_at,omitempty"`
	DeclinedAt      string `dynamodbav:"declined_at,omitempty"`
	ArchivedAt      string `dynamodbav:"archived_at,omitempty"`
	SnapshotVersion int    `dynamodbav:"snapshot_version"`
	Version         int64  `dynamodbav:"version"`
	CreatedAt       string `dynamodbav:"created_at"`
	UpdatedAt       string `dynamodbav:"updated_at"`
}

type lineItemItem struct {
	ProposalID  string `dynamodbav:"proposal_id"`
	ID          string `dynamodbav:"id"`
	ServiceType string `dynamodbav:"service_type"`
	Name        string `dynamodbav:"name"`
	Description string `dynamodbav:"description,omitempty"`
	Quantity    int64  `dynamodbav:"quantity"`
	UnitPrice   int64  `dynamodbav:"unit_price"`
	LineTotal   int64  `dynamodbav:"line_total"`
	SortOrder   int    `dynamodbav:"sort_order"`
}

type billingPlanItem struct {
	ProposalID       string `dynamodbav:"proposal_id"`
	Type             string `dynamodbav:"type"`
	Currency         string `dynamodbav:"currency"`
	Total            int64  `dynamodbav:"total"`
	DepositPercent   int    `dynamodbav:"deposit_percent"`
	Deposit          int64  `dynamodbav:"deposit"`
	PaymentTermsDays int    `dynamodbav:"payment_terms_days"`
	StartDate        string `dynamodbav:"start_date,omitempty"`
	UpdatedAt        string `dynamodbav:"updated_at"`
}

type snapshotItem struct {
	ProposalID  string                        `dynamodbav:"proposal_id"`
	Version     int                           `dynamodbav:"version"`
	Status      string                        `dynamodbav:"status"`
	ContentHash string                        `dynamodbav:"content_hash"`
	Items       []entities.ClauseSnapshotItem `dynamodbav:"items"`
	CreatedAt   string                        `dynamodbav:"created_at"`
}

type proposalEventItem struct {
	ProposalID string         `dynamodbav:"proposal_id"`
	Key        string         `dynamodbav:"key"`
	Type       string         `dynamodbav:"type"`
	Metadata   map[string]any `dynamodbav:"metadata,omitempty"`
	ActorID    string         `dynamodbav:"actor_id"`
	CreatedAt  string         `dynamodbav:"created_at"`
}

// ProposalDynamoRepository persists proposals and everything that hangs
// off them in DynamoDB. A commit is a single TransactWriteItems call.
//
// Table requirements:
//   - proposals: PK id; GSI status-expires_at-index (PK status, SK expires_at)
//   - proposal_items: PK proposal_id, SK id
//   - billing_plans: PK proposal_id
//   - proposal_clause_snapshots: PK proposal_id, SK version (N)
//   - proposal_events: PK proposal_id, SK key
type ProposalDynamoRepository struct {
	ddb           DynamoAPI
	proposals     string
	items         string
	plans         string
	snapshots     string
	events        string
	invoices      string
	invoiceEvents string
}

var _ interfaces.IProposalRepository = (*ProposalDynamoRepository)(nil)

func NewProposalDynamoRepository(ddb DynamoAPI) *ProposalDynamoRepository {
	return &ProposalDynamoRepository{
		ddb:           ddb,
		proposals:     getenvDefault("PROPOSALS_TABLE", defaultProposalsTableName),
		items:         getenvDefault("PROPOSAL_ITEMS_TABLE", defaultProposalItemsTableName),
		plans:         getenvDefault("BILLING_PLANS_TABLE", defaultBillingPlansTableName),
		snapshots:     getenvDefault("CLAUSE_SNAPSHOTS_TABLE", defaultSnapshotsTableName),
		events:        getenvDefault("PROPOSAL_EVENTS_TABLE", defaultProposalEventsTableName),
		invoices:      getenvDefault("INVOICES_TABLE", defaultInvoicesTableName),
		invoiceEvents: getenvDefault("INVOICE_EVENTS_TABLE", defaultInvoiceEventsTableName),
	}
}

func (r *ProposalDynamoRepository) GetByID(ctx context.Context, id string) (entities.Proposal, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.proposals),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Proposal{}, err
	}
	if len(out.Item) == 0 {
		return entities.Proposal{}, nil
	}
	var it proposalItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.Proposal{}, err
	}
	return fromProposalItem(it)
}

func (r *ProposalDynamoRepository) ListItems(ctx context.Context, proposalID string) ([]entities.LineItem, error) {
	var rows []lineItemItem
	if err := r.queryByPK(ctx, r.items, "proposal_id", proposalID, &rows); err != nil {
		return nil, err
	}
	out := make([]entities.LineItem, 0, len(rows))
	for _, it := range rows {
		out = append(out, fromLineItemItem(it))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *ProposalDynamoRepository) GetBillingPlan(ctx context.Context, proposalID string) (entities.BillingPlan, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.plans),
		Key: map[string]types.AttributeValue{
			"proposal_id": &types.AttributeValueMemberS{Value: proposalID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.BillingPlan{}, err
	}
	if len(out.Item) == 0 {
		return entities.BillingPlan{}, nil
	}
	var it billingPlanItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return entities.BillingPlan{}, err
	}
	return fromBillingPlanItem(it), nil
}

func (r *ProposalDynamoRepository) ListSnapshots(ctx context.Context, proposalID string) ([]entities.ClauseSnapshot, error) {
	var rows []snapshotItem
	if err := r.queryByPK(ctx, r.snapshots, "proposal_id", proposalID, &rows); err != nil {
		return nil, err
	}
	out := make([]entities.ClauseSnapshot, 0, len(rows))
	for _, it := range rows {
		out = append(out, entities.ClauseSnapshot{
			ProposalID:  it.ProposalID,
			Version:     it.Version,
			Status:      entities.SnapshotStatus(it.Status),
			ContentHash: it.ContentHash,
			Items:       it.Items,
			CreatedAt:   parseTime(it.CreatedAt),
		})
	}
	return out, nil
}

func (r *ProposalDynamoRepository) ListEvents(ctx context.Context, proposalID string) ([]entities.ProposalEvent, error) {
	var rows []proposalEventItem
	if err := r.queryByPK(ctx, r.events, "proposal_id", proposalID, &rows); err != nil {
		return nil, err
	}
	out := make([]entities.ProposalEvent, 0, len(rows))
	for _, it := range rows {
		out = append(out, entities.ProposalEvent{
			ProposalID: it.ProposalID,
			Key:        it.Key,
			Type:       entities.EventType(it.Type),
			Metadata:   it.Metadata,
			ActorID:    it.ActorID,
			CreatedAt:  parseTime(it.CreatedAt),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ProposalDynamoRepository) ListAwaitingResponseExpiringBefore(ctx context.Context, before time.Time) ([]entities.Proposal, error) {
	var out []entities.Proposal
	for _, status := range []entities.ProposalStatus{entities.ProposalStatusSent, entities.ProposalStatusViewed} {
		p := dynamodb.NewQueryPaginator(r.ddb, &dynamodb.QueryInput{
			TableName:              aws.String(r.proposals),
			IndexName:              aws.String(proposalsStatusExpiresIndex),
			KeyConditionExpression: aws.String("#status = :status AND #expires_at < :before"),
			ExpressionAttributeNames: map[string]string{
				"#status":     "status",
				"#expires_at": "expires_at",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":status": &types.AttributeValueMemberS{Value: string(status)},
				":before": &types.AttributeValueMemberS{Value: formatTime(before)},
			},
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			var rows []proposalItem
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &rows); err != nil {
				return nil, err
			}
			for _, it := range rows {
				prop, err := fromProposalItem(it)
				if err != nil {
					return nil, err
				}
				out = append(out, prop)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out, nil
}

// Commit applies c as one DynamoDB transaction.
func (r *ProposalDynamoRepository) Commit(ctx context.Context, c interfaces.ProposalCommit) error {
	var existingItems []entities.LineItem
	if c.Items != nil || c.DeleteProposal {
		var err error
		existingItems, err = r.ListItems(ctx, c.Proposal.ID)
		if err != nil {
			return err
		}
	}

	tx, err := r.buildTransaction(c, existingItems)
	if err != nil {
		return err
	}
	if len(tx) > maxTransactItems {
		return fmt.Errorf("proposal commit has %d writes, limit is %d", len(tx), maxTransactItems)
	}
	_, err = r.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx})
	if err != nil {
		mapped := mapWriteError(err)
		log.Printf("[proposal][repository] commit failed proposal_id=%s writes=%d err=%v", c.Proposal.ID, len(tx), mapped)
		return mapped
	}
	return nil
}

func (r *ProposalDynamoRepository) buildTransaction(c interfaces.ProposalCommit, existingItems []entities.LineItem) ([]types.TransactWriteItem, error) {
	var tx []types.TransactWriteItem
	id := c.Proposal.ID
	proposalKey := map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
	cond, names, values := versionCondition("id", c.ExpectedVersion)

	if c.DeleteProposal {
		tx = append(tx, types.TransactWriteItem{Delete: &types.Delete{
			TableName:                 aws.String(r.proposals),
			Key:                       proposalKey,
			ConditionExpression:       cond,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}})
		for _, it := range existingItems {
			tx = append(tx, types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(r.items),
				Key:       lineItemKey(id, it.ID),
			}})
		}
		tx = append(tx, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.plans),
			Key:       map[string]types.AttributeValue{"proposal_id": &types.AttributeValueMemberS{Value: id}},
		}})
	} else {
		av, err := attributevalue.MarshalMap(toProposalItem(c.Proposal))
		if err != nil {
			return nil, err
		}
		tx = append(tx, types.TransactWriteItem{Put: &types.Put{
			TableName:                 aws.String(r.proposals),
			Item:                      av,
			ConditionExpression:       cond,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}})

		if c.Items != nil {
			keep := map[string]bool{}
			for _, it := range *c.Items {
				keep[it.ID] = true
			}
			stored := map[string]bool{}
			for _, it := range existingItems {
				stored[it.ID] = true
				if !keep[it.ID] {
					tx = append(tx, types.TransactWriteItem{Delete: &types.Delete{
						TableName: aws.String(r.items),
						Key:       lineItemKey(id, it.ID),
					}})
				}
			}
			for _, it := range *c.Items {
				if stored[it.ID] {
					continue
				}
				av, err := attributevalue.MarshalMap(toLineItemItem(it))
				if err != nil {
					return nil, err
				}
				tx = append(tx, types.TransactWriteItem{Put: &types.Put{TableName: aws.String(r.items), Item: av}})
			}
		}

		if c.BillingPlan != nil {
			av, err := attributevalue.MarshalMap(toBillingPlanItem(*c.BillingPlan))
			if err != nil {
				return nil, err
			}
			tx = append(tx, types.TransactWriteItem{Put: &types.Put{TableName: aws.String(r.plans), Item: av}})
		}
	}

	if c.Invoice != nil {
		put, err := invoicePut(r.invoices, *c.Invoice, c.ExpectedInvoiceVersion)
		if err != nil {
			return nil, err
		}
		tx = append(tx, put)
	}

	if c.Snapshot != nil {
		av, err := attributevalue.MarshalMap(snapshotItem{
			ProposalID:  c.Snapshot.ProposalID,
			Version:     c.Snapshot.Version,
			Status:      string(c.Snapshot.Status),
			ContentHash: c.Snapshot.ContentHash,
			Items:       c.Snapshot.Items,
			CreatedAt:   formatTime(c.Snapshot.CreatedAt),
		})
		if err != nil {
			return nil, err
		}
		tx = append(tx, types.TransactWriteItem{Put: &types.Put{
			TableName:                aws.String(r.snapshots),
			Item:                     av,
			ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
			ExpressionAttributeNames: map[string]string{"#pk": "proposal_id"},
		}})
	}

	for _, ev := range c.ProposalEvents {
		av, err := attributevalue.MarshalMap(proposalEventItem{
			ProposalID: ev.ProposalID,
			Key:        ev.Key,
			Type:       string(ev.Type),
			Metadata:   ev.Metadata,
			ActorID:    ev.ActorID,
			CreatedAt:  formatTime(ev.CreatedAt),
		})
		if err != nil {
			return nil, err
		}
		tx = append(tx, types.TransactWriteItem{Put: &types.Put{TableName: aws.String(r.events), Item: av}})
	}
	for _, ev := range c.InvoiceEvents {
		put, err := invoiceEventPut(r.invoiceEvents, ev)
		if err != nil {
			return nil, err
		}
		tx = append(tx, put)
	}
	return tx, nil
}

func (r *ProposalDynamoRepository) queryByPK(ctx context.Context, table, pk, value string, out any) error {
	p := dynamodb.NewQueryPaginator(r.ddb, &dynamodb.QueryInput{
		TableName:                aws.String(table),
		KeyConditionExpression:   aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{"#pk": pk},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: value},
		},
		ConsistentRead: aws.Bool(true),
	})
	var all []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return err
		}
		all = append(all, page.Items...)
	}
	return attributevalue.UnmarshalListOfMaps(all, out)
}

func lineItemKey(proposalID, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"proposal_id": &types.AttributeValueMemberS{Value: proposalID},
		"id":          &types.AttributeValueMemberS{Value: id},
	}
}

func toProposalItem(p entities.Proposal) proposalItem {
	return proposalItem{
		ID:              p.ID,
		ClientID:        p.ClientID,
		ClientEmail:     p.ClientEmail,
		Title:           p.Title,
		Description:     p.Description,
		Status:          string(p.Status),
		Currency:        p.Currency,
		Value:           p.Value,
		InvoiceID:       p.InvoiceID,
		CreatedBy:       p.CreatedBy,
		ApprovedBy:      p.ApprovedBy,
		Signature:       p.Signature,
		DeclineReason:   p.DeclineReason,
		ExpiresAt:       formatTimePtr(p.ExpiresAt),
		SentAt:          formatTimePtr(p.SentAt),
		ApprovedAt:      formatTimePtr(p.ApprovedAt),
		DeclinedAt:      formatTimePtr(p.DeclinedAt),
		ArchivedAt:      formatTimePtr(p.ArchivedAt),
		SnapshotVersion: p.SnapshotVersion,
		Version:         p.Version,
		CreatedAt:       formatTime(p.CreatedAt),
		UpdatedAt:       formatTime(p.UpdatedAt),
	}
}

// ErrUnknownProposalStatus is returned for a stored row whose status no
// transition recognises.
var ErrUnknownProposalStatus = errors.New("stored proposal has unknown status")

func fromProposalItem(it proposalItem) (entities.Proposal, error) {
	status := entities.ProposalStatus(it.Status)
	if !status.Valid() {
		log.Printf("[proposal][repository] unknown status proposal_id=%s status=%q", it.ID, it.Status)
		return entities.Proposal{}, fmt.Errorf("%w: proposal_id=%s status=%q", ErrUnknownProposalStatus, it.ID, it.Status)
	}
	return entities.Proposal{
		ID:              it.ID,
		ClientID:        it.ClientID,
		ClientEmail:     it.ClientEmail,
		Title:           it.Title,
		Description:     it.Description,
		Status:          status,
		Currency:        it.Currency,
		Value:           it.Value,
		InvoiceID:       it.InvoiceID,
		CreatedBy:       it.CreatedBy,
		ApprovedBy:      it.ApprovedBy,
		Signature:       it.Signature,
		DeclineReason:   it.DeclineReason,
		ExpiresAt:       parseTimePtr(it.ExpiresAt),
		SentAt:          parseTimePtr(it.SentAt),
		ApprovedAt:      parseTimePtr(it.ApprovedAt),
		DeclinedAt:      parseTimePtr(it.DeclinedAt),
		ArchivedAt:      parseTimePtr(it.ArchivedAt),
		SnapshotVersion: it.SnapshotVersion,
		Version:         it.Version,
		CreatedAt:       parseTime(it.CreatedAt),
		UpdatedAt:       parseTime(it.UpdatedAt),
	}, nil
}

func toLineItemItem(it entities.LineItem) lineItemItem {
	return lineItemItem{
		ProposalID:  it.ProposalID,
		ID:          it.ID,
		ServiceType: string(it.ServiceType),
		Name:        it.Name,
		Description: it.Description,
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice,
		LineTotal:   it.LineTotal,
		SortOrder:   it.SortOrder,
	}
}

func fromLineItemItem(it lineItemItem) entities.LineItem {
	return entities.LineItem{
		ID:          it.ID,
		ProposalID:  it.ProposalID,
		ServiceType: entities.ServiceType(it.ServiceType),
		Name:        it.Name,
		Description: it.Description,
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice,
		LineTotal:   it.LineTotal,
		SortOrder:   it.SortOrder,
	}
}

func toBillingPlanItem(p entities.BillingPlan) billingPlanItem {
	return billingPlanItem{
		ProposalID:       p.ProposalID,
		Type:             string(p.Type),
		Currency:         p.Currency,
		Total:            p.Total,
		DepositPercent:   p.DepositPercent,
		Deposit:          p.Deposit,
		PaymentTermsDays: p.PaymentTermsDays,
		StartDate:        formatTimePtr(p.StartDate),
		UpdatedAt:        formatTime(p.UpdatedAt),
	}
}

func fromBillingPlanItem(it billingPlanItem) entities.BillingPlan {
	return entities.BillingPlan{
		ProposalID:       it.ProposalID,
		Type:             entities.BillingPlanType(it.Type),
		Currency:         it.Currency,
		Total:            it.Total,
		DepositPercent:   it.DepositPercent,
		Deposit:          it.Deposit,
		PaymentTermsDays: it.PaymentTermsDays,
		StartDate:        parseTimePtr(it.StartDate),
		UpdatedAt:        parseTime(it.UpdatedAt),
	}
}
