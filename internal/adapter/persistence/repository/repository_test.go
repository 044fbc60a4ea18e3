package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo records writes and serves canned reads.
type fakeDynamo struct {
	getItem      map[string]types.AttributeValue
	queryItems   map[string][]map[string]types.AttributeValue
	batchGet     []*dynamodb.BatchGetItemOutput
	batchWrites  []*dynamodb.BatchWriteItemInput
	unprocessed  map[string][]types.WriteRequest
	transactions []*dynamodb.TransactWriteItemsInput
	transactErr  error
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.getItem}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{Items: f.queryItems[aws.ToString(in.TableName)]}, nil
}

func (f *fakeDynamo) BatchGetItem(_ context.Context, _ *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	if len(f.batchGet) == 0 {
		return &dynamodb.BatchGetItemOutput{}, nil
	}
	out := f.batchGet[0]
	f.batchGet = f.batchGet[1:]
	return out, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batchWrites = append(f.batchWrites, in)
	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: f.unprocessed}
	f.unprocessed = nil
	return out, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transactions = append(f.transactions, in)
	if f.transactErr != nil {
		return nil, f.transactErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func countWrites(tx []types.TransactWriteItem, table string) (puts, deletes int) {
	for _, w := range tx {
		if w.Put != nil && aws.ToString(w.Put.TableName) == table {
			puts++
		}
		if w.Delete != nil && aws.ToString(w.Delete.TableName) == table {
			deletes++
		}
	}
	return puts, deletes
}

func TestTimeLayout_SortsAsString(t *testing.T) {
	a := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := a.Add(500 * time.Millisecond)

	assert.Len(t, formatTime(a), len(formatTime(b)))
	assert.Less(t, formatTime(a), formatTime(b))
	assert.True(t, parseTime(formatTime(b)).Equal(b))
	assert.Equal(t, "", formatTime(time.Time{}))
	assert.Nil(t, parseTimePtr(""))
}

func TestVersionCondition(t *testing.T) {
	cond, names, values := versionCondition("id", 0)
	assert.Equal(t, "attribute_not_exists(#pk)", aws.ToString(cond))
	assert.Equal(t, "id", names["#pk"])
	assert.Nil(t, values)

	cond, _, values = versionCondition("id", 7)
	assert.Equal(t, "#version = :expected_version", aws.ToString(cond))
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, values[":expected_version"])
}

// assertExpressionsUseAll fails when a conditional write carries an
// attribute name or value its condition never references.
func assertExpressionsUseAll(t *testing.T, tx []types.TransactWriteItem) {
	t.Helper()
	check := func(cond *string, names map[string]string, values map[string]types.AttributeValue) {
		expr := aws.ToString(cond)
		for k := range names {
			assert.Truef(t, strings.Contains(expr, k), "condition %q does not use attribute name %q", expr, k)
		}
		for k := range values {
			assert.Truef(t, strings.Contains(expr, k), "condition %q does not use attribute value %q", expr, k)
		}
	}
	for _, item := range tx {
		switch {
		case item.Put != nil:
			check(item.Put.ConditionExpression, item.Put.ExpressionAttributeNames, item.Put.ExpressionAttributeValues)
		case item.Delete != nil:
			check(item.Delete.ConditionExpression, item.Delete.ExpressionAttributeNames, item.Delete.ExpressionAttributeValues)
		case item.Update != nil:
			check(item.Update.ConditionExpression, item.Update.ExpressionAttributeNames, item.Update.ExpressionAttributeValues)
		}
	}
}

func TestVersionCondition_NamesMatchExpression(t *testing.T) {
	for _, expected := range []int64{0, 1, 7} {
		cond, names, values := versionCondition("id", expected)
		assertExpressionsUseAll(t, []types.TransactWriteItem{{Put: &types.Put{
			ConditionExpression:       cond,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}}})
	}
}

func TestCommits_ConditionsUseEveryAttributeName(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inv := entities.Invoice{ID: "i-1", ProposalID: "p-1", AmountCents: 1000, Status: entities.InvoiceStatusPending, Version: 2, CreatedAt: now, UpdatedAt: now}
	newInv := entities.Invoice{ID: "i-2", ProposalID: "p-1", Status: entities.InvoiceStatusPending, Version: 1, CreatedAt: now, UpdatedAt: now}

	commits := map[string]interfaces.ProposalCommit{
		"create": {
			Proposal:        entities.Proposal{ID: "p-1", Status: entities.ProposalStatusDraft, Version: 1, CreatedAt: now, UpdatedAt: now},
			ExpectedVersion: 0,
			Invoice:         &newInv,
		},
		"send": {
			Proposal:               entities.Proposal{ID: "p-1", Status: entities.ProposalStatusSent, Value: 1000, Version: 3, CreatedAt: now, UpdatedAt: now},
			ExpectedVersion:        2,
			Invoice:                &inv,
			ExpectedInvoiceVersion: 1,
			Snapshot:               &entities.ClauseSnapshot{ProposalID: "p-1", Version: 1, Status: entities.SnapshotStatusLocked, ContentHash: "abc", CreatedAt: now},
		},
		"delete": {
			Proposal:        entities.Proposal{ID: "p-1"},
			ExpectedVersion: 4,
			DeleteProposal:  true,
		},
	}
	for name, c := range commits {
		t.Run(name, func(t *testing.T) {
			fake := &fakeDynamo{}
			repo := NewProposalDynamoRepository(fake)
			require.NoError(t, repo.Commit(context.Background(), c))
			require.Len(t, fake.transactions, 1)
			assertExpressionsUseAll(t, fake.transactions[0].TransactItems)
		})
	}

	t.Run("invoice", func(t *testing.T) {
		fake := &fakeDynamo{}
		repo := NewInvoiceDynamoRepository(fake)
		err := repo.Commit(context.Background(), interfaces.InvoiceCommit{
			Invoice:         entities.Invoice{ID: "i-1", Status: entities.InvoiceStatusPaid, PaidAt: &now, Version: 5},
			ExpectedVersion: 4,
			Payment:         &entities.InvoicePayment{ID: "pay-1", InvoiceID: "i-1", Date: now, Status: entities.PaymentStatusApproved, AmountCents: 1000},
		})
		require.NoError(t, err)
		assertExpressionsUseAll(t, fake.transactions[0].TransactItems)
	})
}

func TestMapWriteError(t *testing.T) {
	assert.NoError(t, mapWriteError(nil))

	err := mapWriteError(&types.ConditionalCheckFailedException{Message: aws.String("stale")})
	assert.ErrorIs(t, err, interfaces.ErrVersionConflict)

	err = mapWriteError(&types.TransactionCanceledException{
		Message: aws.String("cancelled"),
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	})
	assert.ErrorIs(t, err, interfaces.ErrVersionConflict)

	err = mapWriteError(&types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("ThrottlingError")}},
	})
	assert.NotErrorIs(t, err, interfaces.ErrVersionConflict)

	boom := errors.New("boom")
	assert.Equal(t, boom, mapWriteError(boom))
}

func TestProposalDynamoRepository_CommitSend(t *testing.T) {
	fake := &fakeDynamo{}
	repo := NewProposalDynamoRepository(fake)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inv := entities.Invoice{ID: "i-1", ProposalID: "p-1", AmountCents: 1000, Status: entities.InvoiceStatusPending, Version: 2, CreatedAt: now, UpdatedAt: now}
	err := repo.Commit(context.Background(), interfaces.ProposalCommit{
		Proposal:               entities.Proposal{ID: "p-1", Status: entities.ProposalStatusSent, Value: 1000, Version: 3, CreatedAt: now, UpdatedAt: now},
		ExpectedVersion:        2,
		Invoice:                &inv,
		ExpectedInvoiceVersion: 1,
		Snapshot:               &entities.ClauseSnapshot{ProposalID: "p-1", Version: 1, Status: entities.SnapshotStatusLocked, ContentHash: "abc", CreatedAt: now},
		ProposalEvents:         []entities.ProposalEvent{{ProposalID: "p-1", Key: "sent#3", Type: entities.EventSent, CreatedAt: now}},
		InvoiceEvents:          []entities.InvoiceEvent{{InvoiceID: "i-1", Key: "linked_to_proposal#2", Type: entities.EventLinkedToProposal, CreatedAt: now}},
	})
	require.NoError(t, err)
	require.Len(t, fake.transactions, 1)

	tx := fake.transactions[0].TransactItems
	require.Len(t, tx, 5)

	proposalPut := tx[0].Put
	require.NotNil(t, proposalPut)
	assert.Equal(t, repo.proposals, aws.ToString(proposalPut.TableName))
	assert.Equal(t, "#version = :expected_version", aws.ToString(proposalPut.ConditionExpression))

	var stored proposalItem
	require.NoError(t, attributevalue.UnmarshalMap(proposalPut.Item, &stored))
	assert.Equal(t, int64(3), stored.Version)
	assert.Equal(t, "sent", stored.Status)

	invoicePuts, _ := countWrites(tx, repo.invoices)
	assert.Equal(t, 1, invoicePuts)
	snapshotPuts, _ := countWrites(tx, repo.snapshots)
	assert.Equal(t, 1, snapshotPuts)
}

func TestProposalDynamoRepository_CommitReplacesItems(t *testing.T) {
	keepItem := entities.LineItem{ID: "keep", ProposalID: "p-1", ServiceType: entities.ServiceTypeSEO, Name: "Audit", Quantity: 1}
	dropItem := entities.LineItem{ID: "drop", ProposalID: "p-1", ServiceType: entities.ServiceTypeSEO, Name: "Old", Quantity: 1}
	var rows []map[string]types.AttributeValue
	for _, it := range []entities.LineItem{keepItem, dropItem} {
		av, err := attributevalue.MarshalMap(toLineItemItem(it))
		require.NoError(t, err)
		rows = append(rows, av)
	}

	fake := &fakeDynamo{}
	repo := NewProposalDynamoRepository(fake)
	fake.queryItems = map[string][]map[string]types.AttributeValue{repo.items: rows}

	items := []entities.LineItem{keepItem, {ID: "new", ProposalID: "p-1", ServiceType: entities.ServiceTypeWebsite, Name: "Build", Quantity: 1}}
	err := repo.Commit(context.Background(), interfaces.ProposalCommit{
		Proposal:        entities.Proposal{ID: "p-1", Status: entities.ProposalStatusDraft, Version: 2},
		ExpectedVersion: 1,
		Items:           &items,
	})
	require.NoError(t, err)

	puts, deletes := countWrites(fake.transactions[0].TransactItems, repo.items)
	assert.Equal(t, 1, puts, "only the new item is written")
	assert.Equal(t, 1, deletes, "the dropped item is removed")
}

func TestProposalDynamoRepository_CommitDelete(t *testing.T) {
	item, err := attributevalue.MarshalMap(toLineItemItem(entities.LineItem{ID: "a", ProposalID: "p-1"}))
	require.NoError(t, err)
	fake := &fakeDynamo{}
	repo := NewProposalDynamoRepository(fake)
	fake.queryItems = map[string][]map[string]types.AttributeValue{repo.items: {item}}

	err = repo.Commit(context.Background(), interfaces.ProposalCommit{
		Proposal:        entities.Proposal{ID: "p-1"},
		ExpectedVersion: 4,
		DeleteProposal:  true,
	})
	require.NoError(t, err)

	tx := fake.transactions[0].TransactItems
	_, proposalDeletes := countWrites(tx, repo.proposals)
	_, itemDeletes := countWrites(tx, repo.items)
	_, planDeletes := countWrites(tx, repo.plans)
	assert.Equal(t, 1, proposalDeletes)
	assert.Equal(t, 1, itemDeletes)
	assert.Equal(t, 1, planDeletes)
	assert.Equal(t, "#version = :expected_version", aws.ToString(tx[0].Delete.ConditionExpression))
}

func TestProposalDynamoRepository_CommitConflict(t *testing.T) {
	fake := &fakeDynamo{transactErr: &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("ConditionalCheckFailed")}},
	}}
	repo := NewProposalDynamoRepository(fake)

	err := repo.Commit(context.Background(), interfaces.ProposalCommit{Proposal: entities.Proposal{ID: "p-1", Version: 2}, ExpectedVersion: 1})
	assert.ErrorIs(t, err, interfaces.ErrVersionConflict)
}

func TestProposalDynamoRepository_GetByIDMissing(t *testing.T) {
	repo := NewProposalDynamoRepository(&fakeDynamo{})
	p, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, p.ID)
}

func TestProposalDynamoRepository_GetByIDRejectsUnknownStatus(t *testing.T) {
	row, err := attributevalue.MarshalMap(proposalItem{ID: "p-1", Status: "pending_review", Version: 1})
	require.NoError(t, err)
	repo := NewProposalDynamoRepository(&fakeDynamo{getItem: row})

	_, err = repo.GetByID(context.Background(), "p-1")
	assert.ErrorIs(t, err, ErrUnknownProposalStatus)

	row, err = attributevalue.MarshalMap(proposalItem{ID: "p-1", Status: "viewed", Version: 1})
	require.NoError(t, err)
	repo = NewProposalDynamoRepository(&fakeDynamo{getItem: row})
	p, err := repo.GetByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, entities.ProposalStatusViewed, p.Status)
}

func TestInvoiceDynamoRepository_CommitPayment(t *testing.T) {
	fake := &fakeDynamo{}
	repo := NewInvoiceDynamoRepository(fake)
	now := time.Now().UTC()

	err := repo.Commit(context.Background(), interfaces.InvoiceCommit{
		Invoice:         entities.Invoice{ID: "i-1", Status: entities.InvoiceStatusPaid, PaidAt: &now, Version: 5},
		ExpectedVersion: 4,
		Events:          []entities.InvoiceEvent{{InvoiceID: "i-1", Key: "paid#5", Type: entities.EventPaid, CreatedAt: now}},
		Payment:         &entities.InvoicePayment{ID: "pay-1", InvoiceID: "i-1", Date: now, Status: entities.PaymentStatusApproved, AmountCents: 1000},
	})
	require.NoError(t, err)

	tx := fake.transactions[0].TransactItems
	require.Len(t, tx, 3)
	assert.Equal(t, "attribute_not_exists(#id)", aws.ToString(tx[2].Put.ConditionExpression))
}

func TestClauseDynamoRepository_SelectActive(t *testing.T) {
	row := func(code string, order int, active bool) map[string]types.AttributeValue {
		av, err := attributevalue.MarshalMap(clauseItem{Code: code, Title: code, SortOrder: order, Active: active})
		require.NoError(t, err)
		return av
	}
	repo := NewClauseDynamoRepository(nil)
	fake := &fakeDynamo{batchGet: []*dynamodb.BatchGetItemOutput{{
		Responses: map[string][]map[string]types.AttributeValue{
			repo.tableName: {row("b", 2, true), row("x", 0, false), row("a", 1, true)},
		},
	}}}
	repo.ddb = fake

	got, err := repo.SelectActiveClausesByCode(context.Background(), []string{"a", "b", "x", "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Code)
	assert.Equal(t, "b", got[1].Code)
}

func TestClauseDynamoRepository_SeedRetriesUnprocessed(t *testing.T) {
	repo := NewClauseDynamoRepository(nil)
	fake := &fakeDynamo{unprocessed: map[string][]types.WriteRequest{
		repo.tableName: {{PutRequest: &types.PutRequest{}}},
	}}
	repo.ddb = fake

	cs := make([]entities.Clause, 30)
	for i := range cs {
		cs[i] = entities.Clause{Code: string(rune('a' + i%26)), Active: true}
	}
	require.NoError(t, repo.Seed(context.Background(), cs))
	// two chunks of 25 and 5, plus one retry of the unprocessed request
	assert.Len(t, fake.batchWrites, 3)
}
