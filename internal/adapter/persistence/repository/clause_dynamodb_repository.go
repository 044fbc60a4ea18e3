package repository

import (
	"context"
	"log"

	"agency_portal/internal/domain/clauses"
	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultClausesTableName = "clauses"
	batchGetLimit           = 100
	batchWriteLimit         = 25
)

type clauseItem struct {
	Code      string `dynamodbav:"code"`
	Section   string `dynamodbav:"section"`
	Title     string `dynamodbav:"title"`
	Body      string `dynamodbav:"body"`
	SortOrder int    `dynamodbav:"sort_order"`
	Active    bool   `dynamodbav:"active"`
}

// ClauseDynamoRepository serves clause bodies from the clauses table so
// legal text can be edited without a deploy.
//
// Table requirements:
//   - PK: code (string)
type ClauseDynamoRepository struct {
	ddb       DynamoAPI
	tableName string
}

var _ interfaces.IClauseStore = (*ClauseDynamoRepository)(nil)

func NewClauseDynamoRepository(ddb DynamoAPI) *ClauseDynamoRepository {
	return &ClauseDynamoRepository{
		ddb:       ddb,
		tableName: getenvDefault("CLAUSES_TABLE", defaultClausesTableName),
	}
}

func (r *ClauseDynamoRepository) SelectActiveClausesByCode(ctx context.Context, codes []string) ([]entities.Clause, error) {
	seen := make(map[string]struct{}, len(codes))
	var keys []map[string]types.AttributeValue
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		keys = append(keys, map[string]types.AttributeValue{
			"code": &types.AttributeValueMemberS{Value: code},
		})
	}

	var out []entities.Clause
	for start := 0; start < len(keys); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(keys) {
			end = len(keys)
		}
		pending := map[string]types.KeysAndAttributes{
			r.tableName: {Keys: keys[start:end], ConsistentRead: aws.Bool(true)},
		}
		for len(pending) > 0 {
			resp, err := r.ddb.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, err
			}
			for _, raw := range resp.Responses[r.tableName] {
				var it clauseItem
				if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
					return nil, err
				}
				if !it.Active {
					continue
				}
				out = append(out, entities.Clause{
					Code:      it.Code,
					Section:   it.Section,
					Title:     it.Title,
					Body:      it.Body,
					SortOrder: it.SortOrder,
					Active:    it.Active,
				})
			}
			pending = resp.UnprocessedKeys
		}
	}
	clauses.SortClauses(out)
	return out, nil
}

// Seed upserts clauses into the table. Used by the seed-clauses command to
// load the bundled catalog.
func (r *ClauseDynamoRepository) Seed(ctx context.Context, cs []entities.Clause) error {
	for start := 0; start < len(cs); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(cs) {
			end = len(cs)
		}
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, c := range cs[start:end] {
			av, err := attributevalue.MarshalMap(clauseItem{
				Code:      c.Code,
				Section:   c.Section,
				Title:     c.Title,
				Body:      c.Body,
				SortOrder: c.SortOrder,
				Active:    c.Active,
			})
			if err != nil {
				return err
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
		}
		pending := map[string][]types.WriteRequest{r.tableName: reqs}
		for len(pending) > 0 {
			resp, err := r.ddb.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return err
			}
			pending = resp.UnprocessedItems
		}
	}
	log.Printf("[clause][repository] seeded clauses count=%d table=%s", len(cs), r.tableName)
	return nil
}
