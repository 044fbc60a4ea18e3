package repository

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Table definitions mirror the "Table requirements" of each repository.
// They are used to create tables against DynamoDB Local; production tables
// are provisioned outside the service.

func (r *ProposalDynamoRepository) TableDefinitions() []dynamodb.CreateTableInput {
	return []dynamodb.CreateTableInput{
		{
			TableName: aws.String(r.proposals),
			AttributeDefinitions: []types.AttributeDefinition{
				stringAttr("id"), stringAttr("status"), stringAttr("expires_at"),
			},
			KeySchema: hashKey("id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
				IndexName:  aws.String(proposalsStatusExpiresIndex),
				KeySchema:  hashRangeKey("status", "expires_at"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			}},
			BillingMode: types.BillingModePayPerRequest,
		},
		compositeTable(r.items, stringAttr("proposal_id"), stringAttr("id")),
		{
			TableName:            aws.String(r.plans),
			AttributeDefinitions: []types.AttributeDefinition{stringAttr("proposal_id")},
			KeySchema:            hashKey("proposal_id"),
			BillingMode:          types.BillingModePayPerRequest,
		},
		compositeTable(r.snapshots, stringAttr("proposal_id"), types.AttributeDefinition{
			AttributeName: aws.String("version"),
			AttributeType: types.ScalarAttributeTypeN,
		}),
		compositeTable(r.events, stringAttr("proposal_id"), stringAttr("key")),
	}
}

func (r *InvoiceDynamoRepository) TableDefinitions() []dynamodb.CreateTableInput {
	return []dynamodb.CreateTableInput{
		{
			TableName: aws.String(r.invoices),
			AttributeDefinitions: []types.AttributeDefinition{
				stringAttr("id"), stringAttr("status"), stringAttr("due_date"),
			},
			KeySchema: hashKey("id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
				IndexName:  aws.String(invoicesStatusDueIndex),
				KeySchema:  hashRangeKey("status", "due_date"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			}},
			BillingMode: types.BillingModePayPerRequest,
		},
		compositeTable(r.events, stringAttr("invoice_id"), stringAttr("key")),
		{
			TableName: aws.String(r.payments),
			AttributeDefinitions: []types.AttributeDefinition{
				stringAttr("id"), stringAttr("invoice_id"),
			},
			KeySchema: hashKey("id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
				IndexName:  aws.String(paymentsInvoiceIDIndex),
				KeySchema:  hashKey("invoice_id"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			}},
			BillingMode: types.BillingModePayPerRequest,
		},
	}
}

func (r *ClauseDynamoRepository) TableDefinitions() []dynamodb.CreateTableInput {
	return []dynamodb.CreateTableInput{{
		TableName:            aws.String(r.tableName),
		AttributeDefinitions: []types.AttributeDefinition{stringAttr("code")},
		KeySchema:            hashKey("code"),
		BillingMode:          types.BillingModePayPerRequest,
	}}
}

func stringAttr(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
}

func hashKey(name string) []types.KeySchemaElement {
	return []types.KeySchemaElement{{AttributeName: aws.String(name), KeyType: types.KeyTypeHash}}
}

func hashRangeKey(hash, rng string) []types.KeySchemaElement {
	return []types.KeySchemaElement{
		{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String(rng), KeyType: types.KeyTypeRange},
	}
}

func compositeTable(name string, hash, rng types.AttributeDefinition) dynamodb.CreateTableInput {
	return dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{hash, rng},
		KeySchema:            hashRangeKey(*hash.AttributeName, *rng.AttributeName),
		BillingMode:          types.BillingModePayPerRequest,
	}
}
