package database

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTables struct {
	existing map[string]bool
	created  []string
	failOn   string
}

func (f *fakeTables) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	name := aws.ToString(in.TableName)
	if name == f.failOn {
		return nil, errors.New("boom")
	}
	if f.existing[name] {
		return &dynamodb.DescribeTableOutput{}, nil
	}
	return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
}

func (f *fakeTables) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.created = append(f.created, aws.ToString(in.TableName))
	return &dynamodb.CreateTableOutput{}, nil
}

func TestEnsureTables_CreatesMissingOnly(t *testing.T) {
	api := &fakeTables{existing: map[string]bool{"proposals": true}}
	defs := []dynamodb.CreateTableInput{
		{TableName: aws.String("proposals")},
		{TableName: aws.String("invoices")},
	}

	require.NoError(t, EnsureTables(context.Background(), api, defs))
	assert.Equal(t, []string{"invoices"}, api.created)
}

func TestEnsureTables_DescribeError(t *testing.T) {
	api := &fakeTables{failOn: "invoices"}
	err := EnsureTables(context.Background(), api, []dynamodb.CreateTableInput{{TableName: aws.String("invoices")}})
	assert.Error(t, err)
	assert.Empty(t, api.created)
}
