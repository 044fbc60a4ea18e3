package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"agency_portal/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client the repositories use.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

var _ DynamoAPI = (*dynamodb.Client)(nil)

// DynamoDB caps a transaction at 100 actions.
const maxTransactItems = 100

// Fixed-width UTC timestamps so range conditions on sort keys compare
// correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	return &t
}

// versionCondition guards a write on the stored version; 0 means the row
// must not exist yet. Only names the expression uses are returned, since
// DynamoDB rejects unused ExpressionAttributeNames.
func versionCondition(pk string, expected int64) (*string, map[string]string, map[string]types.AttributeValue) {
	if expected == 0 {
		return aws.String("attribute_not_exists(#pk)"), map[string]string{"#pk": pk}, nil
	}
	return aws.String("#version = :expected_version"), map[string]string{"#version": "version"}, map[string]types.AttributeValue{
		":expected_version": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expected)},
	}
}

// mapWriteError turns failed conditions into interfaces.ErrVersionConflict.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return fmt.Errorf("%w: %s", interfaces.ErrVersionConflict, cfe.ErrorMessage())
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return fmt.Errorf("%w: %s", interfaces.ErrVersionConflict, tce.ErrorMessage())
			}
		}
	}
	return err
}
