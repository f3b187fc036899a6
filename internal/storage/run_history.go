package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

// RunHistoryTTL is how long run summaries are kept in DynamoDB.
const RunHistoryTTL = 90 * 24 * time.Hour

// DynamoDBAPI is the subset of the DynamoDB client used here.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoRunHistory records run summaries in a single-table layout:
// PK "RUN#<id>", SK "SUMMARY".
type DynamoRunHistory struct {
	db        DynamoDBAPI
	tableName string
}

// NewDynamoRunHistory creates a run history on an existing client.
func NewDynamoRunHistory(db DynamoDBAPI, tableName string) *DynamoRunHistory {
	return &DynamoRunHistory{db: db, tableName: tableName}
}

// NewDynamoRunHistoryFromConfig builds the DynamoDB client for a region.
func NewDynamoRunHistoryFromConfig(ctx context.Context, tableName, region string) (*DynamoRunHistory, error) {
	cfg, err := LoadAWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewDynamoRunHistory(dynamodb.NewFromConfig(cfg), tableName), nil
}

type runItem struct {
	PK      string            `dynamodbav:"PK"`
	SK      string            `dynamodbav:"SK"`
	Summary domain.RunSummary `dynamodbav:"Summary"`
	TTL     int64             `dynamodbav:"TTL,omitempty"`
}

func runKey(runID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "RUN#" + runID},
		"SK": &types.AttributeValueMemberS{Value: "SUMMARY"},
	}
}

func (h *DynamoRunHistory) Record(ctx context.Context, s *domain.RunSummary) error {
	av, err := attributevalue.MarshalMap(runItem{
		PK:      "RUN#" + s.RunID,
		SK:      "SUMMARY",
		Summary: *s,
		TTL:     s.FinishedAt.Add(RunHistoryTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}

	_, err = h.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(h.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting run %s to DynamoDB: %w", s.RunID, err)
	}
	return nil
}

// Get returns a recorded summary, or nil if the run is unknown.
func (h *DynamoRunHistory) Get(ctx context.Context, runID string) (*domain.RunSummary, error) {
	out, err := h.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(h.tableName),
		Key:       runKey(runID),
	})
	if err != nil {
		return nil, fmt.Errorf("getting run %s from DynamoDB: %w", runID, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item runItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling run summary: %w", err)
	}
	return &item.Summary, nil
}
