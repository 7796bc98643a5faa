package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/otp-relay/internal/domain"
)

// RangeRepo stores number-range metadata. The range files themselves live
// in object storage under NumberRange.FileKey.
type RangeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRangeRepo(client *dynamodb.Client, tableName string) *RangeRepo {
	return &RangeRepo{client: client, tableName: tableName}
}

func (r *RangeRepo) Put(ctx context.Context, nr *domain.NumberRange) error {
	item, err := attributevalue.MarshalMap(nr)
	if err != nil {
		return fmt.Errorf("marshal number range: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *RangeRepo) Get(ctx context.Context, rangeID string) (*domain.NumberRange, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("range_id", rangeID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("number range not found: %w", domain.ErrNotFound)
	}
	var nr domain.NumberRange
	if err := attributevalue.UnmarshalMap(out.Item, &nr); err != nil {
		return nil, err
	}
	return &nr, nil
}

func (r *RangeRepo) List(ctx context.Context) ([]domain.NumberRange, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return nil, err
	}
	var ranges []domain.NumberRange
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &ranges); err != nil {
		return nil, err
	}
	return ranges, nil
}

func (r *RangeRepo) Delete(ctx context.Context, rangeID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("range_id", rangeID),
	})
	return err
}
