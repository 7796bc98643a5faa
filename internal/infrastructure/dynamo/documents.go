package dynamo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-relay/internal/domain"
)

// DocumentRepo stores the small logical tables (group registry, user sets,
// dedup history, verification channels, autodelete settings, daily stats)
// as one item per table name, rewritten in full on every save. This keeps
// the load/save-by-name contract those tables are written against while the
// store itself handles durability.
type DocumentRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDocumentRepo(client *dynamodb.Client, tableName string) *DocumentRepo {
	return &DocumentRepo{client: client, tableName: tableName}
}

// Load unmarshals the named document into v. Returns domain.ErrNotFound
// when the document has never been saved; a corrupt body is reported the
// same way so callers fall back to their empty default.
func (r *DocumentRepo) Load(ctx context.Context, name string, v interface{}) error {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("table_name", name),
	})
	if err != nil {
		return err
	}
	if out.Item == nil {
		return fmt.Errorf("document %q: %w", name, domain.ErrNotFound)
	}
	body, ok := out.Item["body"].(*types.AttributeValueMemberS)
	if !ok {
		return fmt.Errorf("document %q has no body: %w", name, domain.ErrNotFound)
	}
	if err := json.Unmarshal([]byte(body.Value), v); err != nil {
		return fmt.Errorf("document %q corrupt: %w", name, domain.ErrNotFound)
	}
	return nil
}

// Save marshals v and overwrites the named document.
func (r *DocumentRepo) Save(ctx context.Context, name string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal document %q: %w", name, err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"table_name": &types.AttributeValueMemberS{Value: name},
			"body":       &types.AttributeValueMemberS{Value: string(body)},
		},
	})
	return err
}
