package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cyberpaste/cyberpaste/models"
)

// DynamoStore implements PasteStore using DynamoDB. The table's TTL feature
// is pointed at the "ttl" attribute (epoch seconds), so DynamoDB removes
// expired items on its own schedule; the sweep path catches items the
// reaper has not visited yet.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	timeout   time.Duration
}

// NewDynamoStore creates a new DynamoDB storage backend.
func NewDynamoStore(tableName, region string) (*DynamoStore, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, err
	}

	return &DynamoStore{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
		timeout:   10 * time.Second,
	}, nil
}

// Insert saves a paste. A conditional put rejects ids that already exist
// instead of overwriting them.
func (d *DynamoStore) Insert(ctx context.Context, paste *models.Paste) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	tabs, err := json.Marshal(paste.Tabs)
	if err != nil {
		return err
	}

	item := map[string]types.AttributeValue{
		"id":          &types.AttributeValueMemberS{Value: paste.ID},
		"created_at":  &types.AttributeValueMemberN{Value: strconv.FormatInt(paste.CreatedAt.UnixMilli(), 10)},
		"ttl_seconds": &types.AttributeValueMemberN{Value: strconv.FormatInt(paste.TTLSeconds, 10)},
		"encrypted":   &types.AttributeValueMemberBOOL{Value: paste.Encrypted},
		"views":       &types.AttributeValueMemberN{Value: strconv.FormatInt(paste.Views, 10)},
		"tabs":        &types.AttributeValueMemberB{Value: tabs},
	}
	if paste.ExpiresAt != nil {
		item["expires_at"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(paste.ExpiresAt.UnixMilli(), 10)}
		item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(paste.ExpiresAt.Unix(), 10)}
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrDuplicateID
	}
	return err
}

// Get retrieves a paste by id, or (nil, nil) when absent.
func (d *DynamoStore) Get(ctx context.Context, id string) (*models.Paste, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, nil
	}
	return itemToPaste(result.Item)
}

// Exists checks if a paste exists by id.
func (d *DynamoStore) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ProjectionExpression: aws.String("id"),
	})
	if err != nil {
		return false, err
	}
	return result.Item != nil, nil
}

// Delete removes a paste. DeleteItem on an absent key is already a no-op.
func (d *DynamoStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	return err
}

// IncrementViews bumps the view counter with an atomic ADD and returns the
// new count. The condition keeps the update from materializing a counter
// for an id that was deleted concurrently.
func (d *DynamoStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("ADD #v :inc"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#v": "views",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if views, ok := result.Attributes["views"].(*types.AttributeValueMemberN); ok {
		if n, err := strconv.ParseInt(views.Value, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, nil
}

// CountAll returns the number of stored items via a COUNT scan.
func (d *DynamoStore) CountAll(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var total int64
	var startKey map[string]types.AttributeValue
	for {
		result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(d.tableName),
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, err
		}
		total += int64(result.Count)
		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}
	return total, nil
}

// ScanExpired returns ids whose expires_at lies at or before now.
func (d *DynamoStore) ScanExpired(ctx context.Context, now time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var ids []string
	var startKey map[string]types.AttributeValue
	for {
		result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(d.tableName),
			FilterExpression:     aws.String("attribute_exists(expires_at) AND expires_at <= :now"),
			ProjectionExpression: aws.String("id"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return ids, err
		}
		for _, item := range result.Items {
			if id, ok := item["id"].(*types.AttributeValueMemberS); ok {
				ids = append(ids, id.Value)
			}
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}
	return ids, nil
}

// Close is a no-op for DynamoDB.
func (d *DynamoStore) Close() error {
	return nil
}

// itemToPaste converts a DynamoDB item to a Paste model.
func itemToPaste(item map[string]types.AttributeValue) (*models.Paste, error) {
	paste := &models.Paste{}

	if id, ok := item["id"].(*types.AttributeValueMemberS); ok {
		paste.ID = id.Value
	}
	if createdAt, ok := item["created_at"].(*types.AttributeValueMemberN); ok {
		if ms, err := strconv.ParseInt(createdAt.Value, 10, 64); err == nil {
			paste.CreatedAt = time.UnixMilli(ms)
		}
	}
	if ttl, ok := item["ttl_seconds"].(*types.AttributeValueMemberN); ok {
		if n, err := strconv.ParseInt(ttl.Value, 10, 64); err == nil {
			paste.TTLSeconds = n
		}
	}
	if expiresAt, ok := item["expires_at"].(*types.AttributeValueMemberN); ok {
		if ms, err := strconv.ParseInt(expiresAt.Value, 10, 64); err == nil {
			expiry := time.UnixMilli(ms)
			paste.ExpiresAt = &expiry
		}
	}
	if encrypted, ok := item["encrypted"].(*types.AttributeValueMemberBOOL); ok {
		paste.Encrypted = encrypted.Value
	}
	if views, ok := item["views"].(*types.AttributeValueMemberN); ok {
		if n, err := strconv.ParseInt(views.Value, 10, 64); err == nil {
			paste.Views = n
		}
	}
	if tabs, ok := item["tabs"].(*types.AttributeValueMemberB); ok {
		if err := json.Unmarshal(tabs.Value, &paste.Tabs); err != nil {
			return nil, err
		}
	}

	return paste, nil
}
