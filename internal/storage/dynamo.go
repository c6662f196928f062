package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

// DynamoAPI is the subset of *dynamodb.Client the store calls.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore keeps one item per video, keyed by the "id_video" attribute.
type DynamoStore struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

// NewDynamoStore constructs a DynamoStore for table.
func NewDynamoStore(client DynamoAPI, table string) (*DynamoStore, error) {
	if table == "" {
		return nil, errors.New("dynamodb table name cannot be empty")
	}
	return &DynamoStore{
		client: client,
		table:  table,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id_video": &types.AttributeValueMemberS{Value: id},
	}
}

// Put writes the whole item, replacing any previous version.
func (s *DynamoStore) Put(ctx context.Context, video *model.Video) error {
	item, err := attributevalue.MarshalMap(video)
	if err != nil {
		return fmt.Errorf("marshal video: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get reads one item.
func (s *DynamoStore) Get(ctx context.Context, id string) (*model.Video, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var video model.Video
	if err := attributevalue.UnmarshalMap(out.Item, &video); err != nil {
		return nil, fmt.Errorf("unmarshal video: %w", err)
	}
	return &video, nil
}

// UpdateStatus sets status and data_upload in one conditional update.
func (s *DynamoStore) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	updatedAt, err := attributevalue.Marshal(s.now())
	if err != nil {
		return fmt.Errorf("marshal timestamp: %w", err)
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.key(id),
		UpdateExpression:    aws.String("SET #s = :s, data_upload = :u"),
		ConditionExpression: aws.String("attribute_exists(id_video)"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(status)},
			":u": updatedAt,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// ListByOwner scans the table page by page with an owner filter.
func (s *DynamoStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Video, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                aws.String(s.table),
		FilterExpression:         aws.String("#o = :o"),
		ExpressionAttributeNames: map[string]string{"#o": "id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	videos := make([]model.Video, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		var batch []model.Video
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal videos: %w", err)
		}
		videos = append(videos, batch...)
	}
	return videos, nil
}
