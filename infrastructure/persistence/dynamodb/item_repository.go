package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"polymath-backend/application/ports"
	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
)

// ItemRepository implements ports.ItemRepository on the single-table layout:
//
//	PK = USER#<userID>, SK = ITEM#<type>#<id>
//
// Items with an embedding additionally carry sparse EmbeddedIndex keys with a
// random sort value, which is what makes best-effort random sampling a plain
// range query.
type ItemRepository struct {
	client        *dynamodb.Client
	tableName     string
	embeddedIndex string
	logger        *zap.Logger
}

// NewItemRepository creates a new ItemRepository. embeddedIndex may be empty,
// which disables the random-sampling path.
func NewItemRepository(client *dynamodb.Client, tableName, embeddedIndex string, logger *zap.Logger) ports.ItemRepository {
	return &ItemRepository{
		client:        client,
		tableName:     tableName,
		embeddedIndex: embeddedIndex,
		logger:        logger,
	}
}

// itemRecord is the DynamoDB item structure for a content item. The Embedding
// attribute is decoded separately because older rows store it as serialized
// text while newer rows store a native number list.
type itemRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK     string `dynamodbav:"GSI1SK,omitempty"`
	EntityType string `dynamodbav:"EntityType"`
	ItemID     string `dynamodbav:"ItemID"`
	UserID     string `dynamodbav:"UserID"`
	ItemType   string `dynamodbav:"ItemType"`
	Title      string `dynamodbav:"Title"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

func userPK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

func itemSK(itemType entities.ItemType, id valueobjects.ItemID) string {
	return fmt.Sprintf("ITEM#%s#%s", itemType, id.String())
}

func itemSKPrefix(itemType entities.ItemType) string {
	return fmt.Sprintf("ITEM#%s#", itemType)
}

func embeddedPK(userID string) string {
	return fmt.Sprintf("USER#%s#EMBEDDED", userID)
}

// GetByID retrieves a single item.
func (r *ItemRepository) GetByID(ctx context.Context, userID string, itemType entities.ItemType, id valueobjects.ItemID) (*entities.Item, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: itemSK(itemType, id)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if result.Item == nil {
		return nil, ports.ErrItemNotFound
	}

	return r.toItem(result.Item)
}

// FindByTypeWithEmbedding retrieves all of a user's items of one variant that
// carry an embedding. Items without one are excluded by the filter, never
// treated as an error.
func (r *ItemRepository) FindByTypeWithEmbedding(ctx context.Context, userID string, itemType entities.ItemType) ([]*entities.Item, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("SK").BeginsWith(itemSKPrefix(itemType)))
	filter := expression.Name("Embedding").AttributeExists()

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	var items []*entities.Item
	var startKey map[string]types.AttributeValue

	for {
		result, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query %s items: %w", itemType, err)
		}

		for _, raw := range result.Items {
			item, err := r.toItem(raw)
			if err != nil {
				r.logger.Warn("Skipping unreadable item record", zap.Error(err))
				continue
			}
			items = append(items, item)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	return items, nil
}

// RandomSampleWithEmbeddings returns up to limit embedded items of any
// variant. It queries the sparse EmbeddedIndex from a random sort position
// and wraps around when the tail is short. Returns ErrSamplingUnavailable
// when no sampling index is configured.
func (r *ItemRepository) RandomSampleWithEmbeddings(ctx context.Context, userID string, limit int) ([]*entities.Item, error) {
	if r.embeddedIndex == "" {
		return nil, ports.ErrSamplingUnavailable
	}
	if limit <= 0 {
		return nil, nil
	}

	token := fmt.Sprintf("%08x", rand.Uint32())

	items, err := r.querySample(ctx, userID,
		expression.Key("GSI1SK").GreaterThanEqual(expression.Value(token)), limit)
	if err != nil {
		return nil, err
	}

	if len(items) < limit {
		wrapped, err := r.querySample(ctx, userID,
			expression.Key("GSI1SK").LessThan(expression.Value(token)), limit-len(items))
		if err != nil {
			return nil, err
		}
		items = append(items, wrapped...)
	}

	return items, nil
}

func (r *ItemRepository) querySample(ctx context.Context, userID string, sortCond expression.KeyConditionBuilder, limit int) ([]*entities.Item, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(embeddedPK(userID))).And(sortCond)

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build sample expression: %w", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.embeddedIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query embedded index: %w", err)
	}

	items := make([]*entities.Item, 0, len(result.Items))
	for _, raw := range result.Items {
		item, err := r.toItem(raw)
		if err != nil {
			r.logger.Warn("Skipping unreadable item record", zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Save persists an item. Items with an embedding receive sparse EmbeddedIndex
// keys with a fresh random sort value.
func (r *ItemRepository) Save(ctx context.Context, item *entities.Item) error {
	record := itemRecord{
		PK:         userPK(item.UserID()),
		SK:         itemSK(item.Type(), item.ID()),
		EntityType: "ITEM",
		ItemID:     item.ID().String(),
		UserID:     item.UserID(),
		ItemType:   string(item.Type()),
		Title:      item.Title(),
		CreatedAt:  item.CreatedAt().Format(time.RFC3339),
		UpdatedAt:  item.UpdatedAt().Format(time.RFC3339),
	}
	if item.HasEmbedding() {
		record.GSI1PK = embeddedPK(item.UserID())
		record.GSI1SK = fmt.Sprintf("%08x", rand.Uint32())
	}

	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	if item.HasEmbedding() {
		embAV, err := attributevalue.Marshal([]float64(item.Embedding()))
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		av["Embedding"] = embAV
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}

	return nil
}

// Delete removes an item.
func (r *ItemRepository) Delete(ctx context.Context, userID string, itemType entities.ItemType, id valueobjects.ItemID) error {
	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: itemSK(itemType, id)},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// toItem rebuilds a domain item from a raw DynamoDB record.
func (r *ItemRepository) toItem(raw map[string]types.AttributeValue) (*entities.Item, error) {
	var record itemRecord
	if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item record: %w", err)
	}

	embedding, err := decodeEmbedding(raw["Embedding"])
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", record.ItemID, err)
	}

	id, err := valueobjects.NewItemIDFromString(record.ItemID)
	if err != nil {
		return nil, fmt.Errorf("item record has invalid id %q", record.ItemID)
	}
	itemType, err := entities.ParseItemType(record.ItemType)
	if err != nil {
		return nil, err
	}

	createdAt, _ := time.Parse(time.RFC3339, record.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, record.UpdatedAt)

	return entities.ReconstructItem(id, record.UserID, itemType, record.Title, embedding, createdAt, updatedAt)
}

// decodeEmbedding accepts both storage forms of an embedding: a native
// number list and a JSON-serialized string from older rows.
func decodeEmbedding(av types.AttributeValue) (valueobjects.Embedding, error) {
	if av == nil {
		return nil, nil
	}

	if s, ok := av.(*types.AttributeValueMemberS); ok {
		emb, err := valueobjects.ParseEmbedding(s.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid serialized embedding: %w", err)
		}
		return emb, nil
	}

	var vec []float64
	if err := attributevalue.Unmarshal(av, &vec); err != nil {
		return nil, errors.New("embedding attribute has unsupported shape")
	}
	return valueobjects.Embedding(vec), nil
}
