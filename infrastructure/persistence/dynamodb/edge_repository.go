package dynamodb

import (
	"context"
	"errors"
	"fmt"
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

// batchWriteLimit is the DynamoDB BatchWriteItem maximum.
const batchWriteLimit = 25

// EdgeRepository implements ports.EdgeRepository. Edges live in the same
// table as items under:
//
//	PK = USER#<userID>, SK = EDGE#<canonicalPairKey>
//
// The canonical pair key makes both directions of a connection collide on
// one row, so a conditional put is all that uniqueness needs.
type EdgeRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewEdgeRepository creates a new EdgeRepository.
func NewEdgeRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.EdgeRepository {
	return &EdgeRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type edgeRecord struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	EntityType string  `dynamodbav:"EntityType"`
	UserID     string  `dynamodbav:"UserID"`
	SourceType string  `dynamodbav:"SourceType"`
	SourceID   string  `dynamodbav:"SourceID"`
	TargetType string  `dynamodbav:"TargetType"`
	TargetID   string  `dynamodbav:"TargetID"`
	CreatedBy  string  `dynamodbav:"CreatedBy"`
	Reasoning  string  `dynamodbav:"Reasoning"`
	Confidence float64 `dynamodbav:"Confidence"`
	CreatedAt  string  `dynamodbav:"CreatedAt"`
}

func edgeSK(pairKey string) string {
	return fmt.Sprintf("EDGE#%s", pairKey)
}

// FindIncident returns every edge that touches the given item, in either
// direction.
func (r *EdgeRepository) FindIncident(ctx context.Context, userID string, itemID valueobjects.ItemID) ([]*entities.Edge, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("SK").BeginsWith("EDGE#"))
	filter := expression.Name("SourceID").Equal(expression.Value(itemID.String())).
		Or(expression.Name("TargetID").Equal(expression.Value(itemID.String())))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build edge query expression: %w", err)
	}

	var edges []*entities.Edge
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
			return nil, fmt.Errorf("failed to query edges: %w", err)
		}

		for _, raw := range result.Items {
			edge, err := toEdge(raw)
			if err != nil {
				r.logger.Warn("Skipping unreadable edge record", zap.Error(err))
				continue
			}
			edges = append(edges, edge)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	return edges, nil
}

// Insert writes an edge only if no edge for the same pair exists yet.
// A losing race or an already-connected pair comes back as ErrEdgeExists.
func (r *EdgeRepository) Insert(ctx context.Context, edge *entities.Edge) error {
	av, err := attributevalue.MarshalMap(toRecord(edge))
	if err != nil {
		return fmt.Errorf("failed to marshal edge: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ports.ErrEdgeExists
		}
		return fmt.Errorf("failed to insert edge: %w", err)
	}
	return nil
}

// Upsert writes an edge unconditionally, replacing any existing row for the
// pair.
func (r *EdgeRepository) Upsert(ctx context.Context, edge *entities.Edge) error {
	av, err := attributevalue.MarshalMap(toRecord(edge))
	if err != nil {
		return fmt.Errorf("failed to marshal edge: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// Delete removes the edge for one pair key. Deleting an absent edge is not
// an error.
func (r *EdgeRepository) Delete(ctx context.Context, userID string, pairKey string) error {
	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: edgeSK(pairKey)},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	return nil
}

// DeleteBatch removes a set of edges in BatchWriteItem chunks, retrying
// unprocessed keys until DynamoDB accepts them all.
func (r *EdgeRepository) DeleteBatch(ctx context.Context, userID string, pairKeys []string) error {
	for start := 0; start < len(pairKeys); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(pairKeys) {
			end = len(pairKeys)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, pairKey := range pairKeys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
						"SK": &types.AttributeValueMemberS{Value: edgeSK(pairKey)},
					},
				},
			})
		}

		pending := map[string][]types.WriteRequest{r.tableName: requests}
		for attempt := 0; len(pending[r.tableName]) > 0; attempt++ {
			result, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return fmt.Errorf("failed to batch delete edges: %w", err)
			}
			if len(result.UnprocessedItems[r.tableName]) == 0 {
				break
			}

			pending = result.UnprocessedItems
			select {
			case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func toRecord(edge *entities.Edge) edgeRecord {
	return edgeRecord{
		PK:         userPK(edge.UserID),
		SK:         edgeSK(edge.PairKey()),
		EntityType: "EDGE",
		UserID:     edge.UserID,
		SourceType: string(edge.SourceType),
		SourceID:   edge.SourceID.String(),
		TargetType: string(edge.TargetType),
		TargetID:   edge.TargetID.String(),
		CreatedBy:  string(edge.CreatedBy),
		Reasoning:  edge.Reasoning,
		Confidence: edge.Confidence,
		CreatedAt:  edge.CreatedAt.Format(time.RFC3339),
	}
}

func toEdge(raw map[string]types.AttributeValue) (*entities.Edge, error) {
	var record edgeRecord
	if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edge record: %w", err)
	}

	sourceType, err := entities.ParseItemType(record.SourceType)
	if err != nil {
		return nil, err
	}
	targetType, err := entities.ParseItemType(record.TargetType)
	if err != nil {
		return nil, err
	}
	sourceID, err := valueobjects.NewItemIDFromString(record.SourceID)
	if err != nil {
		return nil, fmt.Errorf("edge record has invalid source id %q", record.SourceID)
	}
	targetID, err := valueobjects.NewItemIDFromString(record.TargetID)
	if err != nil {
		return nil, fmt.Errorf("edge record has invalid target id %q", record.TargetID)
	}

	createdAt, _ := time.Parse(time.RFC3339, record.CreatedAt)

	return &entities.Edge{
		UserID:     record.UserID,
		SourceType: sourceType,
		SourceID:   sourceID,
		TargetType: targetType,
		TargetID:   targetID,
		CreatedBy:  entities.EdgeCreator(record.CreatedBy),
		Reasoning:  record.Reasoning,
		Confidence: record.Confidence,
		CreatedAt:  createdAt,
	}, nil
}
