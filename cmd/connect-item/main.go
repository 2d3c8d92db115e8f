// Package main implements the Lambda worker that recomputes an item's
// connections when its embedding changes. It is triggered by the
// item.embedded events the capture flow publishes to EventBridge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"polymath-backend/application/services"
	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
	"polymath-backend/infrastructure/config"
	"polymath-backend/infrastructure/di"
	"polymath-backend/pkg/observability"
)

var (
	connections *services.ConnectionService
	logger      *zap.Logger
	tracer      *observability.Tracer
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	connections = container.ConnectionService
	logger = container.Logger
	if cfg.EnableTracing {
		tracer = observability.NewTracer("connect-item")
	}

	log.Println("Connect-item handler initialized")
}

// itemEmbeddedDetail is the EventBridge payload of an item.embedded event.
// The embedding travels as serialized text.
type itemEmbeddedDetail struct {
	ItemID    string `json:"item_id"`
	ItemType  string `json:"item_type"`
	UserID    string `json:"user_id"`
	Embedding string `json:"embedding"`
}

// HandleItemEmbedded recomputes the connections of the item named by the
// event. Failures propagate so the event is retried and eventually lands on
// the dead-letter queue.
func HandleItemEmbedded(ctx context.Context, event awsevents.CloudWatchEvent) error {
	var detail itemEmbeddedDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		return fmt.Errorf("unmarshal event detail: %w", err)
	}

	itemID, err := valueobjects.NewItemIDFromString(detail.ItemID)
	if err != nil {
		return fmt.Errorf("event has invalid item id %q", detail.ItemID)
	}
	itemType, err := entities.ParseItemType(detail.ItemType)
	if err != nil {
		return err
	}
	if detail.UserID == "" {
		return fmt.Errorf("event is missing user id")
	}

	embedding, err := valueobjects.ParseEmbedding(detail.Embedding)
	if err != nil {
		return fmt.Errorf("event has unparseable embedding: %w", err)
	}

	logger.Info("Processing item.embedded event",
		zap.String("itemID", detail.ItemID),
		zap.String("itemType", detail.ItemType),
	)

	recompute := func(ctx context.Context) error {
		return connections.Recompute(ctx, itemID, itemType, embedding, detail.UserID)
	}

	if tracer != nil {
		tracer.AddAnnotation(ctx, "item_id", detail.ItemID)
		return tracer.TraceFunction(ctx, "recompute", recompute)
	}
	return recompute(ctx)
}

func main() {
	lambda.Start(HandleItemEmbedded)
}
