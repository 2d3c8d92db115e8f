package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"polymath-backend/application/ports"
	"polymath-backend/domain/events"
)

// putEventsLimit is the EventBridge PutEvents maximum batch size.
const putEventsLimit = 10

// Publisher sends domain events to an EventBridge bus. Event payloads are the
// JSON form of the domain event; the detail type is the event's type tag.
type Publisher struct {
	client  *eventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewPublisher creates an EventBridge publisher.
func NewPublisher(client *eventbridge.Client, busName string, logger *zap.Logger) ports.EventPublisher {
	return &Publisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

// Publish sends a single domain event.
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends multiple domain events, chunked to the PutEvents batch
// limit. Per-entry failures are reported as one error after the full batch
// has been attempted.
func (p *Publisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	if len(batch) == 0 {
		return nil
	}

	var failed int
	for start := 0; start < len(batch); start += putEventsLimit {
		end := start + putEventsLimit
		if end > len(batch) {
			end = len(batch)
		}

		entries := make([]types.PutEventsRequestEntry, 0, end-start)
		for _, event := range batch[start:end] {
			entry, err := toEntry(p.busName, event)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
		if err != nil {
			return fmt.Errorf("failed to put events: %w", err)
		}

		for i, entry := range result.Entries {
			if entry.ErrorCode != nil {
				failed++
				p.logger.Warn("Event rejected by EventBridge",
					zap.String("eventType", batch[start+i].GetEventType()),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d events failed to publish", failed, len(batch))
	}
	return nil
}

func toEntry(busName string, event events.DomainEvent) (types.PutEventsRequestEntry, error) {
	detail, err := json.Marshal(event)
	if err != nil {
		return types.PutEventsRequestEntry{}, fmt.Errorf("failed to marshal event %s: %w", event.GetEventType(), err)
	}

	return types.PutEventsRequestEntry{
		EventBusName: aws.String(busName),
		Source:       aws.String(events.SourceBackend),
		DetailType:   aws.String(event.GetEventType()),
		Detail:       aws.String(string(detail)),
	}, nil
}
