package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"polymath-backend/application/ports"
	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
	"polymath-backend/domain/events"
)

// EdgeService handles explicit edge management and connection reads: the
// operations users trigger directly, as opposed to the recompute flow that
// maintains AI edges behind the scenes.
type EdgeService struct {
	items     ports.ItemRepository
	edges     ports.EdgeRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewEdgeService creates an edge service. publisher may be nil.
func NewEdgeService(
	items ports.ItemRepository,
	edges ports.EdgeRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *EdgeService {
	return &EdgeService{
		items:     items,
		edges:     edges,
		publisher: publisher,
		logger:    logger,
	}
}

// ListConnections returns every edge incident to the given item, in either
// direction and by either creator. Returns ports.ErrItemNotFound when the
// item does not exist.
func (s *EdgeService) ListConnections(
	ctx context.Context,
	userID string,
	itemType entities.ItemType,
	itemID valueobjects.ItemID,
) ([]*entities.Edge, error) {
	if _, err := s.items.GetByID(ctx, userID, itemType, itemID); err != nil {
		return nil, err
	}
	return s.edges.FindIncident(ctx, userID, itemID)
}

// CreateUserEdge creates an explicit user edge between two items. Both
// endpoints must exist; a pair that is already connected, by either creator,
// comes back as ports.ErrEdgeExists.
func (s *EdgeService) CreateUserEdge(
	ctx context.Context,
	userID string,
	sourceType entities.ItemType, sourceID valueobjects.ItemID,
	targetType entities.ItemType, targetID valueobjects.ItemID,
	reasoning string,
) (*entities.Edge, error) {
	if _, err := s.items.GetByID(ctx, userID, sourceType, sourceID); err != nil {
		return nil, fmt.Errorf("source item: %w", err)
	}
	if _, err := s.items.GetByID(ctx, userID, targetType, targetID); err != nil {
		return nil, fmt.Errorf("target item: %w", err)
	}

	edge, err := entities.NewUserEdge(userID, sourceType, sourceID, targetType, targetID, reasoning)
	if err != nil {
		return nil, err
	}

	if err := s.edges.Insert(ctx, edge); err != nil {
		return nil, err
	}

	s.logger.Info("User edge created",
		zap.String("userID", userID),
		zap.String("pairKey", edge.PairKey()),
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewEdgeCreated(edge)); err != nil {
			s.logger.Warn("Failed to publish edge created event", zap.Error(err))
		}
	}

	return edge, nil
}

// DeleteEdge removes the edge stored under the given pair key. Deleting an
// absent edge succeeds; the end state is identical.
func (s *EdgeService) DeleteEdge(ctx context.Context, userID, pairKey string) error {
	if err := s.edges.Delete(ctx, userID, pairKey); err != nil {
		return err
	}

	s.logger.Info("Edge deleted",
		zap.String("userID", userID),
		zap.String("pairKey", pairKey),
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewEdgeDeleted(userID, pairKey)); err != nil {
			s.logger.Warn("Failed to publish edge deleted event", zap.Error(err))
		}
	}

	return nil
}
