package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"polymath-backend/application/ports"
	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
	"polymath-backend/domain/events"
	domainservices "polymath-backend/domain/services"
	"polymath-backend/pkg/observability"
)

const (
	// similarityThreshold separates "plausibly related" from noise.
	// Tuned constant; the comparison is strict, a candidate at exactly
	// the threshold is excluded.
	similarityThreshold = 0.55

	// maxConnectionsPerItem caps an item's outbound AI edge set.
	maxConnectionsPerItem = 5
)

// ConnectionService maintains the AI-generated "relates-to" overlay. Given
// one item's embedding it recomputes that item's outbound AI edges against
// all other content variants, replacing the previous set.
//
// The service is stateless; any number of recomputations may run concurrently
// across users. Recomputes of two items that reference each other are not
// coordinated - the storage layer's canonical pair key turns the resulting
// check-then-act race into a rejected write.
type ConnectionService struct {
	items     ports.ItemRepository
	edges     ports.EdgeRepository
	publisher ports.EventPublisher
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewConnectionService creates a connection service. publisher and metrics
// may be nil; events and metrics are then skipped.
func NewConnectionService(
	items ports.ItemRepository,
	edges ports.EdgeRepository,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ConnectionService {
	return &ConnectionService{
		items:     items,
		edges:     edges,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

type scoredCandidate struct {
	item       *entities.Item
	similarity float64
}

// RecomputeForItem loads the item and recomputes its connections. This is the
// entry point for the explicit recompute endpoint; the event-driven path calls
// Recompute directly with the embedding from the event payload.
func (s *ConnectionService) RecomputeForItem(
	ctx context.Context,
	userID string,
	itemType entities.ItemType,
	itemID valueobjects.ItemID,
) error {
	item, err := s.items.GetByID(ctx, userID, itemType, itemID)
	if err != nil {
		return err
	}
	return s.Recompute(ctx, item.ID(), item.Type(), item.Embedding(), userID)
}

// Recompute replaces the source item's outbound AI edge set with edges to its
// most similar items across the other content variants.
//
// An empty embedding is a no-op, not an error. The replacement is computed as
// a symmetric difference against the existing outbound set: edges that
// dropped out are deleted, survivors are refreshed with the new confidence,
// and only genuinely new targets are inserted. A top set that came up empty
// still deletes the previous edges - a neighbor that has drifted apart must
// be dropped, so "replace, possibly with nothing" rather than "skip".
func (s *ConnectionService) Recompute(
	ctx context.Context,
	sourceID valueobjects.ItemID,
	sourceType entities.ItemType,
	sourceEmbedding valueobjects.Embedding,
	userID string,
) error {
	if sourceEmbedding.IsEmpty() {
		s.logger.Debug("Skipping recompute for item without embedding",
			zap.String("itemID", sourceID.String()),
		)
		return nil
	}

	start := time.Now()

	candidates, err := s.fetchCandidates(ctx, userID, sourceType, sourceID)
	if err != nil {
		return err
	}

	top := s.selectTop(sourceEmbedding, candidates)

	incident, err := s.edges.FindIncident(ctx, userID, sourceID)
	if err != nil {
		return fmt.Errorf("fetch incident edges: %w", err)
	}

	// Edges keyed by the id of the endpoint opposite the source, covering
	// both directions and both creators.
	connected := make(map[string]*entities.Edge, len(incident))
	for _, e := range incident {
		connected[e.OtherEnd(sourceID).String()] = e
	}

	var (
		upserts []*entities.Edge
		inserts []*entities.Edge
		keep    = make(map[string]bool, len(top))
	)

	for _, sc := range top {
		existing, ok := connected[sc.item.ID().String()]
		if ok && !existing.IsOutboundAI(sourceID) {
			// The pair is already covered by a user edge or by another
			// item's AI edge; inserting would duplicate the relationship.
			continue
		}

		edge, err := entities.NewAIEdge(
			userID,
			sourceType, sourceID,
			sc.item.Type(), sc.item.ID(),
			renderReasoning(sc.similarity),
			sc.similarity,
		)
		if err != nil {
			return fmt.Errorf("build edge: %w", err)
		}

		if ok {
			keep[existing.PairKey()] = true
			upserts = append(upserts, edge)
		} else {
			inserts = append(inserts, edge)
		}
	}

	// Outbound AI edges whose target fell out of the top set.
	var removals []string
	for _, e := range incident {
		if e.IsOutboundAI(sourceID) && !keep[e.PairKey()] {
			removals = append(removals, e.PairKey())
		}
	}

	if len(removals) > 0 {
		if err := s.edges.DeleteBatch(ctx, userID, removals); err != nil {
			return fmt.Errorf("delete stale edges: %w", err)
		}
	}

	for _, edge := range upserts {
		if err := s.edges.Upsert(ctx, edge); err != nil {
			return fmt.Errorf("refresh edge: %w", err)
		}
	}

	added := 0
	for _, edge := range inserts {
		if err := s.edges.Insert(ctx, edge); err != nil {
			if errors.Is(err, ports.ErrEdgeExists) {
				// A concurrent recompute of the other endpoint connected
				// the pair first.
				s.logger.Debug("Edge already connected by concurrent write",
					zap.String("pairKey", edge.PairKey()),
				)
				continue
			}
			return fmt.Errorf("insert edge: %w", err)
		}
		added++
	}

	s.logger.Info("Recomputed connections",
		zap.String("itemID", sourceID.String()),
		zap.String("itemType", string(sourceType)),
		zap.Int("kept", len(upserts)),
		zap.Int("added", added),
		zap.Int("removed", len(removals)),
		zap.Duration("duration", time.Since(start)),
	)

	s.metrics.RecordRecompute(ctx, time.Since(start), added, len(removals))

	if s.publisher != nil {
		event := events.NewConnectionsRecomputed(sourceID, sourceType, userID, len(upserts), added, len(removals))
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish recompute event", zap.Error(err))
		}
	}

	return nil
}

// fetchCandidates loads the embedded items of every variant other than the
// source's. The per-variant reads are independent and issued concurrently;
// results are merged only after all have returned, preserving the canonical
// variant order so similarity ties keep a stable discovery order.
func (s *ConnectionService) fetchCandidates(
	ctx context.Context,
	userID string,
	sourceType entities.ItemType,
	sourceID valueobjects.ItemID,
) ([]*entities.Item, error) {
	variants := entities.OtherItemTypes(sourceType)
	batches := make([][]*entities.Item, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		i, variant := i, variant
		g.Go(func() error {
			items, err := s.items.FindByTypeWithEmbedding(gctx, userID, variant)
			if err != nil {
				return fmt.Errorf("fetch %s candidates: %w", variant, err)
			}
			batches[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []*entities.Item
	for _, batch := range batches {
		for _, item := range batch {
			// Variants share an id namespace upstream; guard against the
			// source showing up as its own candidate.
			if item.ID().Equals(sourceID) {
				continue
			}
			merged = append(merged, item)
		}
	}
	return merged, nil
}

// selectTop scores candidates against the source embedding, applies the
// strict similarity threshold and returns at most maxConnectionsPerItem,
// ordered by similarity descending with ties stable in discovery order.
func (s *ConnectionService) selectTop(source valueobjects.Embedding, candidates []*entities.Item) []scoredCandidate {
	scored := make([]scoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		sim := domainservices.CosineSimilarity(source, cand.Embedding())
		if sim > similarityThreshold {
			scored = append(scored, scoredCandidate{item: cand, similarity: sim})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].similarity > scored[j].similarity
	})

	if len(scored) > maxConnectionsPerItem {
		scored = scored[:maxConnectionsPerItem]
	}
	return scored
}

// renderReasoning produces the human-readable edge annotation,
// e.g. "73% semantic match".
func renderReasoning(similarity float64) string {
	return fmt.Sprintf("%d%% semantic match", int(math.Round(similarity*100)))
}
