package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"polymath-backend/application/ports"
	"polymath-backend/domain/core/entities"
	domainservices "polymath-backend/domain/services"
	"polymath-backend/pkg/observability"
)

const (
	// serendipitySampleLimit bounds the pairwise search: at most
	// 50*49/2 = 1225 pair evaluations per request, independent of corpus size.
	serendipitySampleLimit = 50

	// serendipityFallbackPerType limits the manual fetch used when the
	// store's random-sampling path is unavailable.
	serendipityFallbackPerType = 25

	// serendipityTarget is the "interesting distance": far enough apart to
	// be non-obvious, close enough to be a credible bridge.
	serendipityTarget = 0.25

	// Acceptance band, exclusive on both ends. Pairs at or below the lower
	// bound are too dissimilar to bridge; pairs at or above the upper bound
	// are too similar to be interesting.
	serendipityBandLow  = 0.05
	serendipityBandHigh = 0.60
)

// Suggestion is a transient structural-hole result. It is returned to the
// caller and never persisted as an edge; creating an edge from it, if the
// user wants one, is a separate explicit action.
type Suggestion struct {
	Source   *entities.Item
	Target   *entities.Item
	Bridge   string
	Metaphor string
}

// SerendipityService searches the embedding space for the pair of items whose
// similarity lands closest to the target distance - a Goldilocks selection
// over a bounded random sample - and asks the bridge reasoner for a
// connecting metaphor.
type SerendipityService struct {
	items    ports.ItemRepository
	reasoner ports.BridgeReasoner
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewSerendipityService creates a serendipity service. metrics may be nil.
func NewSerendipityService(
	items ports.ItemRepository,
	reasoner ports.BridgeReasoner,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SerendipityService {
	return &SerendipityService{
		items:    items,
		reasoner: reasoner,
		metrics:  metrics,
		logger:   logger,
	}
}

// Find returns a structural-hole suggestion for the user, or nil when fewer
// than two embedded items exist or bridge reasoning fails. Reasoning failures
// are logged and swallowed - this method fails open and never surfaces an
// LLM error to the caller. Store failures do propagate.
func (s *SerendipityService) Find(ctx context.Context, userID string) (*Suggestion, error) {
	start := time.Now()

	sample, err := s.items.RandomSampleWithEmbeddings(ctx, userID, serendipitySampleLimit)
	if errors.Is(err, ports.ErrSamplingUnavailable) {
		sample, err = s.fallbackSample(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	if len(sample) < 2 {
		s.metrics.RecordSerendipity(ctx, time.Since(start), false)
		return nil, nil
	}

	a, b := s.selectPair(sample)

	result, err := s.reasoner.Bridge(ctx,
		ports.ItemSummary{Type: a.Type(), Title: a.Title()},
		ports.ItemSummary{Type: b.Type(), Title: b.Title()},
	)
	if err != nil {
		s.logger.Warn("Bridge reasoning failed, dropping suggestion",
			zap.String("userID", userID),
			zap.Error(err),
		)
		s.metrics.RecordSerendipity(ctx, time.Since(start), false)
		return nil, nil
	}

	s.metrics.RecordSerendipity(ctx, time.Since(start), true)

	return &Suggestion{
		Source:   a,
		Target:   b,
		Bridge:   result.Bridge,
		Metaphor: result.Metaphor,
	}, nil
}

// selectPair evaluates all unordered pairs in the sample and picks the one
// whose similarity is closest to the target, restricted to the acceptance
// band. When no pair lands in the band it falls back to a uniformly random
// pair of two distinct items, so a non-nil pair is guaranteed whenever the
// sample holds at least two items.
func (s *SerendipityService) selectPair(sample []*entities.Item) (*entities.Item, *entities.Item) {
	bestI, bestJ := -1, -1
	bestDistance := math.MaxFloat64

	for i := 0; i < len(sample); i++ {
		for j := i + 1; j < len(sample); j++ {
			sim := domainservices.CosineSimilarity(sample[i].Embedding(), sample[j].Embedding())
			if sim <= serendipityBandLow || sim >= serendipityBandHigh {
				continue
			}
			distance := math.Abs(sim - serendipityTarget)
			if distance < bestDistance {
				bestDistance = distance
				bestI, bestJ = i, j
			}
		}
	}

	if bestI >= 0 {
		return sample[bestI], sample[bestJ]
	}

	i := rand.Intn(len(sample))
	j := rand.Intn(len(sample) - 1)
	if j >= i {
		j++
	}
	return sample[i], sample[j]
}

// fallbackSample is the manual path used when the store cannot sample
// randomly: up to 25 projects and 25 thoughts with embeddings.
func (s *SerendipityService) fallbackSample(ctx context.Context, userID string) ([]*entities.Item, error) {
	projects, err := s.items.FindByTypeWithEmbedding(ctx, userID, entities.ItemTypeProject)
	if err != nil {
		return nil, fmt.Errorf("fetch projects: %w", err)
	}
	thoughts, err := s.items.FindByTypeWithEmbedding(ctx, userID, entities.ItemTypeThought)
	if err != nil {
		return nil, fmt.Errorf("fetch thoughts: %w", err)
	}

	if len(projects) > serendipityFallbackPerType {
		projects = projects[:serendipityFallbackPerType]
	}
	if len(thoughts) > serendipityFallbackPerType {
		thoughts = thoughts[:serendipityFallbackPerType]
	}

	return append(projects, thoughts...), nil
}
