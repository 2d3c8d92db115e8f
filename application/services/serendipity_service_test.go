package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"polymath-backend/application/ports"
	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
)

func newTestSerendipityService(items *fakeItemRepo, reasoner ports.BridgeReasoner) *SerendipityService {
	return NewSerendipityService(items, reasoner, nil, zap.NewNop())
}

func TestFind_TooFewItems(t *testing.T) {
	reasoner := &fakeReasoner{}
	svc := newTestSerendipityService(&fakeItemRepo{
		sample: []*entities.Item{mustItem(testUser, entities.ItemTypeProject, "lonely", valueobjects.Embedding{1, 0})},
	}, reasoner)

	suggestion, err := svc.Find(context.Background(), testUser)
	require.NoError(t, err)
	assert.Nil(t, suggestion)
	assert.Empty(t, reasoner.calls, "no pair, no reasoning call")
}

func TestFind_PicksPairClosestToTarget(t *testing.T) {
	// a-b score 0.8 (too similar), a-c ~0.243 (closest to 0.25),
	// b-c ~0.78 (too similar). Expect the a-c pair.
	a := mustItem(testUser, entities.ItemTypeProject, "rust compiler notes", valueobjects.Embedding{1, 0})
	b := mustItem(testUser, entities.ItemTypeThought, "borrow checker idea", valueobjects.Embedding{4, 3})
	c := mustItem(testUser, entities.ItemTypeArticle, "sourdough starters", valueobjects.Embedding{1, 4})

	reasoner := &fakeReasoner{result: ports.BridgeResult{Bridge: "Both reward patience.", Metaphor: "slow fermentation"}}
	svc := newTestSerendipityService(&fakeItemRepo{sample: []*entities.Item{a, b, c}}, reasoner)

	suggestion, err := svc.Find(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, suggestion)

	assert.Equal(t, a.ID(), suggestion.Source.ID())
	assert.Equal(t, c.ID(), suggestion.Target.ID())
	assert.Equal(t, "Both reward patience.", suggestion.Bridge)
	assert.Equal(t, "slow fermentation", suggestion.Metaphor)

	require.Len(t, reasoner.calls, 2)
	assert.Equal(t, "rust compiler notes", reasoner.calls[0].Title)
	assert.Equal(t, "sourdough starters", reasoner.calls[1].Title)
}

func TestFind_NoPairInBandFallsBackToRandom(t *testing.T) {
	// All pairwise scores fall outside (0.05, 0.6): 1.0 and 0.0.
	a := mustItem(testUser, entities.ItemTypeProject, "a", valueobjects.Embedding{1, 0})
	b := mustItem(testUser, entities.ItemTypeThought, "b", valueobjects.Embedding{2, 0})
	c := mustItem(testUser, entities.ItemTypeArticle, "c", valueobjects.Embedding{0, 1})

	reasoner := &fakeReasoner{result: ports.BridgeResult{Bridge: "bridge", Metaphor: "metaphor"}}
	svc := newTestSerendipityService(&fakeItemRepo{sample: []*entities.Item{a, b, c}}, reasoner)

	suggestion, err := svc.Find(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, suggestion, "a random pair is still offered")
	assert.False(t, suggestion.Source.ID().Equals(suggestion.Target.ID()), "endpoints must be distinct")
}

func TestFind_BridgeFailureFailsOpen(t *testing.T) {
	a := mustItem(testUser, entities.ItemTypeProject, "a", valueobjects.Embedding{1, 0})
	b := mustItem(testUser, entities.ItemTypeThought, "b", valueobjects.Embedding{1, 4})

	reasoner := &fakeReasoner{err: errors.New("model unavailable")}
	svc := newTestSerendipityService(&fakeItemRepo{sample: []*entities.Item{a, b}}, reasoner)

	suggestion, err := svc.Find(context.Background(), testUser)
	assert.NoError(t, err, "LLM failures never surface to the caller")
	assert.Nil(t, suggestion)
}

func TestFind_SamplingUnavailableUsesFallback(t *testing.T) {
	project := mustItem(testUser, entities.ItemTypeProject, "garden redesign", valueobjects.Embedding{1, 0})
	thought := mustItem(testUser, entities.ItemTypeThought, "soil acidity", valueobjects.Embedding{1, 4})
	article := mustItem(testUser, entities.ItemTypeArticle, "excluded from fallback", valueobjects.Embedding{1, 4})

	items := &fakeItemRepo{
		items:       []*entities.Item{project, thought, article},
		samplingErr: ports.ErrSamplingUnavailable,
	}
	reasoner := &fakeReasoner{result: ports.BridgeResult{Bridge: "bridge", Metaphor: "metaphor"}}
	svc := newTestSerendipityService(items, reasoner)

	suggestion, err := svc.Find(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, suggestion)

	for _, endpoint := range []*entities.Item{suggestion.Source, suggestion.Target} {
		assert.NotEqual(t, article.ID(), endpoint.ID(), "fallback samples projects and thoughts only")
	}
}

func TestFind_StoreErrorPropagates(t *testing.T) {
	items := &fakeItemRepo{samplingErr: errors.New("dynamodb throttled")}
	svc := newTestSerendipityService(items, &fakeReasoner{})

	_, err := svc.Find(context.Background(), testUser)
	assert.Error(t, err)
}
