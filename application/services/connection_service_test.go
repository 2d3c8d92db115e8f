package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"polymath-backend/application/ports"
	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
	"polymath-backend/domain/events"
)

const testUser = "user-1"

// Source embedding for all recompute tests. Candidate similarity against it
// is cos of the candidate vector's angle to the x axis, so (3,4) scores
// exactly 0.6 and (4,3) exactly 0.8.
var sourceVec = valueobjects.Embedding{1, 0}

func newTestConnectionService(items *fakeItemRepo, edges *fakeEdgeRepo, publisher ports.EventPublisher) *ConnectionService {
	return NewConnectionService(items, edges, publisher, nil, zap.NewNop())
}

func TestRecompute_EmptyEmbeddingIsNoOp(t *testing.T) {
	edges := newFakeEdgeRepo()
	svc := newTestConnectionService(&fakeItemRepo{}, edges, nil)

	source := mustItem(testUser, entities.ItemTypeThought, "no embedding yet", nil)
	err := svc.Recompute(context.Background(), source.ID(), source.Type(), source.Embedding(), testUser)

	require.NoError(t, err)
	assert.Empty(t, edges.inserted)
	assert.Empty(t, edges.deleted)
}

func TestRecompute_ConnectsAboveThresholdOnly(t *testing.T) {
	near := mustItem(testUser, entities.ItemTypeProject, "near", valueobjects.Embedding{4, 3})   // 0.8
	mid := mustItem(testUser, entities.ItemTypeArticle, "mid", valueobjects.Embedding{3, 4})    // 0.6
	far := mustItem(testUser, entities.ItemTypeListEntry, "far", valueobjects.Embedding{1, 2}) // ~0.45

	items := &fakeItemRepo{items: []*entities.Item{near, mid, far}}
	edges := newFakeEdgeRepo()
	svc := newTestConnectionService(items, edges, nil)

	source := mustItem(testUser, entities.ItemTypeThought, "source", sourceVec)
	err := svc.Recompute(context.Background(), source.ID(), source.Type(), source.Embedding(), testUser)
	require.NoError(t, err)

	require.Len(t, edges.inserted, 2)
	targets := map[string]bool{}
	for _, edge := range edges.inserted {
		targets[edge.TargetID.String()] = true
		assert.Equal(t, entities.EdgeCreatorAI, edge.CreatedBy)
		assert.Equal(t, source.ID(), edge.SourceID)
	}
	assert.True(t, targets[near.ID().String()])
	assert.True(t, targets[mid.ID().String()])
	assert.False(t, targets[far.ID().String()])
}

func TestRecompute_CapsAtFiveConnections(t *testing.T) {
	vectors := []valueobjects.Embedding{
		{4, 3},  // 0.8
		{1, 1},  // ~0.707
		{2, 1},  // ~0.894
		{3, 1},  // ~0.949
		{5, 1},  // ~0.981
		{3, 4},  // 0.6, lowest of the six
	}
	items := &fakeItemRepo{}
	for i, vec := range vectors {
		itemType := entities.ItemTypeProject
		if i%2 == 0 {
			itemType = entities.ItemTypeArticle
		}
		items.items = append(items.items, mustItem(testUser, itemType, "candidate", vec))
	}
	lowest := items.items[5]

	edges := newFakeEdgeRepo()
	svc := newTestConnectionService(items, edges, nil)

	source := mustItem(testUser, entities.ItemTypeThought, "source", sourceVec)
	err := svc.Recompute(context.Background(), source.ID(), source.Type(), source.Embedding(), testUser)
	require.NoError(t, err)

	require.Len(t, edges.inserted, 5)
	for _, edge := range edges.inserted {
		assert.NotEqual(t, lowest.ID(), edge.TargetID, "the sixth-best candidate must be cut")
	}
}

func TestRecompute_SkipsVariantOfSource(t *testing.T) {
	sameVariant := mustItem(testUser, entities.ItemTypeThought, "same variant", valueobjects.Embedding{1, 0})
	items := &fakeItemRepo{items: []*entities.Item{sameVariant}}
	edges := newFakeEdgeRepo()
	svc := newTestConnectionService(items, edges, nil)

	source := mustItem(testUser, entities.ItemTypeThought, "source", sourceVec)
	err := svc.Recompute(context.Background(), source.ID(), source.Type(), source.Embedding(), testUser)
	require.NoError(t, err)

	assert.Empty(t, edges.inserted, "candidates come only from other variants")
}

func TestRecompute_UserEdgeBlocksDuplicate(t *testing.T) {
	source := mustItem(testUser, entities.ItemTypeThought, "source", sourceVec)
	connected := mustItem(testUser, entities.ItemTypeProject, "already connected", valueobjects.Embedding{4, 3})

	// User edge stored in the opposite direction.
	userEdge, err := entities.NewUserEdge(testUser, connected.Type(), connected.ID(), source.Type(), source.ID(), "Manually connected")
	require.NoError(t, err)

	items := &fakeItemRepo{items: []*entities.Item{connected}}
	edges := newFakeEdgeRepo(userEdge)
	svc := newTestConnectionService(items, edges, nil)

	err = svc.Recompute(context.Background(), source.ID(), source.Type(), source.Embedding(), testUser)
	require.NoError(t, err)

	assert.Empty(t, edges.inserted, "pair already covered by the user edge")
	assert.Empty(t, edges.deleted, "user edges are never touched by recomputation")
	assert.Empty(t, edges.upserted)
}

func TestRecompute_ReplacesOutboundAISet(t *testing.T) {
	source := mustItem(testUser, entities.ItemTypeThought, "source", sourceVec)
	survivor := mustItem(testUser, entities.ItemTypeProject, "still close", valueobjects.Embedding{4, 3})
	drifted := mustItem(testUser, entities.ItemTypeArticle, "drifted away", valueobjects.Embedding{1, 2})
	fresh := mustItem(testUser, entities.ItemTypeListEntry, "newly close", valueobjects.Embedding{2, 1})

	survivorEdge, err := entities.NewAIEdge(testUser, source.Type(), source.ID(), survivor.Type(), survivor.ID(), "80% semantic match", 0.8)
	require.NoError(t, err)
	driftedEdge, err := entities.NewAIEdge(testUser, source.Type(), source.ID(), drifted.Type(), drifted.ID(), "70% semantic match", 0.7)
	require.NoError(t, err)

	items := &fakeItemRepo{items: []*entities.Item{survivor, drifted, fresh}}
	edges := newFakeEdgeRepo(survivorEdge, driftedEdge)
	svc := newTestConnectionService(items, edges, nil)

	err = svc.Recompute(context.Background(), source.ID(), source.Type(), source.Embedding(), testUser)
	require.NoError(t, err)

	assert.Equal(t, []string{driftedEdge.PairKey()}, edges.deleted)

	require.Len(t, edges.upserted, 1)
	assert.Equal(t, survivor.ID(), edges.upserted[0].TargetID)

	require.Len(t, edges.inserted, 1)
	assert.Equal(t, fresh.ID(), edges.inserted[0].TargetID)
}

func TestRecompute_DriftToEmptyDeletesAllOutbound(t *testing.T) {
	source := mustItem(testUser, entities.ItemTypeThought, "source", sourceVec)
	former := mustItem(testUser, entities.ItemTypeProject, "former neighbor", valueobjects.Embedding{1, 3})

	formerEdge, err := entities.NewAIEdge(testUser, source.Type(), source.ID(), former.Type(), former.ID(), "60% semantic match", 0.6)
	require.NoError(t, err)

	items := &fakeItemRepo{items: []*entities.Item{former}}
	edges := newFakeEdgeRepo(formerEdge)
	svc := newTestConnectionService(items, edges, nil)

	err = svc.Recompute(context.Background(), source.ID(), source.Type(), source.Embedding(), testUser)
	require.NoError(t, err)

	assert.Equal(t, []string{formerEdge.PairKey()}, edges.deleted)
	assert.Empty(t, edges.inserted)
	assert.Empty(t, edges.upserted)
}

func TestRecompute_ConcurrentInsertConflictIsIgnored(t *testing.T) {
	source := mustItem(testUser, entities.ItemTypeThought, "source", sourceVec)
	candidate := mustItem(testUser, entities.ItemTypeProject, "contested", valueobjects.Embedding{4, 3})

	items := &fakeItemRepo{items: []*entities.Item{candidate}}
	edges := newFakeEdgeRepo()
	edges.insertErr = ports.ErrEdgeExists
	svc := newTestConnectionService(items, edges, nil)

	err := svc.Recompute(context.Background(), source.ID(), source.Type(), source.Embedding(), testUser)
	assert.NoError(t, err, "losing the insert race is not a failure")
}

func TestRecompute_Idempotent(t *testing.T) {
	source := mustItem(testUser, entities.ItemTypeThought, "source", sourceVec)
	neighbor := mustItem(testUser, entities.ItemTypeProject, "neighbor", valueobjects.Embedding{4, 3})

	items := &fakeItemRepo{items: []*entities.Item{neighbor}}
	edges := newFakeEdgeRepo()
	svc := newTestConnectionService(items, edges, nil)

	ctx := context.Background()
	require.NoError(t, svc.Recompute(ctx, source.ID(), source.Type(), source.Embedding(), testUser))
	require.NoError(t, svc.Recompute(ctx, source.ID(), source.Type(), source.Embedding(), testUser))

	assert.Len(t, edges.inserted, 1, "second run refreshes, it does not duplicate")
	assert.Len(t, edges.upserted, 1)
	assert.Empty(t, edges.deleted)
	assert.Len(t, edges.edges, 1)
}

func TestRecompute_PublishesEvent(t *testing.T) {
	source := mustItem(testUser, entities.ItemTypeThought, "source", sourceVec)
	neighbor := mustItem(testUser, entities.ItemTypeProject, "neighbor", valueobjects.Embedding{4, 3})

	items := &fakeItemRepo{items: []*entities.Item{neighbor}}
	edges := newFakeEdgeRepo()
	publisher := &fakePublisher{}
	svc := newTestConnectionService(items, edges, publisher)

	err := svc.Recompute(context.Background(), source.ID(), source.Type(), source.Embedding(), testUser)
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)
	event, ok := publisher.published[0].(events.ConnectionsRecomputed)
	require.True(t, ok)
	assert.Equal(t, 1, event.EdgesAdded)
	assert.Equal(t, 0, event.EdgesRemoved)
}

func TestRecomputeForItem_MissingItem(t *testing.T) {
	svc := newTestConnectionService(&fakeItemRepo{}, newFakeEdgeRepo(), nil)

	err := svc.RecomputeForItem(context.Background(), testUser, entities.ItemTypeThought, valueobjects.NewItemID())
	assert.ErrorIs(t, err, ports.ErrItemNotFound)
}

func TestRenderReasoning(t *testing.T) {
	assert.Equal(t, "73% semantic match", renderReasoning(0.73))
	assert.Equal(t, "67% semantic match", renderReasoning(0.666))
	assert.Equal(t, "100% semantic match", renderReasoning(1.0))
}
