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

func TestCreateUserEdge(t *testing.T) {
	source := mustItem(testUser, entities.ItemTypeProject, "source", nil)
	target := mustItem(testUser, entities.ItemTypeThought, "target", nil)

	items := &fakeItemRepo{items: []*entities.Item{source, target}}
	edges := newFakeEdgeRepo()
	publisher := &fakePublisher{}
	svc := NewEdgeService(items, edges, publisher, zap.NewNop())

	edge, err := svc.CreateUserEdge(context.Background(), testUser,
		source.Type(), source.ID(), target.Type(), target.ID(), "Manually connected")
	require.NoError(t, err)

	assert.Equal(t, entities.EdgeCreatorUser, edge.CreatedBy)
	assert.Equal(t, 1.0, edge.Confidence)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "edge.created", publisher.published[0].GetEventType())
}

func TestCreateUserEdge_MissingEndpoint(t *testing.T) {
	source := mustItem(testUser, entities.ItemTypeProject, "source", nil)
	items := &fakeItemRepo{items: []*entities.Item{source}}
	svc := NewEdgeService(items, newFakeEdgeRepo(), nil, zap.NewNop())

	_, err := svc.CreateUserEdge(context.Background(), testUser,
		source.Type(), source.ID(), entities.ItemTypeThought, valueobjects.NewItemID(), "")
	assert.ErrorIs(t, err, ports.ErrItemNotFound)
}

func TestCreateUserEdge_DuplicatePair(t *testing.T) {
	source := mustItem(testUser, entities.ItemTypeProject, "source", nil)
	target := mustItem(testUser, entities.ItemTypeThought, "target", nil)

	// The AI connected this pair first, stored in the opposite direction.
	existing, err := entities.NewAIEdge(testUser, target.Type(), target.ID(), source.Type(), source.ID(), "60% semantic match", 0.6)
	require.NoError(t, err)

	items := &fakeItemRepo{items: []*entities.Item{source, target}}
	svc := NewEdgeService(items, newFakeEdgeRepo(existing), nil, zap.NewNop())

	_, err = svc.CreateUserEdge(context.Background(), testUser,
		source.Type(), source.ID(), target.Type(), target.ID(), "")
	assert.ErrorIs(t, err, ports.ErrEdgeExists)
}

func TestDeleteEdge(t *testing.T) {
	edges := newFakeEdgeRepo()
	publisher := &fakePublisher{}
	svc := NewEdgeService(&fakeItemRepo{}, edges, publisher, zap.NewNop())

	err := svc.DeleteEdge(context.Background(), testUser, "a#b")
	require.NoError(t, err)

	assert.Equal(t, []string{"a#b"}, edges.deleted)
	require.Len(t, publisher.published, 1)

	event, ok := publisher.published[0].(events.EdgeDeleted)
	require.True(t, ok)
	assert.Equal(t, "a#b", event.PairKey)
}

func TestListConnections_MissingItem(t *testing.T) {
	svc := NewEdgeService(&fakeItemRepo{}, newFakeEdgeRepo(), nil, zap.NewNop())

	_, err := svc.ListConnections(context.Background(), testUser, entities.ItemTypeProject, valueobjects.NewItemID())
	assert.ErrorIs(t, err, ports.ErrItemNotFound)
}
