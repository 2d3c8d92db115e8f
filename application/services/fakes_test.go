package services

import (
	"context"
	"time"

	"polymath-backend/application/ports"
	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
	"polymath-backend/domain/events"
)

// fakeItemRepo is an in-memory ports.ItemRepository.
type fakeItemRepo struct {
	items       []*entities.Item
	sample      []*entities.Item
	samplingErr error
}

func (f *fakeItemRepo) GetByID(ctx context.Context, userID string, itemType entities.ItemType, id valueobjects.ItemID) (*entities.Item, error) {
	for _, item := range f.items {
		if item.UserID() == userID && item.Type() == itemType && item.ID().Equals(id) {
			return item, nil
		}
	}
	return nil, ports.ErrItemNotFound
}

func (f *fakeItemRepo) FindByTypeWithEmbedding(ctx context.Context, userID string, itemType entities.ItemType) ([]*entities.Item, error) {
	var out []*entities.Item
	for _, item := range f.items {
		if item.UserID() == userID && item.Type() == itemType && item.HasEmbedding() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) RandomSampleWithEmbeddings(ctx context.Context, userID string, limit int) ([]*entities.Item, error) {
	if f.samplingErr != nil {
		return nil, f.samplingErr
	}
	if len(f.sample) > limit {
		return f.sample[:limit], nil
	}
	return f.sample, nil
}

func (f *fakeItemRepo) Save(ctx context.Context, item *entities.Item) error {
	f.items = append(f.items, item)
	return nil
}

func (f *fakeItemRepo) Delete(ctx context.Context, userID string, itemType entities.ItemType, id valueobjects.ItemID) error {
	return nil
}

// fakeEdgeRepo is an in-memory ports.EdgeRepository keyed by canonical pair key.
type fakeEdgeRepo struct {
	edges map[string]*entities.Edge

	inserted  []*entities.Edge
	upserted  []*entities.Edge
	deleted   []string
	insertErr error // returned by the next Insert call, then cleared
}

func newFakeEdgeRepo(existing ...*entities.Edge) *fakeEdgeRepo {
	repo := &fakeEdgeRepo{edges: make(map[string]*entities.Edge)}
	for _, edge := range existing {
		repo.edges[edge.PairKey()] = edge
	}
	return repo
}

func (f *fakeEdgeRepo) FindIncident(ctx context.Context, userID string, itemID valueobjects.ItemID) ([]*entities.Edge, error) {
	var out []*entities.Edge
	for _, edge := range f.edges {
		if edge.UserID == userID && edge.Touches(itemID) {
			out = append(out, edge)
		}
	}
	return out, nil
}

func (f *fakeEdgeRepo) Insert(ctx context.Context, edge *entities.Edge) error {
	if f.insertErr != nil {
		err := f.insertErr
		f.insertErr = nil
		return err
	}
	if _, ok := f.edges[edge.PairKey()]; ok {
		return ports.ErrEdgeExists
	}
	f.edges[edge.PairKey()] = edge
	f.inserted = append(f.inserted, edge)
	return nil
}

func (f *fakeEdgeRepo) Upsert(ctx context.Context, edge *entities.Edge) error {
	f.edges[edge.PairKey()] = edge
	f.upserted = append(f.upserted, edge)
	return nil
}

func (f *fakeEdgeRepo) Delete(ctx context.Context, userID string, pairKey string) error {
	delete(f.edges, pairKey)
	f.deleted = append(f.deleted, pairKey)
	return nil
}

func (f *fakeEdgeRepo) DeleteBatch(ctx context.Context, userID string, pairKeys []string) error {
	for _, key := range pairKeys {
		delete(f.edges, key)
	}
	f.deleted = append(f.deleted, pairKeys...)
	return nil
}

// fakePublisher records published domain events.
type fakePublisher struct {
	published []events.DomainEvent
}

func (f *fakePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakePublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	f.published = append(f.published, batch...)
	return nil
}

// fakeReasoner is a canned ports.BridgeReasoner.
type fakeReasoner struct {
	result ports.BridgeResult
	err    error

	calls []ports.ItemSummary
}

func (f *fakeReasoner) Bridge(ctx context.Context, a, b ports.ItemSummary) (ports.BridgeResult, error) {
	f.calls = append(f.calls, a, b)
	if f.err != nil {
		return ports.BridgeResult{}, f.err
	}
	return f.result, nil
}

func mustItem(userID string, itemType entities.ItemType, title string, embedding valueobjects.Embedding) *entities.Item {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item, err := entities.ReconstructItem(valueobjects.NewItemID(), userID, itemType, title, embedding, now, now)
	if err != nil {
		panic(err)
	}
	return item
}
