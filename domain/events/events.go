package events

import (
	"time"

	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
)

// SourceBackend is the event source attached to everything this service emits.
const SourceBackend = "polymath.backend"

// DomainEvent is the base interface for all domain events.
// Events represent something that has happened in the past.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// ItemEmbedded is raised by the upstream enrichment flow once an item's
// embedding has been (re)computed. It is the trigger for connection
// recomputation.
type ItemEmbedded struct {
	BaseEvent
	ItemID    valueobjects.ItemID `json:"item_id"`
	ItemType  entities.ItemType   `json:"item_type"`
	UserID    string              `json:"user_id"`
	Embedding string              `json:"embedding"`
}

// NewItemEmbedded creates an ItemEmbedded event. The embedding travels in its
// serialized text form to keep the event payload store-agnostic.
func NewItemEmbedded(itemID valueobjects.ItemID, itemType entities.ItemType, userID string, embedding valueobjects.Embedding) ItemEmbedded {
	return ItemEmbedded{
		BaseEvent: BaseEvent{
			AggregateID: itemID.String(),
			EventType:   "item.embedded",
			Timestamp:   time.Now(),
			Version:     1,
		},
		ItemID:    itemID,
		ItemType:  itemType,
		UserID:    userID,
		Embedding: embedding.String(),
	}
}

// ConnectionsRecomputed is raised after an item's outbound AI edge set has
// been replaced.
type ConnectionsRecomputed struct {
	BaseEvent
	ItemID       valueobjects.ItemID `json:"item_id"`
	ItemType     entities.ItemType   `json:"item_type"`
	UserID       string              `json:"user_id"`
	EdgesKept    int                 `json:"edges_kept"`
	EdgesAdded   int                 `json:"edges_added"`
	EdgesRemoved int                 `json:"edges_removed"`
}

// NewConnectionsRecomputed creates a ConnectionsRecomputed event.
func NewConnectionsRecomputed(itemID valueobjects.ItemID, itemType entities.ItemType, userID string, kept, added, removed int) ConnectionsRecomputed {
	return ConnectionsRecomputed{
		BaseEvent: BaseEvent{
			AggregateID: itemID.String(),
			EventType:   "connections.recomputed",
			Timestamp:   time.Now(),
			Version:     1,
		},
		ItemID:       itemID,
		ItemType:     itemType,
		UserID:       userID,
		EdgesKept:    kept,
		EdgesAdded:   added,
		EdgesRemoved: removed,
	}
}

// EdgeCreated is raised when a user creates an explicit edge.
type EdgeCreated struct {
	BaseEvent
	UserID    string `json:"user_id"`
	PairKey   string `json:"pair_key"`
	CreatedBy string `json:"created_by"`
}

// NewEdgeCreated creates an EdgeCreated event.
func NewEdgeCreated(edge *entities.Edge) EdgeCreated {
	return EdgeCreated{
		BaseEvent: BaseEvent{
			AggregateID: edge.SourceID.String(),
			EventType:   "edge.created",
			Timestamp:   time.Now(),
			Version:     1,
		},
		UserID:    edge.UserID,
		PairKey:   edge.PairKey(),
		CreatedBy: string(edge.CreatedBy),
	}
}

// EdgeDeleted is raised when a user removes an explicit edge.
type EdgeDeleted struct {
	BaseEvent
	UserID  string `json:"user_id"`
	PairKey string `json:"pair_key"`
}

// NewEdgeDeleted creates an EdgeDeleted event.
func NewEdgeDeleted(userID, pairKey string) EdgeDeleted {
	return EdgeDeleted{
		BaseEvent: BaseEvent{
			AggregateID: pairKey,
			EventType:   "edge.deleted",
			Timestamp:   time.Now(),
			Version:     1,
		},
		UserID:  userID,
		PairKey: pairKey,
	}
}
