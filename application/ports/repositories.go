package ports

import (
	"context"
	"errors"

	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
	"polymath-backend/domain/events"
)

// ErrItemNotFound is returned when an item lookup misses.
var ErrItemNotFound = errors.New("item not found")

// ErrEdgeExists is returned by a conditional edge insert when an edge for the
// same user and unordered item pair already exists, in either direction.
// Under concurrent recomputation this turns a duplicate insert into an
// ignored write instead of a silent double-edge.
var ErrEdgeExists = errors.New("edge already exists for item pair")

// ErrSamplingUnavailable is returned when the store has no random-sampling
// path configured. Callers must fall back to a manual per-variant fetch.
var ErrSamplingUnavailable = errors.New("random sampling unavailable")

// ItemRepository defines the interface for item reads and persistence.
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation.
type ItemRepository interface {
	// GetByID retrieves a single item.
	GetByID(ctx context.Context, userID string, itemType entities.ItemType, id valueobjects.ItemID) (*entities.Item, error)

	// FindByTypeWithEmbedding retrieves all of a user's items of one variant
	// that carry a non-empty embedding. Items without an embedding are
	// silently excluded.
	FindByTypeWithEmbedding(ctx context.Context, userID string, itemType entities.ItemType) ([]*entities.Item, error)

	// RandomSampleWithEmbeddings returns up to limit embedded items of any
	// variant, randomly sampled. Best-effort: returns ErrSamplingUnavailable
	// when the store has no sampling path.
	RandomSampleWithEmbeddings(ctx context.Context, userID string, limit int) ([]*entities.Item, error)

	// Save persists an item (create or update).
	Save(ctx context.Context, item *entities.Item) error

	// Delete removes an item.
	Delete(ctx context.Context, userID string, itemType entities.ItemType, id valueobjects.ItemID) error
}

// EdgeRepository defines the interface for edge persistence.
type EdgeRepository interface {
	// FindIncident retrieves all edges touching the item in either
	// direction, scoped to the user. Covers both user- and AI-created edges.
	FindIncident(ctx context.Context, userID string, itemID valueobjects.ItemID) ([]*entities.Edge, error)

	// Insert writes a new edge, conditioned on no edge existing for the
	// canonical pair key. Returns ErrEdgeExists on conflict.
	Insert(ctx context.Context, edge *entities.Edge) error

	// Upsert overwrites the edge stored under the canonical pair key.
	// Used to refresh the confidence of a surviving AI edge.
	Upsert(ctx context.Context, edge *entities.Edge) error

	// Delete removes the edge stored under the canonical pair key.
	Delete(ctx context.Context, userID string, pairKey string) error

	// DeleteBatch removes multiple edges by pair key.
	DeleteBatch(ctx context.Context, userID string, pairKeys []string) error
}

// EventPublisher defines the interface for publishing domain events.
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EmbeddingService supplies semantic vectors for text. Implementations must
// retry rate-limit and server errors with exponential backoff; other error
// classes propagate immediately.
type EmbeddingService interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch returns one vector per input text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// LanguageModel is a single-turn text generator. No contract on response
// shape beyond "text, possibly containing a JSON-like object".
type LanguageModel interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// ItemSummary is the minimal view of an item handed to bridge reasoning.
type ItemSummary struct {
	Type  entities.ItemType
	Title string
}

// BridgeResult is a generated explanation connecting two distant items.
type BridgeResult struct {
	Bridge   string `json:"bridge"`
	Metaphor string `json:"metaphor"`
}

// BridgeReasoner turns two item summaries into a connecting statement and a
// short metaphor. Isolates the one language-model call in the system.
type BridgeReasoner interface {
	Bridge(ctx context.Context, a, b ItemSummary) (BridgeResult, error)
}
