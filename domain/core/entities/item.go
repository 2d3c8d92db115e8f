package entities

import (
	"time"

	"polymath-backend/domain/core/valueobjects"
	pkgerrors "polymath-backend/pkg/errors"
)

// ItemType identifies the content variant an item belongs to.
// Each variant is a logically distinct collection in the store.
type ItemType string

const (
	ItemTypeProject   ItemType = "project"
	ItemTypeThought   ItemType = "thought"
	ItemTypeArticle   ItemType = "article"
	ItemTypeListEntry ItemType = "list_entry"
)

// AllItemTypes returns every content variant in canonical order.
// The order is load-bearing for similarity tie-breaks: candidates are
// discovered variant by variant in this order and ties keep discovery order.
func AllItemTypes() []ItemType {
	return []ItemType{ItemTypeProject, ItemTypeThought, ItemTypeArticle, ItemTypeListEntry}
}

// OtherItemTypes returns every variant except the given one, in canonical order.
func OtherItemTypes(t ItemType) []ItemType {
	out := make([]ItemType, 0, 3)
	for _, it := range AllItemTypes() {
		if it != t {
			out = append(out, it)
		}
	}
	return out
}

// ParseItemType validates a raw variant tag.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemTypeProject, ItemTypeThought, ItemTypeArticle, ItemTypeListEntry:
		return ItemType(s), nil
	}
	return "", pkgerrors.NewValidationError("unknown item type: " + s)
}

// Item is a user-owned content unit (project, thought, article or list entry).
// Items are created and enriched by the upstream capture flows; from the
// connection engine's perspective they are read-only apart from the edges
// attached to them.
type Item struct {
	id        valueobjects.ItemID
	userID    string
	itemType  ItemType
	title     string
	embedding valueobjects.Embedding
	createdAt time.Time
	updatedAt time.Time
}

// NewItem creates a new item with business rule validation.
func NewItem(userID string, itemType ItemType, title string, embedding valueobjects.Embedding) (*Item, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if title == "" {
		return nil, pkgerrors.NewValidationError("title cannot be empty")
	}
	if _, err := ParseItemType(string(itemType)); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Item{
		id:        valueobjects.NewItemID(),
		userID:    userID,
		itemType:  itemType,
		title:     title,
		embedding: embedding,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructItem rebuilds an item from repository data with preserved timestamps.
func ReconstructItem(
	id valueobjects.ItemID,
	userID string,
	itemType ItemType,
	title string,
	embedding valueobjects.Embedding,
	createdAt, updatedAt time.Time,
) (*Item, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("item ID cannot be empty")
	}

	return &Item{
		id:        id,
		userID:    userID,
		itemType:  itemType,
		title:     title,
		embedding: embedding,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the item's unique identifier.
func (i *Item) ID() valueobjects.ItemID {
	return i.id
}

// UserID returns the owner's ID.
func (i *Item) UserID() string {
	return i.userID
}

// Type returns the content variant tag.
func (i *Item) Type() ItemType {
	return i.itemType
}

// Title returns the display title.
func (i *Item) Title() string {
	return i.title
}

// Embedding returns the item's semantic vector; empty when the upstream
// enrichment has not produced one yet.
func (i *Item) Embedding() valueobjects.Embedding {
	return i.embedding
}

// HasEmbedding reports whether the item can participate in similarity search.
func (i *Item) HasEmbedding() bool {
	return !i.embedding.IsEmpty()
}

// CreatedAt returns the creation timestamp.
func (i *Item) CreatedAt() time.Time {
	return i.createdAt
}

// UpdatedAt returns the last-modified timestamp.
func (i *Item) UpdatedAt() time.Time {
	return i.updatedAt
}
