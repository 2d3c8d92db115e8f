package entities

import (
	"time"

	"polymath-backend/domain/core/valueobjects"
	pkgerrors "polymath-backend/pkg/errors"
)

// EdgeCreator records who established a relationship.
type EdgeCreator string

const (
	// EdgeCreatorUser marks edges a user created explicitly. They are
	// permanent until the user removes them; recomputation never touches them.
	EdgeCreatorUser EdgeCreator = "user"

	// EdgeCreatorAI marks edges produced by connection recomputation. The
	// source item's outbound AI edge set is fully replaced on every recompute.
	EdgeCreatorAI EdgeCreator = "ai"
)

// Edge is a stored relationship between two items owned by the same user.
// It is directed as stored but denotes an undirected relationship: for a
// given user and unordered item pair at most one edge may exist, regardless
// of direction or creator. That invariant is enforced through the canonical
// pair key, which orders the two endpoint ids lexicographically.
type Edge struct {
	UserID     string
	SourceType ItemType
	SourceID   valueobjects.ItemID
	TargetType ItemType
	TargetID   valueobjects.ItemID
	CreatedBy  EdgeCreator
	Reasoning  string
	Confidence float64
	CreatedAt  time.Time
}

// CanonicalPairKey returns the direction-independent key for an item pair.
func CanonicalPairKey(a, b valueobjects.ItemID) string {
	if a.String() < b.String() {
		return a.String() + "#" + b.String()
	}
	return b.String() + "#" + a.String()
}

// NewAIEdge creates an AI-generated edge with a similarity-derived confidence.
func NewAIEdge(
	userID string,
	sourceType ItemType, sourceID valueobjects.ItemID,
	targetType ItemType, targetID valueobjects.ItemID,
	reasoning string,
	confidence float64,
) (*Edge, error) {
	return newEdge(userID, sourceType, sourceID, targetType, targetID, EdgeCreatorAI, reasoning, confidence)
}

// NewUserEdge creates an explicit user edge.
func NewUserEdge(
	userID string,
	sourceType ItemType, sourceID valueobjects.ItemID,
	targetType ItemType, targetID valueobjects.ItemID,
	reasoning string,
) (*Edge, error) {
	return newEdge(userID, sourceType, sourceID, targetType, targetID, EdgeCreatorUser, reasoning, 1.0)
}

func newEdge(
	userID string,
	sourceType ItemType, sourceID valueobjects.ItemID,
	targetType ItemType, targetID valueobjects.ItemID,
	createdBy EdgeCreator,
	reasoning string,
	confidence float64,
) (*Edge, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if sourceID.IsZero() || targetID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	if sourceID.Equals(targetID) {
		return nil, pkgerrors.NewValidationError("edge cannot connect an item to itself")
	}
	if confidence < 0 || confidence > 1 {
		return nil, pkgerrors.NewValidationError("confidence must be in [0,1]")
	}

	return &Edge{
		UserID:     userID,
		SourceType: sourceType,
		SourceID:   sourceID,
		TargetType: targetType,
		TargetID:   targetID,
		CreatedBy:  createdBy,
		Reasoning:  reasoning,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}, nil
}

// PairKey returns the canonical key of the edge's unordered endpoint pair.
func (e *Edge) PairKey() string {
	return CanonicalPairKey(e.SourceID, e.TargetID)
}

// Touches reports whether the edge is incident to the given item.
func (e *Edge) Touches(id valueobjects.ItemID) bool {
	return e.SourceID.Equals(id) || e.TargetID.Equals(id)
}

// OtherEnd returns the endpoint opposite to the given item id.
func (e *Edge) OtherEnd(id valueobjects.ItemID) valueobjects.ItemID {
	if e.SourceID.Equals(id) {
		return e.TargetID
	}
	return e.SourceID
}

// IsOutboundAI reports whether the edge is an AI edge owned by the given
// source item. Inbound AI edges created by other items' recomputations do
// not count: each item manages only its own outbound set.
func (e *Edge) IsOutboundAI(sourceID valueobjects.ItemID) bool {
	return e.CreatedBy == EdgeCreatorAI && e.SourceID.Equals(sourceID)
}
