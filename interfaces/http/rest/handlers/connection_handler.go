package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"polymath-backend/application/services"
	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
	"polymath-backend/pkg/auth"
	"polymath-backend/pkg/common"
	"polymath-backend/pkg/utils"
)

// ConnectionHandler serves connection reads and explicit recomputation.
type ConnectionHandler struct {
	edges       *services.EdgeService
	connections *services.ConnectionService
	logger      *zap.Logger
}

// NewConnectionHandler creates a new connection handler.
func NewConnectionHandler(
	edges *services.EdgeService,
	connections *services.ConnectionService,
	logger *zap.Logger,
) *ConnectionHandler {
	return &ConnectionHandler{
		edges:       edges,
		connections: connections,
		logger:      logger,
	}
}

// ListConnections handles GET /items/{itemType}/{itemID}/connections.
func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	itemType, itemID, ok := itemParams(w, r)
	if !ok {
		return
	}

	edges, err := h.edges.ListConnections(r.Context(), user.UserID, itemType, itemID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]EdgeResponse, 0, len(edges))
	for _, edge := range edges {
		out = append(out, toEdgeResponse(edge))
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"connections": out,
		"count":       len(out),
	})
}

// Recompute handles POST /items/{itemType}/{itemID}/connections/recompute.
func (h *ConnectionHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	itemType, itemID, ok := itemParams(w, r)
	if !ok {
		return
	}

	if err := h.connections.RecomputeForItem(r.Context(), user.UserID, itemType, itemID); err != nil {
		respondServiceError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status":       "recomputed",
		"recomputedAt": utils.NowRFC3339(),
	})
}

// itemParams parses the item type and id path parameters, responding with 400
// on invalid input.
func itemParams(w http.ResponseWriter, r *http.Request) (entities.ItemType, valueobjects.ItemID, bool) {
	itemType, err := entities.ParseItemType(chi.URLParam(r, "itemType"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_ITEM_TYPE", "Unknown item type")
		return "", valueobjects.ItemID{}, false
	}

	itemID, err := valueobjects.NewItemIDFromString(chi.URLParam(r, "itemID"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_ITEM_ID", "Item id must be a UUID")
		return "", valueobjects.ItemID{}, false
	}

	return itemType, itemID, true
}
