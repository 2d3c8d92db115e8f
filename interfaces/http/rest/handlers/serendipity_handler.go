package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"polymath-backend/application/services"
	"polymath-backend/pkg/auth"
	"polymath-backend/pkg/common"
)

// SerendipityHandler serves structural-hole suggestions.
type SerendipityHandler struct {
	serendipity *services.SerendipityService
	logger      *zap.Logger
}

// NewSerendipityHandler creates a new serendipity handler.
func NewSerendipityHandler(serendipity *services.SerendipityService, logger *zap.Logger) *SerendipityHandler {
	return &SerendipityHandler{serendipity: serendipity, logger: logger}
}

type suggestionItem struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SuggestionResponse is the wire form of a structural-hole suggestion.
type SuggestionResponse struct {
	Source   suggestionItem `json:"source"`
	Target   suggestionItem `json:"target"`
	Bridge   string         `json:"bridge"`
	Metaphor string         `json:"metaphor"`
}

// Suggest handles POST /serendipity. A corpus too small to bridge, or a
// reasoning failure, yields 204 rather than an error: no suggestion is a
// normal outcome.
func (h *SerendipityHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	suggestion, err := h.serendipity.Find(r.Context(), user.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if suggestion == nil {
		common.RespondNoContent(w)
		return
	}

	common.RespondJSON(w, http.StatusOK, SuggestionResponse{
		Source: suggestionItem{
			Type:  string(suggestion.Source.Type()),
			ID:    suggestion.Source.ID().String(),
			Title: suggestion.Source.Title(),
		},
		Target: suggestionItem{
			Type:  string(suggestion.Target.Type()),
			ID:    suggestion.Target.ID().String(),
			Title: suggestion.Target.Title(),
		},
		Bridge:   suggestion.Bridge,
		Metaphor: suggestion.Metaphor,
	})
}
