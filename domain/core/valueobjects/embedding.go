package valueobjects

import (
	"encoding/json"
	"errors"
	"strings"
)

// Embedding is a fixed-dimension semantic vector produced by the upstream
// embedding model. All item variants share one embedding space.
//
// Depending on where a vector came from it may arrive as a native numeric
// array or as a JSON-serialized text column; ParseEmbedding normalizes both.
type Embedding []float64

// ParseEmbedding decodes an embedding from its serialized text form,
// e.g. "[0.12, -0.03, ...]".
func ParseEmbedding(raw string) (Embedding, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("embedding text is empty")
	}

	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, errors.New("embedding text is not a JSON number array")
	}
	return Embedding(vec), nil
}

// IsEmpty reports whether the embedding carries no components.
// Items without an embedding are excluded from similarity computations,
// never treated as an error.
func (e Embedding) IsEmpty() bool {
	return len(e) == 0
}

// Dim returns the embedding dimension.
func (e Embedding) Dim() int {
	return len(e)
}

// String returns the serialized text form of the embedding.
func (e Embedding) String() string {
	b, err := json.Marshal([]float64(e))
	if err != nil {
		return "[]"
	}
	return string(b)
}
