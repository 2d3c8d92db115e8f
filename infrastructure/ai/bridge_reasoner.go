package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"polymath-backend/application/ports"
)

const bridgeSystemPrompt = "You are a creative-thinking assistant. " +
	"You connect seemingly unrelated ideas with short, insightful bridges."

// BridgeReasoner asks the language model for a connecting statement and a
// short metaphor for two item summaries. The model is not guaranteed to
// return clean structured output, so the first well-formed JSON object is
// extracted from whatever text comes back.
type BridgeReasoner struct {
	llm    ports.LanguageModel
	logger *zap.Logger
}

// NewBridgeReasoner creates a bridge reasoner over the given language model.
func NewBridgeReasoner(llm ports.LanguageModel, logger *zap.Logger) *BridgeReasoner {
	return &BridgeReasoner{llm: llm, logger: logger}
}

// Bridge generates the connecting text for two items. Any generation or
// extraction failure is returned as an error; the caller decides whether to
// surface or swallow it.
func (r *BridgeReasoner) Bridge(ctx context.Context, a, b ports.ItemSummary) (ports.BridgeResult, error) {
	prompt := fmt.Sprintf(
		`Here are two items from a personal knowledge base:

1. %s: "%s"
2. %s: "%s"

Write a short statement (one or two sentences) connecting these two items in a
surprising but plausible way, and a metaphor of 3-5 words capturing the
connection. Respond with a JSON object of the form
{"bridge": "...", "metaphor": "..."}.`,
		a.Type, a.Title, b.Type, b.Title,
	)

	text, err := r.llm.GenerateText(ctx, bridgeSystemPrompt, prompt)
	if err != nil {
		return ports.BridgeResult{}, fmt.Errorf("bridge generation: %w", err)
	}

	result, err := extractBridgeResult(text)
	if err != nil {
		r.logger.Debug("Unparseable bridge response", zap.String("response", text))
		return ports.BridgeResult{}, err
	}
	return result, nil
}

// extractBridgeResult pulls the first well-formed JSON object out of the
// model response, tolerating code fences and surrounding prose.
func extractBridgeResult(text string) (ports.BridgeResult, error) {
	for start := 0; ; {
		open := strings.IndexByte(text[start:], '{')
		if open < 0 {
			break
		}
		open += start

		candidate, ok := balancedObject(text[open:])
		if !ok {
			break
		}

		var result ports.BridgeResult
		if err := json.Unmarshal([]byte(candidate), &result); err == nil &&
			strings.TrimSpace(result.Bridge) != "" {
			result.Bridge = strings.TrimSpace(result.Bridge)
			result.Metaphor = strings.TrimSpace(result.Metaphor)
			return result, nil
		}

		start = open + 1
	}

	return ports.BridgeResult{}, errors.New("no bridge object found in model response")
}

// balancedObject returns the shortest prefix of s that forms a balanced
// brace-delimited object, ignoring braces inside JSON strings.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
