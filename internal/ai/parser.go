package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"adventure-server/internal/models"
)

// TurnContent is one decoded story turn as returned by the model.
type TurnContent struct {
	Text    string   `json:"text"`
	Art     string   `json:"art"`
	Choices []string `json:"choices"`
}

// ParseTurnContent decodes the raw completion into a TurnContent. Models often
// wrap JSON in markdown fences despite instructions, so fences are stripped
// first. Anything that does not match the contract exactly is rejected with
// models.ErrMalformedReply; the story state must never absorb a partial turn.
func ParseTurnContent(raw string) (*TurnContent, error) {
	cleaned := stripFences(strings.TrimSpace(raw))
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty reply", models.ErrMalformedReply)
	}

	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.DisallowUnknownFields()

	var content TurnContent
	if err := decoder.Decode(&content); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedReply, err)
	}
	// A trailing second JSON value is as malformed as a missing field.
	if decoder.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON object", models.ErrMalformedReply)
	}

	if strings.TrimSpace(content.Text) == "" {
		return nil, fmt.Errorf("%w: missing narrative text", models.ErrMalformedReply)
	}
	if len(content.Choices) != models.ChoiceCount {
		return nil, fmt.Errorf("%w: expected %d choices, got %d", models.ErrMalformedReply, models.ChoiceCount, len(content.Choices))
	}
	for i, choice := range content.Choices {
		if strings.TrimSpace(choice) == "" {
			return nil, fmt.Errorf("%w: choice %d is empty", models.ErrMalformedReply, i)
		}
	}

	return &content, nil
}

// stripFences removes a single surrounding markdown code fence, with or
// without a language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		firstLine := strings.TrimSpace(s[:idx])
		if len(firstLine) <= 8 && !strings.ContainsAny(firstLine, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
