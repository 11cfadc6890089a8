package models

import "time"

// ChoiceCount is the number of options offered to the player after every turn.
const ChoiceCount = 2

// Segment is one unit of story output: a paragraph of narrative text plus the
// ASCII art illustrating it. Segments are append-only and ordered.
type Segment struct {
	Text string `json:"text"`
	Art  string `json:"art"`
}

// Action kinds recorded on an adventure for the retry affordance.
const (
	ActionBegin    = "begin"
	ActionContinue = "continue"
)

// PendingAction is the last attempted turn. Retry replays exactly this action,
// whether it succeeded or failed.
type PendingAction struct {
	Kind        string `json:"kind"`
	ChoiceIndex int    `json:"choiceIndex,omitempty"`
}

// Adventure is the full per-player story document.
type Adventure struct {
	Segments   []Segment      `json:"segments"`
	Choices    []string       `json:"choices"`
	LastError  string         `json:"lastError,omitempty"`
	LastAction *PendingAction `json:"lastAction,omitempty"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// NewAdventure returns an empty adventure document.
func NewAdventure() *Adventure {
	return &Adventure{
		Segments: make([]Segment, 0),
		Choices:  make([]string, 0),
	}
}

// StoryTexts returns the narrative texts of all segments in chronological
// order. This is the context embedded into the continuation prompt.
func (a *Adventure) StoryTexts() []string {
	texts := make([]string, 0, len(a.Segments))
	for _, seg := range a.Segments {
		texts = append(texts, seg.Text)
	}
	return texts
}
