package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginStory(t *testing.T) {
	p := BeginStory()

	require.NotEmpty(t, p)
	// The JSON contract must be spelled out for the model.
	assert.Contains(t, p, `"text"`)
	assert.Contains(t, p, `"art"`)
	assert.Contains(t, p, `"choices"`)
	assert.Contains(t, p, "exactly two strings")

	// Pure function: identical output on every call.
	assert.Equal(t, p, BeginStory())
}

func TestContinue(t *testing.T) {
	story := []string{
		"You wake up in a dark cave.",
		"A torch flickers in the distance.",
	}
	p := Continue(story, "Walk toward the torch")

	// All prior texts must be embedded, in chronological order.
	first := strings.Index(p, story[0])
	second := strings.Index(p, story[1])
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second, "story texts must appear in order")

	assert.Contains(t, p, "The player chose: Walk toward the torch")
	assert.Contains(t, p, `"choices"`)
}

func TestContinue_EmptyStory(t *testing.T) {
	p := Continue(nil, "Look around")

	assert.Contains(t, p, "The story so far:")
	assert.Contains(t, p, "The player chose: Look around")
}
