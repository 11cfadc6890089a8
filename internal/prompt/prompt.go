// Package prompt builds the completion prompts. Builders are pure functions
// of the story so far and the selected choice, so they can be tested without
// any network or UI.
package prompt

import "strings"

// responseFormat is the JSON contract every turn must satisfy.
const responseFormat = `Respond with a single JSON object and nothing else. The object must have exactly these keys:
"text": one paragraph of narrative text,
"art": a multi-line ASCII art illustration of the scene,
"choices": an array of exactly two strings, each one possible action for the player.`

// beginInstruction is the fixed prompt that opens a new adventure.
const beginInstruction = `You are the narrator of an interactive text adventure. Begin a brand new adventure in a setting of your choosing.

` + responseFormat

// BeginStory returns the fixed instruction prompt for a new adventure.
func BeginStory() string {
	return beginInstruction
}

// Continue builds the continuation prompt from the chronological story texts
// and the option the player selected.
func Continue(storySoFar []string, choice string) string {
	var sb strings.Builder
	sb.WriteString("You are the narrator of an interactive text adventure. Continue the story below.\n\n")
	sb.WriteString("The story so far:\n")
	for _, text := range storySoFar {
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	sb.WriteString("\nThe player chose: ")
	sb.WriteString(choice)
	sb.WriteString("\n\n")
	sb.WriteString(responseFormat)
	return sb.String()
}
