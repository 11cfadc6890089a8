package models

// CredentialRequest carries the player's completion API credential.
type CredentialRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// ChoiceRequest selects one of the currently offered options by index.
type ChoiceRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SessionResponse is returned when a player session is established.
type SessionResponse struct {
	PlayerID string `json:"playerId"`
}

// AdventureResponse is the rendered state snapshot for the page.
type AdventureResponse struct {
	Authenticated bool      `json:"authenticated"`
	Segments      []Segment `json:"segments"`
	Choices       []string  `json:"choices"`
	Error         string    `json:"error,omitempty"`
	CanRetry      bool      `json:"canRetry"`
}

// NewAdventureResponse builds the snapshot DTO from the stored document.
func NewAdventureResponse(adv *Adventure, authenticated bool) AdventureResponse {
	resp := AdventureResponse{
		Authenticated: authenticated,
		Segments:      []Segment{},
		Choices:       []string{},
	}
	if adv == nil {
		return resp
	}
	if adv.Segments != nil {
		resp.Segments = adv.Segments
	}
	if adv.Choices != nil {
		resp.Choices = adv.Choices
	}
	resp.Error = adv.LastError
	resp.CanRetry = adv.LastError != "" && adv.LastAction != nil
	return resp
}
