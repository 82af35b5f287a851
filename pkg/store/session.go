package store

import (
	"strings"
	"time"

	"tokinarc-sales-be/pkg/rag/state"
	"tokinarc-sales-be/pkg/utils"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	DefaultTitle   = "New Chat"
	titleMaxRunes  = 48
	maxStoredTurns = 200
)

// Turn is one chat message kept in the session transcript.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// OrderState holds the commercial facts collected so far.
type OrderState struct {
	SelectedSKU string `json:"selected_sku,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	AskedForm   bool   `json:"asked_form,omitempty"`
}

// Session is the serializable snapshot the chat service loads and saves
// once per turn.
type Session struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Turns     []Turn             `json:"turns"`
	Context   state.ContextState `json:"context"`
	Order     OrderState         `json:"order"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewSession starts an empty session.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddTurn appends a message and derives the title from the first user line.
func (s *Session) AddTurn(role, text string, at time.Time) {
	if s.Title == "" || s.Title == DefaultTitle {
		if role == RoleUser && len(s.userTurns()) == 0 {
			s.Title = titleFrom(text)
		}
	}
	s.Turns = append(s.Turns, Turn{Role: role, Text: text, At: at})
	if len(s.Turns) > maxStoredTurns {
		s.Turns = s.Turns[len(s.Turns)-maxStoredTurns:]
	}
	s.UpdatedAt = at
}

func (s *Session) userTurns() []Turn {
	var out []Turn
	for _, t := range s.Turns {
		if t.Role == RoleUser {
			out = append(out, t)
		}
	}
	return out
}

// Clone deep-copies the session so callers never share mutable state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	c.Context = s.Context.Clone()
	return &c
}

func titleFrom(text string) string {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(text), "\n", 2)[0])
	if line == "" {
		return DefaultTitle
	}
	return utils.TruncateRunes(line, titleMaxRunes)
}
