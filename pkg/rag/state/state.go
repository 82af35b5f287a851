package state

import (
	"fmt"
	"time"

	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/rag"
)

// DefaultTTL is how long short memory survives without a refresh.
const DefaultTTL = 15 * time.Minute

// PendingAction is the question the assistant is waiting on.
type PendingAction string

const (
	PendingNone          PendingAction = ""
	PendingFillAmp       PendingAction = "FILL_AMP"
	PendingFillSystem    PendingAction = "FILL_SYSTEM"
	PendingFillHandRobot PendingAction = "FILL_HAND_ROBOT"
	PendingFillQuantity  PendingAction = "FILL_QUANTITY"
	PendingConfirmBundle PendingAction = "CONFIRM_BUNDLE"
)

// ContextState is the per-session short memory. Treat it as a value: every
// transition returns a new ContextState.
type ContextState struct {
	AnchorSKU      string             `json:"anchor_sku,omitempty"`
	AnchorCategory catalog.Category   `json:"anchor_category,omitempty"`
	Amp            catalog.Amp        `json:"amp,omitempty"`
	System         catalog.System     `json:"system,omitempty"`
	HandRobot      catalog.HandRobot  `json:"hand_robot,omitempty"`
	PendingParts   []catalog.Category `json:"pending_parts,omitempty"`
	PendingAction  PendingAction      `json:"pending_action,omitempty"`
	Quantity       int                `json:"quantity,omitempty"`
	LastIntent     string             `json:"last_intent,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at,omitempty"`
}

// Clone returns a copy that shares no slices with s.
func (s ContextState) Clone() ContextState {
	c := s
	if s.PendingParts != nil {
		c.PendingParts = append([]catalog.Category(nil), s.PendingParts...)
	}
	return c
}

// Expired reports whether the state was last written more than ttl ago.
// A never-written state is not expired, it is simply empty.
func (s ContextState) Expired(now time.Time, ttl time.Duration) bool {
	if s.UpdatedAt.IsZero() || ttl <= 0 {
		return false
	}
	return now.Sub(s.UpdatedAt) > ttl
}

// Fresh returns a wrapped rag.ErrStaleContext when the state has expired.
func (s ContextState) Fresh(now time.Time, ttl time.Duration) error {
	if s.Expired(now, ttl) {
		return fmt.Errorf("context idle for %s: %w", now.Sub(s.UpdatedAt).Round(time.Second), rag.ErrStaleContext)
	}
	return nil
}

// Effective is the state as seen at now. Expired state reads as empty.
func (s ContextState) Effective(now time.Time, ttl time.Duration) ContextState {
	if s.Expired(now, ttl) {
		return ContextState{}
	}
	return s.Clone()
}

// IsEmpty reports whether no slot carries a value.
func (s ContextState) IsEmpty() bool {
	return s.AnchorSKU == "" && s.AnchorCategory == "" && s.Amp == "" && s.System == "" &&
		s.HandRobot == "" && len(s.PendingParts) == 0 && s.PendingAction == PendingNone &&
		s.Quantity == 0 && s.LastIntent == ""
}

// HasPending reports whether a question or a bundle is still open.
func (s ContextState) HasPending() bool {
	return s.PendingAction != PendingNone || len(s.PendingParts) > 0
}

// Fields flattens the state for structured logs.
func (s ContextState) Fields() map[string]interface{} {
	return map[string]interface{}{
		"anchor_sku":     s.AnchorSKU,
		"anchor_cat":     s.AnchorCategory,
		"amp":            s.Amp,
		"system":         s.System,
		"hand_robot":     s.HandRobot,
		"pending_parts":  s.PendingParts,
		"pending_action": s.PendingAction,
		"quantity":       s.Quantity,
		"last_intent":    s.LastIntent,
	}
}
