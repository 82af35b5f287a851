package search

import (
	"fmt"

	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/rag"
)

// Outcome summarizes what retrieval found.
type Outcome string

const (
	OutcomeMatched                Outcome = "MATCHED"
	OutcomeSingleUnderConstrained Outcome = "SINGLE_MATCH_UNDER_CONSTRAINED"
	OutcomeNeedsDisambiguation    Outcome = "NEEDS_DISAMBIGUATION"
	OutcomeNoMatch                Outcome = "NO_MATCH"
	// OutcomeSkipped is used for intents that never touch the catalog.
	OutcomeSkipped Outcome = "SKIPPED"
)

// Slot names reported in Result.Missing.
const (
	SlotAmp       = "amp"
	SlotSystem    = "system"
	SlotHandRobot = "hand_robot"
)

// Filter is the set of constraints a candidate record must pass.
type Filter struct {
	Parts     []catalog.Category `json:"parts,omitempty"`
	Codes     []string           `json:"codes,omitempty"`
	Amp       catalog.Amp        `json:"amp,omitempty"`
	System    catalog.System     `json:"system,omitempty"`
	HandRobot catalog.HandRobot  `json:"hand_robot,omitempty"`
	// HandDefaulted is set when HandRobot was not given and hand torches
	// were assumed.
	HandDefaulted bool   `json:"hand_defaulted,omitempty"`
	AnchorSKU     string `json:"anchor_sku,omitempty"`
}

// Fields flattens the filter for logs and the filters_used payload.
func (f Filter) Fields() map[string]interface{} {
	return map[string]interface{}{
		"parts":          f.Parts,
		"codes":          f.Codes,
		"amp":            f.Amp,
		"system":         f.System,
		"hand_robot":     f.HandRobot,
		"hand_defaulted": f.HandDefaulted,
		"anchor_sku":     f.AnchorSKU,
	}
}

// Result is what the catalog retrieval hands to the guard and generator.
type Result struct {
	Items     []catalog.Record `json:"items"`
	Total     int              `json:"total"`
	Truncated bool             `json:"truncated"`
	Filters   Filter           `json:"filters"`
	Outcome   Outcome          `json:"outcome"`
	Missing   []string         `json:"missing,omitempty"`
	Unknown   []string         `json:"unknown,omitempty"`
	// Anchor is the record an explicit code resolved to, if exactly one.
	Anchor *catalog.Record `json:"anchor,omitempty"`
}

// HasItems reports whether there is anything to show.
func (r Result) HasItems() bool { return len(r.Items) > 0 }

// Err maps the outcome to the pipeline's error kinds. Matched and skipped
// results return nil.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeNoMatch:
		if len(r.Unknown) > 0 {
			return fmt.Errorf("unknown code(s) %v: %w", r.Unknown, rag.ErrNoMatch)
		}
		return rag.ErrNoMatch
	case OutcomeSingleUnderConstrained:
		return fmt.Errorf("%d match(es): %w", r.Total, rag.ErrUnderConstrained)
	case OutcomeNeedsDisambiguation:
		return fmt.Errorf("missing %v: %w", r.Missing, rag.ErrAmbiguousSlot)
	}
	return nil
}
