package intent

import (
	"strings"

	"tokinarc-sales-be/pkg/catalog"
)

// Tag is the closed set of turn intents.
type Tag string

const (
	CodeLookup            Tag = "CODE_LOOKUP"
	ProductLookup         Tag = "PRODUCT_LOOKUP"
	AccessoryBundleLookup Tag = "ACCESSORY_BUNDLE_LOOKUP"
	List                  Tag = "LIST"
	AskSellingScope       Tag = "ASK_SELLING_SCOPE"
	SlotFillAmp           Tag = "SLOT_FILL_AMP"
	SlotFillSystem        Tag = "SLOT_FILL_SYSTEM"
	SlotFillType          Tag = "SLOT_FILL_TYPE"
	QuantityFollowup      Tag = "QUANTITY_FOLLOWUP"
	OrderClose            Tag = "ORDER_CLOSE"
	Clarify               Tag = "CLARIFY"
	Fallback              Tag = "FALLBACK"
)

// Tags lists every label the classifier may return.
var Tags = []Tag{
	CodeLookup, ProductLookup, AccessoryBundleLookup, List, AskSellingScope,
	SlotFillAmp, SlotFillSystem, SlotFillType, QuantityFollowup, OrderClose,
	Clarify, Fallback,
}

// ParseTag maps a free-form label to a Tag. Anything outside the set is
// Fallback.
func ParseTag(raw string) (Tag, bool) {
	clean := strings.ToUpper(strings.TrimSpace(raw))
	clean = strings.NewReplacer(" ", "_", "-", "_").Replace(clean)
	for _, t := range Tags {
		if string(t) == clean {
			return t, true
		}
	}
	return Fallback, false
}

// Technical reports whether the tag asks about products.
func (t Tag) Technical() bool {
	switch t {
	case CodeLookup, ProductLookup, AccessoryBundleLookup, List, SlotFillAmp, SlotFillSystem, SlotFillType:
		return true
	}
	return false
}

// SlotFill reports whether the tag answers a pending slot question.
func (t Tag) SlotFill() bool {
	return t == SlotFillAmp || t == SlotFillSystem || t == SlotFillType
}

// Source tells which tier produced the intent.
type Source string

const (
	SourceRule    Source = "RULE"
	SourceLLM     Source = "LLM"
	SourceDefault Source = "DEFAULT"
)

// RuleNegate names the rule that turns a "no" to a pending question into a
// fallback turn.
const RuleNegate = "negate_pending"

// Intent is created fresh for every turn.
type Intent struct {
	Tag       Tag                `json:"tag"`
	AnchorSKU string             `json:"anchor_sku,omitempty"`
	SKUs      []string           `json:"skus,omitempty"`
	Parts     []catalog.Category `json:"parts,omitempty"`
	Quantity  int                `json:"quantity,omitempty"`
	Amp       catalog.Amp        `json:"amp,omitempty"`
	System    catalog.System     `json:"system,omitempty"`
	HandRobot catalog.HandRobot  `json:"hand_robot,omitempty"`
	RangeMin  int                `json:"range_min,omitempty"`
	RangeMax  int                `json:"range_max,omitempty"`
	// Commercial is set only for explicit buy / quote / order phrasing.
	Commercial bool   `json:"commercial,omitempty"`
	Rule       string `json:"rule,omitempty"`
}

// WantsMany reports whether the user asked for more than one option.
func (i Intent) WantsMany() bool {
	return i.RangeMin > 1 || i.RangeMax > 1
}
