package router

import (
	"strings"

	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/state"
	"tokinarc-sales-be/pkg/utils"
)

var sellingScopePhrases = []string{
	"ban gi",
	"ban cai gi",
	"ban nhung gi",
	"cong ty ban ban gi",
	"cong ty ban gi",
	"shop ban gi",
	"kinh doanh gi",
	"ben em co gi",
	"co nhung san pham gi",
}

var genericAccessoryPhrases = []string{"phu kien", "linh kien", "phu tung"}

// rule is one deterministic routing step. Rules run in slice order and the
// first match wins.
type rule struct {
	name  string
	match func(res state.Resolution) (intent.Intent, bool)
}

var rules = []rule{
	{"explicit_code", explicitCode},
	{"slot_fill", slotFill},
	{"quantity_followup", quantityFollowup},
	{"affirm_pending_bundle", affirmPendingBundle},
	{intent.RuleNegate, negatePending},
	{"bare_slot_without_pending", bareSlotWithoutPending},
	{"selling_scope", sellingScope},
	{"bundle_on_anchor", bundleOnAnchor},
	{"listing", listing},
	{"commercial", commercial},
	{"category_mention", categoryMention},
}

// baseIntent copies the slot values every rule shares.
func baseIntent(tag intent.Tag, res state.Resolution) intent.Intent {
	ex := res.Extracted
	return intent.Intent{
		Tag:        tag,
		AnchorSKU:  res.State.AnchorSKU,
		SKUs:       append([]string(nil), ex.Codes...),
		Quantity:   res.State.Quantity,
		Amp:        res.State.Amp,
		System:     res.State.System,
		HandRobot:  res.State.HandRobot,
		RangeMin:   ex.RangeMin,
		RangeMax:   ex.RangeMax,
		Commercial: ex.Close || ex.Price,
	}
}

func explicitCode(res state.Resolution) (intent.Intent, bool) {
	ex := res.Extracted
	if len(ex.Codes) == 0 {
		return intent.Intent{}, false
	}

	anchor := ex.Codes[0]
	anchorCat, hasAnchorCat := categoryBeforeCode(res.Normalized, anchor, ex.Mentions)
	var parts []catalog.Category
	for _, c := range ex.Categories {
		if hasAnchorCat && c == anchorCat {
			continue
		}
		parts = appendUnique(parts, c)
	}

	if len(parts) == 0 && !ex.Bundle {
		in := baseIntent(intent.CodeLookup, res)
		in.AnchorSKU = anchor
		return in, true
	}
	if len(parts) == 0 {
		parts = append(parts, catalog.BundleCategories...)
	}
	in := baseIntent(intent.AccessoryBundleLookup, res)
	in.AnchorSKU = anchor
	in.Parts = parts
	return in, true
}

// categoryBeforeCode finds the category phrase that directly precedes the
// code ("cach dien 004002", "cach dien ma 004002").
func categoryBeforeCode(normalized, code string, mentions []catalog.Mention) (catalog.Category, bool) {
	tokens := strings.Fields(normalized)
	pos := -1
	for i, tok := range tokens {
		if strings.EqualFold(tok, code) {
			pos = i
			break
		}
	}
	if pos < 0 {
		return "", false
	}
	for _, m := range mentions {
		if m.End <= pos && pos-m.End <= 1 {
			return m.Category, true
		}
	}
	return "", false
}

func slotFill(res state.Resolution) (intent.Intent, bool) {
	var tag intent.Tag
	switch res.Act {
	case state.ActFillAmp:
		tag = intent.SlotFillAmp
	case state.ActFillSystem:
		tag = intent.SlotFillSystem
	case state.ActFillType:
		tag = intent.SlotFillType
	default:
		return intent.Intent{}, false
	}
	in := baseIntent(tag, res)
	in.Parts = pendingOrDefaultParts(res.State)
	return in, true
}

func quantityFollowup(res state.Resolution) (intent.Intent, bool) {
	if res.Act != state.ActFillQuantity {
		return intent.Intent{}, false
	}
	in := baseIntent(intent.QuantityFollowup, res)
	in.Quantity = res.Extracted.Quantity
	if res.State.AnchorSKU != "" {
		in.SKUs = []string{res.State.AnchorSKU}
	}
	return in, true
}

func affirmPendingBundle(res state.Resolution) (intent.Intent, bool) {
	if res.Act != state.ActAffirm || !res.Prior.HasPending() {
		return intent.Intent{}, false
	}
	in := baseIntent(intent.AccessoryBundleLookup, res)
	in.Parts = pendingOrDefaultParts(res.State)
	return in, true
}

func negatePending(res state.Resolution) (intent.Intent, bool) {
	if res.Act != state.ActNegate {
		return intent.Intent{}, false
	}
	return baseIntent(intent.Fallback, res), true
}

func bareSlotWithoutPending(res state.Resolution) (intent.Intent, bool) {
	ex := res.Extracted
	if ex.HasProductCue() || ex.Price || ex.Listing || ex.Related || ex.Quantity > 0 {
		return intent.Intent{}, false
	}
	if ex.Amp == "" && ex.System == "" && ex.HandRobot == "" {
		return intent.Intent{}, false
	}
	if ex.Words > 4 && !(ex.Followup && ex.Words <= 6) {
		return intent.Intent{}, false
	}
	return baseIntent(intent.Clarify, res), true
}

func sellingScope(res state.Resolution) (intent.Intent, bool) {
	ex := res.Extracted
	if res.State.AnchorSKU != "" || ex.Amp != "" || ex.System != "" || ex.HasProductCue() {
		return intent.Intent{}, false
	}
	if utils.ContainsAnyPhrase(res.Normalized, sellingScopePhrases) ||
		(utils.ContainsAnyPhrase(res.Normalized, genericAccessoryPhrases) && !ex.Price && !ex.Listing) {
		return baseIntent(intent.AskSellingScope, res), true
	}
	return intent.Intent{}, false
}

func bundleOnAnchor(res state.Resolution) (intent.Intent, bool) {
	ex := res.Extracted
	if res.State.AnchorSKU == "" || ex.Listing {
		return intent.Intent{}, false
	}
	var parts []catalog.Category
	for _, c := range ex.Categories {
		if c != res.State.AnchorCategory {
			parts = appendUnique(parts, c)
		}
	}
	switch {
	case len(parts) > 0:
	case ex.Bundle || ex.Related:
		parts = append(parts, catalog.BundleCategories...)
	default:
		return intent.Intent{}, false
	}
	in := baseIntent(intent.AccessoryBundleLookup, res)
	in.Parts = parts
	return in, true
}

func listing(res state.Resolution) (intent.Intent, bool) {
	ex := res.Extracted
	if !ex.Listing && !(ex.RangeMax > 1 && len(ex.Categories) > 0) {
		return intent.Intent{}, false
	}
	in := baseIntent(intent.List, res)
	in.Parts = append([]catalog.Category(nil), ex.Categories...)
	if len(in.Parts) == 0 {
		in.Parts = pendingOrDefaultParts(res.State)
	}
	return in, true
}

func commercial(res state.Resolution) (intent.Intent, bool) {
	ex := res.Extracted
	if !ex.Close && !ex.Price {
		return intent.Intent{}, false
	}
	in := baseIntent(intent.OrderClose, res)
	in.Commercial = true
	in.Parts = append([]catalog.Category(nil), ex.Categories...)
	if res.State.AnchorSKU != "" && len(in.Parts) == 0 {
		in.SKUs = []string{res.State.AnchorSKU}
	}
	if ex.Quantity > 0 {
		in.Quantity = ex.Quantity
	}
	return in, true
}

func categoryMention(res state.Resolution) (intent.Intent, bool) {
	if len(res.Extracted.Categories) == 0 {
		return intent.Intent{}, false
	}
	in := baseIntent(intent.ProductLookup, res)
	in.Parts = append([]catalog.Category(nil), res.Extracted.Categories...)
	return in, true
}

func pendingOrDefaultParts(st state.ContextState) []catalog.Category {
	if len(st.PendingParts) > 0 {
		return append([]catalog.Category(nil), st.PendingParts...)
	}
	return append([]catalog.Category(nil), catalog.BundleCategories...)
}

func appendUnique(list []catalog.Category, c catalog.Category) []catalog.Category {
	for _, have := range list {
		if have == c {
			return list
		}
	}
	return append(list, c)
}
