package search

import (
	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/state"
)

// DefaultMaxImages caps how many products one reply shows.
const DefaultMaxImages = 4

// Engine resolves intents against the catalog index. It is stateless and
// safe for concurrent use.
type Engine struct {
	maxImages int
	logger    logger.ILogger
}

func NewEngine(maxImages int, logger logger.ILogger) *Engine {
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}
	return &Engine{maxImages: maxImages, logger: logger}
}

// Retrieve runs the exact-code path or the filtered path depending on the
// intent.
func (e *Engine) Retrieve(in intent.Intent, st state.ContextState, idx *catalog.Index) Result {
	var res Result
	switch in.Tag {
	case intent.CodeLookup:
		res = e.exact(in.SKUs, idx)
	case intent.QuantityFollowup, intent.OrderClose:
		switch {
		case len(in.SKUs) > 0:
			res = e.exact(in.SKUs, idx)
		case len(in.Parts) > 0:
			res = e.filtered(in, st, idx, false)
		default:
			res = Result{Outcome: OutcomeSkipped}
		}
	case intent.AccessoryBundleLookup, intent.SlotFillAmp, intent.SlotFillSystem, intent.SlotFillType:
		res = e.filtered(in, st, idx, true)
	case intent.ProductLookup, intent.List:
		res = e.filtered(in, st, idx, false)
	default:
		res = Result{Outcome: OutcomeSkipped}
	}

	e.logger.Info("RETRIEVAL", "Catalog retrieval done", map[string]interface{}{
		"intent":    in.Tag,
		"outcome":   res.Outcome,
		"total":     res.Total,
		"shown":     len(res.Items),
		"truncated": res.Truncated,
		"missing":   res.Missing,
		"unknown":   res.Unknown,
		"filters":   res.Filters.Fields(),
	})
	return res
}

// exact resolves codes one by one and never substitutes a near miss.
func (e *Engine) exact(codes []string, idx *catalog.Index) Result {
	res := Result{Filters: Filter{Codes: append([]string(nil), codes...)}}
	seen := make(map[string]bool)
	var found []catalog.Record
	for _, code := range codes {
		recs := idx.Lookup(code)
		if len(recs) == 0 {
			res.Unknown = append(res.Unknown, code)
			continue
		}
		for _, r := range recs {
			if !seen[r.SKU] {
				seen[r.SKU] = true
				found = append(found, r)
			}
		}
	}

	if len(found) == 1 {
		anchor := found[0]
		res.Anchor = &anchor
	}
	e.display(&res, found, 0)
	if len(found) == 0 {
		res.Outcome = OutcomeNoMatch
	} else {
		res.Outcome = OutcomeMatched
	}
	return res
}

// filtered applies parts, line attributes and anchor compatibility. When
// bundle is set, candidates spanning several amps or systems are not
// shown until the user picks one.
func (e *Engine) filtered(in intent.Intent, st state.ContextState, idx *catalog.Index, bundle bool) Result {
	f := Filter{
		Amp:       firstAmp(in.Amp, st.Amp),
		System:    firstSystem(in.System, st.System),
		HandRobot: firstHandRobot(in.HandRobot, st.HandRobot),
	}
	if f.HandRobot == catalog.HandRobotUnset {
		f.HandRobot = catalog.Hand
		f.HandDefaulted = true
	}

	var anchor *catalog.Record
	anchorSKU := in.AnchorSKU
	if anchorSKU == "" && bundle {
		anchorSKU = st.AnchorSKU
	}
	res := Result{}
	if bundle && anchorSKU != "" {
		recs := idx.Lookup(anchorSKU)
		if len(recs) != 1 {
			res.Filters = f
			res.Filters.AnchorSKU = anchorSKU
			res.Unknown = []string{anchorSKU}
			res.Outcome = OutcomeNoMatch
			return res
		}
		a := recs[0]
		anchor = &a
		res.Anchor = anchor
		f.AnchorSKU = a.SKU
		// a robot anchor settles the torch type; a hand anchor only confirms the default
		if a.HandRobot == catalog.Robot && f.HandDefaulted {
			f.HandRobot = catalog.Robot
			f.HandDefaulted = false
		}
	}

	for _, p := range in.Parts {
		if anchor != nil && p == anchor.Category {
			continue
		}
		f.Parts = append(f.Parts, p)
	}
	res.Filters = f
	if len(f.Parts) == 0 {
		res.Outcome = OutcomeNoMatch
		return res
	}

	all := idx.List()
	var candidates []catalog.Record
	for _, part := range f.Parts {
		for _, r := range all {
			if r.Category != part || !f.admits(r) {
				continue
			}
			if anchor != nil && !idx.Compatible(*anchor, r) {
				continue
			}
			candidates = append(candidates, r)
		}
	}

	if len(candidates) == 0 {
		res.Outcome = OutcomeNoMatch
		return res
	}

	if bundle {
		if f.Amp == catalog.AmpUnset && distinctAmps(candidates) > 1 {
			res.Missing = append(res.Missing, SlotAmp)
		}
		if f.System == catalog.SystemUnset && distinctSystems(candidates) > 1 {
			res.Missing = append(res.Missing, SlotSystem)
		}
		if len(res.Missing) > 0 {
			res.Total = len(candidates)
			res.Outcome = OutcomeNeedsDisambiguation
			return res
		}
	}

	limit := 0
	if in.RangeMax > 0 {
		limit = in.RangeMax
	}
	e.display(&res, candidates, limit)

	if in.WantsMany() && res.Total < max(in.RangeMin, 2) {
		res.Outcome = OutcomeSingleUnderConstrained
		return res
	}
	res.Outcome = OutcomeMatched
	return res
}

// display fills Items with at most maxImages (and limit, if set) records
// while Total keeps the true count.
func (e *Engine) display(res *Result, records []catalog.Record, limit int) {
	res.Total = len(records)
	capN := e.maxImages
	if limit > 0 && limit < capN {
		capN = limit
	}
	if len(records) > capN {
		res.Items = append([]catalog.Record(nil), records[:capN]...)
		res.Truncated = true
		return
	}
	res.Items = append([]catalog.Record(nil), records...)
}

func (f Filter) admits(r catalog.Record) bool {
	return matchOrUnset(string(f.Amp), string(r.Amp)) &&
		matchOrUnset(string(f.System), string(r.System)) &&
		matchOrUnset(string(f.HandRobot), string(r.HandRobot))
}

func matchOrUnset(want, have string) bool {
	return want == "" || have == "" || want == have
}

func distinctAmps(recs []catalog.Record) int {
	set := make(map[catalog.Amp]bool)
	for _, r := range recs {
		if r.Amp != catalog.AmpUnset {
			set[r.Amp] = true
		}
	}
	return len(set)
}

func distinctSystems(recs []catalog.Record) int {
	set := make(map[catalog.System]bool)
	for _, r := range recs {
		if r.System != catalog.SystemUnset {
			set[r.System] = true
		}
	}
	return len(set)
}

func firstAmp(vals ...catalog.Amp) catalog.Amp {
	for _, v := range vals {
		if v != catalog.AmpUnset {
			return v
		}
	}
	return catalog.AmpUnset
}

func firstSystem(vals ...catalog.System) catalog.System {
	for _, v := range vals {
		if v != catalog.SystemUnset {
			return v
		}
	}
	return catalog.SystemUnset
}

func firstHandRobot(vals ...catalog.HandRobot) catalog.HandRobot {
	for _, v := range vals {
		if v != catalog.HandRobotUnset {
			return v
		}
	}
	return catalog.HandRobotUnset
}
