package state

import (
	"time"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/utils"
)

// DialogueAct classifies how a message relates to the open conversation.
type DialogueAct string

const (
	ActNewIntent    DialogueAct = "NEW_INTENT"
	ActFillAmp      DialogueAct = "SLOT_FILL_AMP"
	ActFillSystem   DialogueAct = "SLOT_FILL_SYSTEM"
	ActFillType     DialogueAct = "SLOT_FILL_TYPE"
	ActFillQuantity DialogueAct = "SLOT_FILL_QUANTITY"
	ActAffirm       DialogueAct = "AFFIRM"
	ActNegate       DialogueAct = "NEGATE"
)

var (
	affirmTerms = []string{"muon", "ok", "oke", "okay", "dong y", "nhat tri", "chap nhan", "co", "duoc", "yes", "vang", "uh"}
	negateTerms = []string{"khong", "khong can", "khong muon", "de sau", "thoi", "huy", "cancel", "ko", "k"}
)

// Resolution is the outcome of merging one message into short memory.
type Resolution struct {
	State      ContextState `json:"state"`
	Prior      ContextState `json:"prior"`
	Normalized string       `json:"normalized"`
	Act        DialogueAct  `json:"act"`
	Expired    bool         `json:"expired"`
	Extracted  Extracted    `json:"extracted"`
}

// Empty reports whether the message had no content after normalization.
func (r Resolution) Empty() bool { return r.Normalized == "" }

// Resolver is the only writer of ContextState.
type Resolver struct {
	ttl    time.Duration
	logger logger.ILogger
}

func NewResolver(ttl time.Duration, log logger.ILogger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{ttl: ttl, logger: log}
}

// TTL returns the configured short-memory lifetime.
func (r *Resolver) TTL() time.Duration { return r.ttl }

// Resolve merges text into the prior state as seen at now.
func (r *Resolver) Resolve(prior ContextState, text string, now time.Time) Resolution {
	normalized := utils.NormalizeText(text)
	if normalized == "" {
		return Resolution{State: prior.Clone(), Prior: prior.Clone(), Act: ActNewIntent}
	}

	res := Resolution{Normalized: normalized}
	if err := prior.Fresh(now, r.ttl); err != nil {
		res.Expired = true
		r.logger.Info("RESOLVER", "Short memory reset", map[string]interface{}{
			"reason":     err.Error(),
			"updated_at": prior.UpdatedAt,
		})
	}
	base := prior.Effective(now, r.ttl)
	res.Prior = base.Clone()

	ex := Extract(normalized)
	res.Extracted = ex
	res.Act = classify(normalized, ex, base)
	res.State = merge(base, ex, res.Act, now)

	r.logger.Debug("RESOLVER", "Resolved turn", map[string]interface{}{
		"act":     res.Act,
		"expired": res.Expired,
		"state":   res.State.Fields(),
	})
	return res
}

func classify(normalized string, ex Extracted, base ContextState) DialogueAct {
	bare := !ex.HasProductCue() && !ex.Price && !ex.Listing && !ex.Related
	short := ex.Words <= 4 || (ex.Followup && ex.Words <= 6)
	pending := base.HasPending()

	switch {
	case bare && short && ex.Quantity == 0 && ex.Amp != "" && pending:
		return ActFillAmp
	case bare && short && ex.Quantity == 0 && ex.System != "" && pending:
		return ActFillSystem
	case bare && short && ex.Quantity == 0 && ex.HandRobot != "" && pending:
		return ActFillType
	case !ex.HasProductCue() && !ex.Listing && ex.Quantity > 0 && ex.Words <= 8 &&
		(base.PendingAction == PendingFillQuantity || base.AnchorSKU != ""):
		return ActFillQuantity
	}

	if base.PendingAction == PendingNone || !bare || ex.Words > 4 || ex.Quantity > 0 || ex.Amp != "" {
		return ActNewIntent
	}
	// negation first: "khong muon" also contains "muon"
	if utils.ContainsAnyPhrase(normalized, negateTerms) {
		return ActNegate
	}
	if utils.ContainsAnyPhrase(normalized, affirmTerms) {
		return ActAffirm
	}
	return ActNewIntent
}

func merge(base ContextState, ex Extracted, act DialogueAct, now time.Time) ContextState {
	next := base.Clone()
	if ex.Amp != "" {
		next.Amp = ex.Amp
	}
	if ex.System != "" {
		next.System = ex.System
	}
	if ex.HandRobot != "" {
		next.HandRobot = ex.HandRobot
	}
	if ex.Quantity > 0 {
		next.Quantity = ex.Quantity
	}

	switch act {
	case ActNegate:
		next.PendingAction = PendingNone
		next.PendingParts = nil
	case ActNewIntent:
		if ex.HasProductCue() {
			next.PendingAction = PendingNone
			next.PendingParts = nil
		}
		if len(ex.Codes) > 0 && ex.Codes[0] != next.AnchorSKU {
			next.AnchorSKU = ex.Codes[0]
			next.AnchorCategory = ""
		}
	}
	next.UpdatedAt = now
	return next
}

// Settlement is what the turn learned after retrieval.
type Settlement struct {
	Intent string
	// Parts are the component categories the turn asked for.
	Parts []catalog.Category
	// Ask is the slot question the reply ends with, if any.
	Ask PendingAction
	// Anchor is set when the turn resolved exactly one record by code.
	Anchor *catalog.Record
	// Fulfilled means the open question was answered with products.
	Fulfilled bool
}

// Settle applies the post-retrieval transition and stamps the state.
func (r *Resolver) Settle(st ContextState, s Settlement, now time.Time) ContextState {
	next := st.Clone()
	next.LastIntent = s.Intent

	if s.Anchor != nil {
		next.AnchorSKU = s.Anchor.SKU
		next.AnchorCategory = s.Anchor.Category
		if next.Amp == "" {
			next.Amp = s.Anchor.Amp
		}
		if next.System == "" {
			next.System = s.Anchor.System
		}
		if next.HandRobot == catalog.HandRobotUnset && s.Anchor.HandRobot == catalog.Robot {
			next.HandRobot = catalog.Robot
		}
	}

	switch {
	case s.Ask != PendingNone:
		next.PendingAction = s.Ask
		if len(s.Parts) > 0 {
			next.PendingParts = append([]catalog.Category(nil), s.Parts...)
		}
	case s.Fulfilled:
		next.PendingAction = PendingNone
		next.PendingParts = nil
	}

	next.UpdatedAt = now
	r.logger.Debug("RESOLVER", "Settled turn", next.Fields())
	return next
}
