package router

import (
	"context"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/state"
)

// Classifier is the LLM tier consulted when no rule fires.
type Classifier interface {
	Classify(ctx context.Context, normalized string, hints intent.Hints) (intent.Tag, intent.Source)
}

// Router decides the intent of a resolved turn: deterministic rules first,
// the classifier only when none of them match.
type Router struct {
	classifier Classifier
	logger     logger.ILogger
}

// NewRouter accepts a nil classifier; unmatched turns then fall back
// without an LLM call.
func NewRouter(classifier Classifier, logger logger.ILogger) *Router {
	return &Router{classifier: classifier, logger: logger}
}

// Route returns the turn intent and which tier produced it.
func (r *Router) Route(ctx context.Context, res state.Resolution) (intent.Intent, intent.Source) {
	if res.Empty() {
		in := baseIntent(intent.Clarify, res)
		in.Rule = "empty"
		return in, intent.SourceRule
	}

	for _, ru := range rules {
		if in, ok := ru.match(res); ok {
			in.Rule = ru.name
			r.logger.Info("ROUTER", "Rule matched", map[string]interface{}{
				"rule":   ru.name,
				"intent": in.Tag,
				"anchor": in.AnchorSKU,
				"parts":  in.Parts,
			})
			return in, intent.SourceRule
		}
	}

	if r.classifier == nil {
		return baseIntent(intent.Fallback, res), intent.SourceDefault
	}

	tag, src := r.classifier.Classify(ctx, res.Normalized, intent.Hints{
		AnchorSKU:     res.State.AnchorSKU,
		PendingAction: string(res.State.PendingAction),
		LastIntent:    res.State.LastIntent,
	})
	in := baseIntent(tag, res)
	switch {
	case len(res.Extracted.Categories) > 0:
		in.Parts = append(in.Parts, res.Extracted.Categories...)
	case tag == intent.AccessoryBundleLookup || tag.SlotFill():
		in.Parts = pendingOrDefaultParts(res.State)
	}
	r.logger.Info("ROUTER", "No rule matched, classifier decided", map[string]interface{}{
		"intent": tag,
		"source": src,
	})
	return in, src
}
