package executor

import (
	"context"
	"fmt"
	"time"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/ai/router"
	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/knowledge"
	"tokinarc-sales-be/pkg/rag/guard"
	"tokinarc-sales-be/pkg/rag/history"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/response"
	"tokinarc-sales-be/pkg/rag/search"
	"tokinarc-sales-be/pkg/rag/state"
	"tokinarc-sales-be/pkg/store"
	"tokinarc-sales-be/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// CatalogSource rebuilds the catalog index. *catalog.Loader satisfies it.
type CatalogSource interface {
	Load() (*catalog.Index, catalog.Meta, error)
}

// TurnExecutor runs one chat turn through the sales pipeline:
// resolve → route → retrieve (catalog ∥ knowledge) → guard → generate → settle.
type TurnExecutor struct {
	resolver  *state.Resolver
	router    *router.Router
	engine    *search.Engine
	catalog   CatalogSource
	knowledge *knowledge.Store
	generator *response.Generator
	logger    logger.ILogger
	now       func() time.Time
}

func NewTurnExecutor(
	resolver *state.Resolver,
	rt *router.Router,
	engine *search.Engine,
	catalogSource CatalogSource,
	knowledgeStore *knowledge.Store,
	generator *response.Generator,
	logger logger.ILogger,
) *TurnExecutor {
	return &TurnExecutor{
		resolver:  resolver,
		router:    rt,
		engine:    engine,
		catalog:   catalogSource,
		knowledge: knowledgeStore,
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
}

// TurnResult is everything the chat service needs to persist and answer.
type TurnResult struct {
	Answer    string             `json:"answer"`
	Images    []response.Image   `json:"images"`
	Intent    intent.Intent      `json:"intent"`
	Source    intent.Source      `json:"source"`
	Directive guard.Directive    `json:"directive"`
	Result    search.Result      `json:"result"`
	State     state.ContextState `json:"state"`
	Knowledge []knowledge.Scored `json:"knowledge,omitempty"`
	Logs      []string           `json:"logs"`

	// Index is the catalog the turn was answered from, for the gate.
	Index *catalog.Index `json:"-"`
}

// AnchorLabel is "name sku" of the record the turn was about.
func (r *TurnResult) AnchorLabel() string {
	if r.Result.Anchor != nil {
		return r.Result.Anchor.Name + " " + r.Result.Anchor.SKU
	}
	return r.State.AnchorSKU
}

// Execute answers message within sess. sess is read, never modified. An
// error means the turn failed and must not be persisted; it wraps
// rag.ErrUpstreamUnavailable when the model could not be reached.
func (p *TurnExecutor) Execute(ctx context.Context, sess *store.Session, message string) (*TurnResult, error) {
	now := p.now()
	out := &TurnResult{}
	trace := func(phase int, format string, args ...interface{}) {
		line := fmt.Sprintf("[PHASE %d] %s", phase, fmt.Sprintf(format, args...))
		out.Logs = append(out.Logs, line)
		p.logger.Info("PIPELINE", line, nil)
	}

	var prior state.ContextState
	if sess != nil {
		prior = sess.Context
	}

	p.logger.Info("PIPELINE", "Starting turn", map[string]interface{}{"query": utils.TruncateRunes(message, 50)})

	// PHASE 1: resolve short memory
	res := p.resolver.Resolve(prior, message, now)
	trace(1, "resolve: act=%s expired=%t anchor=%s pending=%s", res.Act, res.Expired, res.State.AnchorSKU, res.State.PendingAction)

	// PHASE 2: route
	in, src := p.router.Route(ctx, res)
	out.Intent, out.Source = in, src
	trace(2, "route: intent=%s source=%s rule=%s", in.Tag, src, in.Rule)

	if res.Empty() {
		out.Answer = response.AskSKUGroupReply
		out.State = res.State
		out.Result = search.Result{Outcome: search.OutcomeSkipped}
		trace(2, "empty message, asking for a product group")
		return out, nil
	}

	// PHASE 3: catalog and knowledge retrieval
	if err := p.retrieve(ctx, out, res, message); err != nil {
		return nil, err
	}
	trace(3, "retrieve: outcome=%s items=%d total=%d knowledge=%d", out.Result.Outcome, len(out.Result.Items), out.Result.Total, len(out.Knowledge))

	// PHASE 4: guard
	out.Directive = guard.Decide(in, out.Result, res.State)
	trace(4, "guard: products=%t origin=%t note=%t form=%t",
		out.Directive.ShowProducts, out.Directive.ShowOriginLine, out.Directive.ShowHandRobotNote, out.Directive.ShowForm)

	// PHASE 5: generate
	reply, err := p.generator.Generate(ctx, response.Request{
		Message:   message,
		Intent:    in,
		Result:    out.Result,
		Directive: out.Directive,
		Knowledge: out.Knowledge,
		State:     res.State,
		History:   history.FromSession(sess, history.DefaultLimit),
		Turn:      assistantTurns(sess),
	})
	if err != nil {
		trace(5, "generate failed: %v", err)
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	out.Answer, out.Images = reply.Text, reply.Images
	trace(5, "generate: template=%s ask=%s images=%d", reply.Template, reply.Ask, len(reply.Images))

	// PHASE 6: settle short memory
	parts := in.Parts
	if len(parts) == 0 {
		parts = out.Result.Filters.Parts
	}
	out.State = p.resolver.Settle(res.State, state.Settlement{
		Intent:    string(in.Tag),
		Parts:     parts,
		Ask:       reply.Ask,
		Anchor:    out.Result.Anchor,
		Fulfilled: out.Result.HasItems() && reply.Ask == state.PendingNone,
	}, now)
	trace(6, "settle: anchor=%s amp=%s pending=%s", out.State.AnchorSKU, out.State.Amp, out.State.PendingAction)

	return out, nil
}

// retrieve loads the catalog and the knowledge chunks concurrently. A
// corrupted knowledge tier is logged and skipped; a catalog failure fails
// the turn.
func (p *TurnExecutor) retrieve(ctx context.Context, out *TurnResult, res state.Resolution, message string) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		idx, meta, err := p.catalog.Load()
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		p.logger.Debug("PIPELINE", "Catalog loaded", map[string]interface{}{"records": idx.Len(), "file": meta.FileName})
		out.Index = idx
		out.Result = p.engine.Retrieve(out.Intent, res.State, idx)
		return nil
	})

	g.Go(func() error {
		if p.knowledge == nil {
			return nil
		}
		chunks, err := p.knowledge.Retrieve(gctx, message, p.knowledge.TopK())
		if err != nil {
			p.logger.Warn("PIPELINE", "Knowledge retrieval degraded", map[string]interface{}{"error": err.Error()})
		}
		out.Knowledge = chunks
		return nil
	})

	return g.Wait()
}

func assistantTurns(sess *store.Session) int {
	if sess == nil {
		return 0
	}
	n := 0
	for _, t := range sess.Turns {
		if t.Role == store.RoleAssistant {
			n++
		}
	}
	return n
}
