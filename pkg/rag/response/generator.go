package response

import (
	"context"
	"fmt"
	"strings"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/knowledge"
	"tokinarc-sales-be/pkg/llm"
	"tokinarc-sales-be/pkg/rag/guard"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/search"
	"tokinarc-sales-be/pkg/rag/state"
)

// Request is everything the reply is built from.
type Request struct {
	Message   string
	Intent    intent.Intent
	Result    search.Result
	Directive guard.Directive
	Knowledge []knowledge.Scored
	State     state.ContextState
	History   []llm.Message
	// Turn numbers the assistant replies in the session; it rotates the
	// selling-scope template.
	Turn int
}

// Reply is the rendered answer.
type Reply struct {
	Text   string  `json:"text"`
	Images []Image `json:"images"`
	// Ask is the slot question the reply ends with.
	Ask state.PendingAction `json:"ask,omitempty"`
	// Template names the canned reply used, or "" for a generated one.
	Template string `json:"template,omitempty"`
}

// Generator turns a guarded retrieval result into the user-facing answer.
type Generator struct {
	llmProvider llm.LLMProvider
	maxImages   int
	logger      logger.ILogger
}

func NewGenerator(llmProvider llm.LLMProvider, maxImages int, logger logger.ILogger) *Generator {
	if maxImages <= 0 {
		maxImages = search.DefaultMaxImages
	}
	return &Generator{llmProvider: llmProvider, maxImages: maxImages, logger: logger}
}

// Generate picks a canned reply when the outcome calls for one and asks the
// model otherwise. The only error is a model failure, already retried, that
// wraps rag.ErrUpstreamUnavailable.
func (g *Generator) Generate(ctx context.Context, req Request) (Reply, error) {
	reply, ok := g.canned(req)
	if !ok {
		text, err := g.generated(ctx, req)
		if err != nil {
			g.logger.Error("GENERATION", "LLM generation failed", map[string]interface{}{"error": err.Error()})
			return Reply{}, err
		}
		reply = text
	}

	if req.Directive.ShowProducts {
		reply.Images = PlaceImages(reply.Text, req.Result.Items, g.maxImages)
	}
	g.logger.Info("GENERATION", "Reply rendered", map[string]interface{}{
		"template": reply.Template,
		"ask":      reply.Ask,
		"images":   len(reply.Images),
		"chars":    len(reply.Text),
	})
	return reply, nil
}

func (g *Generator) compose(req Request, opening, body string) string {
	return guard.Compose(req.Directive, guard.Sections{
		Opening:  opening,
		Products: Cards(req.Result.Items),
		Body:     body,
		Note:     guard.HandRobotNote(noteAmp(req)),
	})
}

func noteAmp(req Request) catalog.Amp {
	if req.Intent.Amp != "" {
		return req.Intent.Amp
	}
	if req.Result.Filters.Amp != "" {
		return req.Result.Filters.Amp
	}
	for _, r := range req.Result.Items {
		if r.Amp != "" {
			return r.Amp
		}
	}
	return ""
}

// canned covers every outcome that has a fixed answer.
func (g *Generator) canned(req Request) (Reply, bool) {
	in, res := req.Intent, req.Result

	switch {
	case in.Tag == intent.AskSellingScope:
		return Reply{Text: SellingScope(req.Turn), Template: "selling_scope"}, true

	case in.Tag == intent.Clarify:
		return Reply{Text: AskSKUGroupReply, Template: "clarify"}, true

	case in.Tag == intent.Fallback && in.Rule == intent.RuleNegate:
		return Reply{Text: NegateAcknowledged, Template: "negate"}, true

	case res.Outcome == search.OutcomeNeedsDisambiguation:
		ask := state.PendingFillAmp
		if !contains(res.Missing, search.SlotAmp) {
			ask = state.PendingFillSystem
		}
		text := g.compose(req, DisambiguationQuestion(res.Missing, res.Filters.Parts), "")
		return Reply{Text: text, Ask: ask, Template: "disambiguation"}, true

	case res.Outcome == search.OutcomeNoMatch && in.Tag != intent.Fallback:
		text := g.compose(req, NoMatchReply(res), "")
		return Reply{Text: text, Template: "no_match"}, true

	case res.Outcome == search.OutcomeSingleUnderConstrained:
		text := g.compose(req, UnderConstrainedReply(res), broadenRequest)
		return Reply{Text: text, Template: "under_constrained"}, true

	case in.Tag == intent.QuantityFollowup:
		return g.quantityReply(req), true

	case in.Commercial:
		return g.commercialReply(req), true
	}
	return Reply{}, false
}

func (g *Generator) quantityReply(req Request) Reply {
	qty := req.Intent.Quantity
	if qty == 0 {
		qty = req.State.Quantity
	}
	if qty == 1 {
		return Reply{Text: g.compose(req, NoRetailReply, ""), Ask: state.PendingFillQuantity, Template: "no_retail"}
	}

	subject := "sản phẩm"
	if sku := anchorSKU(req); sku != "" {
		subject = "mã " + sku
	}
	opening := fmt.Sprintf("Dạ em đã ghi nhận số lượng %d cái cho %s ạ.", qty, subject)
	return Reply{Text: g.compose(req, opening, QuantityTailSentence), Template: "quantity"}
}

func (g *Generator) commercialReply(req Request) Reply {
	qty := req.Intent.Quantity
	if qty == 0 {
		qty = req.State.Quantity
	}
	if qty == 0 {
		return Reply{Text: g.compose(req, NeedQuantityReply, ""), Ask: state.PendingFillQuantity, Template: "need_quantity"}
	}
	return Reply{Text: g.compose(req, DefaultPriceReply, ReminderLine), Template: "commercial"}
}

func anchorSKU(req Request) string {
	switch {
	case req.Intent.AnchorSKU != "":
		return req.Intent.AnchorSKU
	case len(req.Intent.SKUs) == 1:
		return req.Intent.SKUs[0]
	}
	return req.State.AnchorSKU
}

// generated asks the model for the advisory text and wraps it with the
// guarded blocks.
func (g *Generator) generated(ctx context.Context, req Request) (Reply, error) {
	prompt := g.buildPrompt(req)
	history := append(append([]llm.Message(nil), req.History...), llm.Message{Role: llm.RoleUser, Content: prompt})

	raw, err := g.llmProvider.Chat(ctx, history, llm.WithTemperature(0.3))
	if err != nil {
		return Reply{}, err
	}

	text := guard.StripOrigin(strings.TrimSpace(raw))
	opening, rest := guard.SplitOpening(text)

	reply := Reply{}
	if req.Directive.ShowProducts && req.Intent.Tag == intent.CodeLookup && req.Result.Anchor != nil {
		rest = strings.TrimSpace(rest + "\n\n" + BundleClosing)
		reply.Ask = state.PendingConfirmBundle
	}
	reply.Text = g.compose(req, opening, rest)
	return reply, nil
}

func (g *Generator) buildPrompt(req Request) string {
	var prompt strings.Builder

	prompt.WriteString("<role>\n")
	prompt.WriteString("Bạn là nhân viên tư vấn phụ kiện súng hàn MIG/MAG Tokinarc (Nhật Bản) của Autoss. ")
	prompt.WriteString("Xưng \"Em\", gọi khách là \"Anh/Chị\", trả lời tiếng Việt, lịch sự, ngắn gọn.\n")
	prompt.WriteString("</role>\n\n")

	prompt.WriteString("<catalog_items>\n")
	if len(req.Result.Items) == 0 {
		prompt.WriteString("(không có sản phẩm phù hợp)\n")
	}
	for _, r := range req.Result.Items {
		prompt.WriteString(fmt.Sprintf("SKU: %s | CAT: %s | NAME: %s | AMP: %s | SYSTEM: %s | TYPE: %s\n",
			r.SKU, r.Category, r.Name, r.Amp, r.System, r.HandRobot))
	}
	if req.Result.Truncated {
		prompt.WriteString(fmt.Sprintf("(đang hiển thị %d trên tổng %d mã)\n", len(req.Result.Items), req.Result.Total))
	}
	prompt.WriteString("</catalog_items>\n\n")

	if len(req.Knowledge) > 0 {
		prompt.WriteString("<knowledge>\n")
		for _, k := range req.Knowledge {
			prompt.WriteString(k.Format())
			prompt.WriteString("\n")
		}
		prompt.WriteString("</knowledge>\n\n")
	}

	prompt.WriteString("<context>\n")
	prompt.WriteString(fmt.Sprintf("intent: %s\n", req.Intent.Tag))
	if sku := anchorSKU(req); sku != "" {
		prompt.WriteString(fmt.Sprintf("anchor_sku: %s\n", sku))
	}
	for _, slot := range [][2]string{
		{"amp", string(req.State.Amp)},
		{"system", string(req.State.System)},
		{"hand_robot", string(req.State.HandRobot)},
	} {
		if slot[1] != "" {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", slot[0], slot[1]))
		}
	}
	prompt.WriteString("</context>\n\n")

	prompt.WriteString("<rules>\n")
	prompt.WriteString("1. Chỉ dùng thông tin trong <catalog_items> cho mã, thông số và hình ảnh. Không bịa mã.\n")
	prompt.WriteString("2. Viết 1-3 câu tư vấn. Danh sách sản phẩm, hình ảnh, xuất xứ và form liên hệ do hệ thống tự chèn, không tự viết.\n")
	prompt.WriteString("3. Không hứa giá, không xin thông tin liên hệ.\n")
	prompt.WriteString("</rules>\n\n")

	prompt.WriteString("<user_question>\n")
	prompt.WriteString(req.Message)
	prompt.WriteString("\n</user_question>\n")

	return prompt.String()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
