package knowledge

import (
	"context"
	"strconv"
	"strings"
	"time"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/llm"
)

// TurnRecord is a finished turn handed to the extractor.
type TurnRecord struct {
	UserMessage string
	Answer      string
	Intent      string
	Anchor      string
}

// Context is the evidence the gate checks candidates against.
func (r TurnRecord) Context() TurnContext {
	return TurnContext{UserMessage: r.UserMessage, Intent: r.Intent, Anchor: r.Anchor}
}

// Extractor asks the model for reusable knowledge lines from one turn.
type Extractor struct {
	llm      llm.LLMProvider
	maxLines int
	logger   logger.ILogger
	now      func() time.Time
}

func NewExtractor(provider llm.LLMProvider, maxLines int, logger logger.ILogger) *Extractor {
	if maxLines <= 0 {
		maxLines = DefaultMaxNewLines
	}
	return &Extractor{llm: provider, maxLines: maxLines, logger: logger, now: time.Now}
}

// Propose returns at most maxLines candidates. A model failure yields none.
func (e *Extractor) Propose(ctx context.Context, turn TurnRecord) []Candidate {
	if e.llm == nil || strings.TrimSpace(turn.UserMessage) == "" {
		return nil
	}

	raw, err := e.llm.Generate(ctx, e.buildPrompt(turn), llm.WithTemperature(0.1))
	if err != nil {
		e.logger.Warn("EXTRACTOR", "Knowledge extraction failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	var out []Candidate
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		if len(out) >= e.maxLines {
			break
		}
		c, ok := ParseCandidate(line)
		if !ok {
			c = Candidate{Line: line}
		}
		out = append(out, c)
	}

	e.logger.Debug("EXTRACTOR", "Candidates proposed", map[string]interface{}{"count": len(out)})
	return out
}

func (e *Extractor) buildPrompt(turn TurnRecord) string {
	var b strings.Builder

	b.WriteString("<task>\n")
	b.WriteString("Trích xuất tri thức bán hàng có thể tái sử dụng từ một lượt hội thoại về phụ kiện hàn Tokinarc.\n")
	b.WriteString("Chỉ ghi nhận điều chắc chắn đúng và có trong hội thoại. Không bịa mã, không bịa thông số.\n")
	b.WriteString("</task>\n\n")

	b.WriteString("<format>\n")
	b.WriteString("Mỗi dòng đúng dạng: - [" + e.now().UTC().Format("2006-01-02") + "][TAG][priority] nội dung tiếng Việt\n")
	b.WriteString("TAG thuộc: QA, SYN, RULE, TEMPLATE. priority thuộc: high, medium, low.\n")
	b.WriteString("Tối đa " + strconv.Itoa(e.maxLines) + " dòng. Không có gì đáng ghi thì trả về rỗng.\n")
	b.WriteString("</format>\n\n")

	b.WriteString("<turn>\n")
	b.WriteString("intent: " + turn.Intent + "\n")
	b.WriteString("anchor: " + turn.Anchor + "\n")
	b.WriteString("user: " + turn.UserMessage + "\n")
	b.WriteString("assistant: " + turn.Answer + "\n")
	b.WriteString("</turn>\n")

	return b.String()
}
