package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/llm"
	"tokinarc-sales-be/pkg/utils"
)

// Classifier is the LLM tier of intent routing. It only ever picks a label
// from Tags.
type Classifier struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewClassifier(llmProvider llm.LLMProvider, logger logger.ILogger) *Classifier {
	return &Classifier{llmProvider: llmProvider, logger: logger}
}

// Hints is the short-memory summary shown to the classifier.
type Hints struct {
	AnchorSKU     string
	PendingAction string
	LastIntent    string
}

type classification struct {
	Intent    string `json:"intent"`
	Reasoning string `json:"reasoning"`
}

// Classify asks the model for one label. Unknown or unparsable labels and
// failed calls all come back as Fallback; the source says which happened.
func (c *Classifier) Classify(ctx context.Context, normalized string, hints Hints) (Tag, Source) {
	prompt := c.buildPrompt(normalized, hints)

	response, err := c.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0), llm.WithMaxTokens(256))
	if err != nil {
		c.logger.Warn("INTENT", "Classifier call failed, using fallback", map[string]interface{}{"error": err.Error()})
		return Fallback, SourceDefault
	}

	tag, err := parseClassification(response)
	if err != nil {
		c.logger.Warn("INTENT", "Classifier output unusable, using fallback", map[string]interface{}{
			"error":    err.Error(),
			"response": utils.TruncateRunes(response, 200),
		})
		return Fallback, SourceLLM
	}

	c.logger.Info("INTENT", "Classified by LLM", map[string]interface{}{"intent": tag})
	return tag, SourceLLM
}

func (c *Classifier) buildPrompt(normalized string, hints Hints) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You classify messages sent to a sales assistant for Tokinarc MIG/MAG torch consumables ")
	prompt.WriteString("(tip, tip body, insulator, nozzle, orifice). You do NOT answer. You only pick one label.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<session_state>\n")
	if hints.AnchorSKU != "" {
		prompt.WriteString(fmt.Sprintf("ANCHOR_SKU: %s\n", hints.AnchorSKU))
	}
	if hints.PendingAction != "" {
		prompt.WriteString(fmt.Sprintf("PENDING_QUESTION: %s\n", hints.PendingAction))
	}
	if hints.LastIntent != "" {
		prompt.WriteString(fmt.Sprintf("LAST_INTENT: %s\n", hints.LastIntent))
	}
	if hints == (Hints{}) {
		prompt.WriteString("INITIAL_STATE\n")
	}
	prompt.WriteString("</session_state>\n\n")

	prompt.WriteString("<user_message normalized=\"true\">\n")
	prompt.WriteString(normalized)
	prompt.WriteString("\n</user_message>\n\n")

	prompt.WriteString("<labels>\n")
	prompt.WriteString("CODE_LOOKUP: asks about one product code\n")
	prompt.WriteString("PRODUCT_LOOKUP: asks about a product group without a code\n")
	prompt.WriteString("ACCESSORY_BUNDLE_LOOKUP: asks which parts go with a product\n")
	prompt.WriteString("LIST: asks for a list of codes\n")
	prompt.WriteString("ASK_SELLING_SCOPE: asks what the shop sells\n")
	prompt.WriteString("SLOT_FILL_AMP / SLOT_FILL_SYSTEM / SLOT_FILL_TYPE: answers the pending question\n")
	prompt.WriteString("QUANTITY_FOLLOWUP: gives a quantity for the current product\n")
	prompt.WriteString("ORDER_CLOSE: wants a quote, an order or delivery\n")
	prompt.WriteString("CLARIFY: too vague to act on\n")
	prompt.WriteString("FALLBACK: anything else\n")
	prompt.WriteString("</labels>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON: {\"intent\": \"LABEL\", \"reasoning\": \"short\"}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseClassification(response string) (Tag, error) {
	raw := utils.ExtractJSONBlock(response)
	if raw == "" {
		// bare label answers are accepted
		if tag, ok := ParseTag(response); ok {
			return tag, nil
		}
		return Fallback, fmt.Errorf("no JSON found in response")
	}

	var out classification
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Fallback, fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	tag, ok := ParseTag(out.Intent)
	if !ok {
		return Fallback, fmt.Errorf("label %q outside the closed set", out.Intent)
	}
	return tag, nil
}
