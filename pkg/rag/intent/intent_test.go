package intent_test

import (
	"context"
	"testing"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/llm/stub"
	"tokinarc-sales-be/pkg/rag/intent"

	"github.com/stretchr/testify/assert"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		raw  string
		want intent.Tag
		ok   bool
	}{
		{"CODE_LOOKUP", intent.CodeLookup, true},
		{" order close ", intent.OrderClose, true},
		{"slot-fill-amp", intent.SlotFillAmp, true},
		{"WEATHER", intent.Fallback, false},
		{"", intent.Fallback, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := intent.ParseTag(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestClassifier(t *testing.T) {
	tests := []struct {
		name       string
		reply      stub.Responder
		wantTag    intent.Tag
		wantSource intent.Source
	}{
		{"json label", stub.Reply(`{"intent": "LIST", "reasoning": "asks for codes"}`), intent.List, intent.SourceLLM},
		{"fenced json", stub.Reply("```json\n{\"intent\":\"product_lookup\"}\n```"), intent.ProductLookup, intent.SourceLLM},
		{"bare label", stub.Reply("ORDER_CLOSE"), intent.OrderClose, intent.SourceLLM},
		{"label outside set", stub.Reply(`{"intent": "SMALL_TALK"}`), intent.Fallback, intent.SourceLLM},
		{"garbage", stub.Reply("I think the user wants help"), intent.Fallback, intent.SourceLLM},
		{"upstream failure", stub.Fail(stub.ErrScripted), intent.Fallback, intent.SourceDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := stub.New(tt.reply)
			c := intent.NewClassifier(p, logger.NewNopLogger())

			tag, src := c.Classify(context.Background(), "cho em hoi chut", intent.Hints{AnchorSKU: "004002"})

			assert.Equal(t, tt.wantTag, tag)
			assert.Equal(t, tt.wantSource, src)
			assert.Contains(t, p.LastPrompt(), "ANCHOR_SKU: 004002")
		})
	}
}

func TestTag_Predicates(t *testing.T) {
	assert.True(t, intent.SlotFillAmp.SlotFill())
	assert.False(t, intent.QuantityFollowup.SlotFill())
	assert.True(t, intent.AccessoryBundleLookup.Technical())
	assert.False(t, intent.OrderClose.Technical())
	assert.True(t, intent.Intent{RangeMin: 2, RangeMax: 4}.WantsMany())
}
