package response_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/catalog/catalogtest"
	"tokinarc-sales-be/pkg/llm/stub"
	"tokinarc-sales-be/pkg/rag"
	"tokinarc-sales-be/pkg/rag/guard"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/response"
	"tokinarc-sales-be/pkg/rag/search"
	"tokinarc-sales-be/pkg/rag/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, sku string) catalog.Record {
	t.Helper()
	r, ok := catalogtest.Index().Record(sku)
	require.True(t, ok, sku)
	return r
}

func generate(t *testing.T, p *stub.Provider, req response.Request) response.Reply {
	t.Helper()
	req.Directive = guard.Decide(req.Intent, req.Result, req.State)
	reply, err := response.NewGenerator(p, 4, logger.NewNopLogger()).Generate(context.Background(), req)
	require.NoError(t, err)
	return reply
}

func TestSellingScopeRotates(t *testing.T) {
	seen := map[string]bool{}
	for turn := 0; turn < 3; turn++ {
		seen[response.SellingScope(turn)] = true
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, response.SellingScope(0), response.SellingScope(3))
}

func TestStockLine(t *testing.T) {
	n := func(v int) *int { return &v }
	tests := []struct {
		stock *int
		want  string
	}{
		{nil, ""},
		{n(0), ""},
		{n(80), "Hiện kho còn 80 cái, số lượng còn lại sẽ cập nhật trong báo giá ạ."},
		{n(100), "Hiện hàng đang có sẵn ạ."},
		{n(120), "Hiện hàng đang có sẵn ạ."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, response.StockLine(tt.stock))
	}
}

func TestGenerate_CannedReplies(t *testing.T) {
	p := stub.New()

	t.Run("clarify", func(t *testing.T) {
		r := generate(t, p, response.Request{Intent: intent.Intent{Tag: intent.Clarify}})
		assert.Equal(t, response.AskSKUGroupReply, r.Text)
	})

	t.Run("disambiguation asks for amp without showing products", func(t *testing.T) {
		res := search.Result{
			Outcome: search.OutcomeNeedsDisambiguation,
			Missing: []string{search.SlotAmp},
			Filters: search.Filter{Parts: []catalog.Category{catalog.CategoryNozzle}},
		}
		r := generate(t, p, response.Request{Intent: intent.Intent{Tag: intent.AccessoryBundleLookup}, Result: res})
		assert.Equal(t, state.PendingFillAmp, r.Ask)
		assert.Contains(t, r.Text, "350A hay 500A")
		assert.Contains(t, r.Text, "chụp khí")
		assert.NotContains(t, r.Text, guard.OriginLine)
		assert.Empty(t, r.Images)
	})

	t.Run("no match lists the applied filters", func(t *testing.T) {
		res := search.Result{
			Outcome: search.OutcomeNoMatch,
			Filters: search.Filter{Parts: []catalog.Category{catalog.CategoryNozzle}, Amp: catalog.Amp500, HandRobot: catalog.Robot},
		}
		r := generate(t, p, response.Request{Intent: intent.Intent{Tag: intent.ProductLookup}, Result: res})
		assert.Contains(t, r.Text, "dòng 500A")
		assert.Contains(t, r.Text, "súng hàn robot")
		assert.Equal(t, "no_match", r.Template)
	})

	t.Run("unknown code", func(t *testing.T) {
		res := search.Result{Outcome: search.OutcomeNoMatch, Unknown: []string{"009999"}}
		r := generate(t, p, response.Request{Intent: intent.Intent{Tag: intent.CodeLookup}, Result: res})
		assert.Contains(t, r.Text, "009999")
		assert.Contains(t, r.Text, response.CodeNotFoundReply)
	})

	t.Run("under-constrained shows the one match and asks to broaden", func(t *testing.T) {
		res := search.Result{
			Outcome: search.OutcomeSingleUnderConstrained,
			Items:   []catalog.Record{record(t, "003002")},
			Total:   1,
			Filters: search.Filter{Parts: []catalog.Category{catalog.CategoryNozzle}},
		}
		r := generate(t, p, response.Request{Intent: intent.Intent{Tag: intent.List, RangeMin: 2, RangeMax: 3}, Result: res})
		assert.Equal(t, 1, strings.Count(r.Text, "(Tokin "))
		assert.Contains(t, r.Text, "mở rộng")
		require.Len(t, r.Images, 1)
	})

	t.Run("single unit is refused", func(t *testing.T) {
		r := generate(t, p, response.Request{Intent: intent.Intent{Tag: intent.QuantityFollowup, Quantity: 1}})
		assert.Contains(t, r.Text, response.NoRetailReply)
		assert.Equal(t, state.PendingFillQuantity, r.Ask)
	})

	t.Run("commercial without quantity asks for it and shows the form", func(t *testing.T) {
		r := generate(t, p, response.Request{Intent: intent.Intent{Tag: intent.OrderClose, Commercial: true}})
		assert.Contains(t, r.Text, response.NeedQuantityReply)
		assert.Contains(t, r.Text, guard.FormBlock)
		assert.Equal(t, state.PendingFillQuantity, r.Ask)
	})

	assert.Zero(t, p.Calls())
}

func TestGenerate_LLMReplyIsGuarded(t *testing.T) {
	p := stub.New(stub.Reply("Dạ cách điện 004002 dùng chụp khí 003002 ạ.\nXuất xứ: Nhật\nĐây là mã phổ biến."))
	res := search.Result{
		Outcome: search.OutcomeMatched,
		Items:   []catalog.Record{record(t, "003002")},
		Total:   1,
		Filters: search.Filter{AnchorSKU: "004002", Parts: []catalog.Category{catalog.CategoryNozzle}},
	}
	in := intent.Intent{Tag: intent.AccessoryBundleLookup, AnchorSKU: "004002", Parts: []catalog.Category{catalog.CategoryNozzle}}

	r := generate(t, p, response.Request{Message: "Cách điện 004002 dùng chụp khí gì", Intent: in, Result: res})

	lines := strings.Split(r.Text, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "Dạ cách điện 004002 dùng chụp khí 003002 ạ.", lines[0])
	assert.Equal(t, guard.OriginLine, lines[1])
	assert.Equal(t, 1, strings.Count(r.Text, "Xuất xứ:"))
	assert.Contains(t, r.Text, guard.HandRobotNote(catalog.Amp350))
	assert.NotContains(t, r.Text, guard.FormBlock)

	require.Len(t, r.Images, 1)
	paragraphs := strings.Split(r.Text, "\n\n")
	assert.Contains(t, paragraphs[r.Images[0].AfterParagraphIndex], "(Tokin 003002)")
	assert.Contains(t, p.LastPrompt(), "SKU: 003002")
}

func TestGenerate_CodeLookupOffersBundle(t *testing.T) {
	anchor := record(t, "004002")
	p := stub.New(stub.Reply("Dạ đây là cách điện 004002 ạ."))
	res := search.Result{Outcome: search.OutcomeMatched, Items: []catalog.Record{anchor}, Total: 1, Anchor: &anchor}

	r := generate(t, p, response.Request{Intent: intent.Intent{Tag: intent.CodeLookup, SKUs: []string{"004002"}}, Result: res})

	assert.Equal(t, state.PendingConfirmBundle, r.Ask)
	assert.Contains(t, r.Text, response.BundleClosing)
	assert.Contains(t, r.Text, "Hiện kho còn 80 cái")
}

func TestGenerate_ImagesCapped(t *testing.T) {
	idx := catalogtest.Index()
	items := idx.List()
	p := stub.New(stub.Reply("Dạ em gửi danh sách ạ."))
	res := search.Result{Outcome: search.OutcomeMatched, Items: items, Total: len(items)}

	r := generate(t, p, response.Request{Intent: intent.Intent{Tag: intent.List}, Result: res})
	assert.Len(t, r.Images, 4)
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	failure := fmt.Errorf("chat after 3 attempt(s): %w", rag.ErrUpstreamUnavailable)
	p := stub.New(stub.Fail(failure))
	req := response.Request{Intent: intent.Intent{Tag: intent.ProductLookup}, Result: search.Result{Outcome: search.OutcomeSkipped}}

	_, err := response.NewGenerator(p, 4, logger.NewNopLogger()).Generate(context.Background(), req)
	assert.ErrorIs(t, err, rag.ErrUpstreamUnavailable)
}
