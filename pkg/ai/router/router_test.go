package router_test

import (
	"context"
	"testing"
	"time"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/ai/router"
	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/llm/stub"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/state"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixedClassifier struct {
	tag   intent.Tag
	calls int
}

func (f *fixedClassifier) Classify(context.Context, string, intent.Hints) (intent.Tag, intent.Source) {
	f.calls++
	return f.tag, intent.SourceLLM
}

func route(t *testing.T, prior state.ContextState, text string, now time.Time, cls router.Classifier) (intent.Intent, intent.Source) {
	t.Helper()
	log := logger.NewNopLogger()
	res := state.NewResolver(state.DefaultTTL, log).Resolve(prior, text, now)
	return router.NewRouter(cls, log).Route(context.Background(), res)
}

func TestRoute_Rules(t *testing.T) {
	anchored := state.ContextState{AnchorSKU: "004002", AnchorCategory: catalog.CategoryInsulator, UpdatedAt: t0}
	pendingAmp := state.ContextState{
		PendingAction: state.PendingFillAmp,
		PendingParts:  []catalog.Category{catalog.CategoryNozzle},
		UpdatedAt:     t0,
	}
	pendingBundle := state.ContextState{
		AnchorSKU:     "004002",
		PendingAction: state.PendingConfirmBundle,
		PendingParts:  []catalog.Category{catalog.CategoryOrifice},
		UpdatedAt:     t0,
	}
	now := t0.Add(time.Minute)

	tests := []struct {
		name      string
		prior     state.ContextState
		text      string
		wantTag   intent.Tag
		wantRule  string
		wantParts []catalog.Category
		anchor    string
	}{
		{"bundle by code", state.ContextState{}, "Cách điện 004002 dùng chụp khí gì", intent.AccessoryBundleLookup, "explicit_code", []catalog.Category{catalog.CategoryNozzle}, "004002"},
		{"code only", state.ContextState{}, "mã 003002 còn hàng không", intent.CodeLookup, "explicit_code", nil, "003002"},
		{"code with bundle wording", state.ContextState{}, "004002 phụ kiện đi kèm", intent.AccessoryBundleLookup, "explicit_code", catalog.BundleCategories, "004002"},
		{"amp fills pending", pendingAmp, "350A", intent.SlotFillAmp, "slot_fill", []catalog.Category{catalog.CategoryNozzle}, ""},
		{"type fills pending", pendingAmp, "súng robot", intent.SlotFillType, "slot_fill", []catalog.Category{catalog.CategoryNozzle}, ""},
		{"quantity on anchor", anchored, "số lượng 100 cái", intent.QuantityFollowup, "quantity_followup", nil, "004002"},
		{"affirm pending bundle", pendingBundle, "ok", intent.AccessoryBundleLookup, "affirm_pending_bundle", []catalog.Category{catalog.CategoryOrifice}, "004002"},
		{"negate pending", pendingBundle, "không cần", intent.Fallback, "negate_pending", nil, "004002"},
		{"bare amp nothing pending", state.ContextState{}, "350A", intent.Clarify, "bare_slot_without_pending", nil, ""},
		{"selling scope", state.ContextState{}, "Bên bạn bán gì vậy", intent.AskSellingScope, "selling_scope", nil, ""},
		{"generic accessory", state.ContextState{}, "cho hỏi phụ kiện súng hàn", intent.AskSellingScope, "selling_scope", nil, ""},
		{"category on anchor", anchored, "còn chụp khí thì sao", intent.AccessoryBundleLookup, "bundle_on_anchor", []catalog.Category{catalog.CategoryNozzle}, "004002"},
		{"listing", state.ContextState{}, "liệt kê 2-4 mã chụp khí 350A", intent.List, "listing", []catalog.Category{catalog.CategoryNozzle}, ""},
		{"commercial", state.ContextState{}, "cho em báo giá", intent.OrderClose, "commercial", nil, ""},
		{"category mention", state.ContextState{}, "chụp khí 500A", intent.ProductLookup, "category_mention", []catalog.Category{catalog.CategoryNozzle}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := &fixedClassifier{tag: intent.Fallback}

			in, src := route(t, tt.prior, tt.text, now, cls)

			assert.Equal(t, intent.SourceRule, src)
			assert.Equal(t, tt.wantTag, in.Tag)
			assert.Equal(t, tt.wantRule, in.Rule)
			assert.Equal(t, tt.wantParts, in.Parts)
			assert.Equal(t, tt.anchor, in.AnchorSKU)
			assert.Zero(t, cls.calls)
		})
	}
}

func TestRoute_ScenarioStaleAmp(t *testing.T) {
	prior := state.ContextState{
		AnchorSKU:     "002005",
		PendingAction: state.PendingFillAmp,
		PendingParts:  []catalog.Category{catalog.CategoryNozzle},
		UpdatedAt:     t0,
	}

	fresh, _ := route(t, prior, "350A", t0.Add(5*time.Minute), nil)
	stale, _ := route(t, prior, "350A", t0.Add(20*time.Minute), nil)

	assert.Equal(t, intent.SlotFillAmp, fresh.Tag)
	assert.Equal(t, "002005", fresh.AnchorSKU)
	assert.Equal(t, catalog.Amp350, fresh.Amp)

	assert.Equal(t, intent.Clarify, stale.Tag)
	assert.Empty(t, stale.AnchorSKU)
	assert.Empty(t, stale.Parts)
}

func TestRoute_Deterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		in, _ := route(t, state.ContextState{}, "Cách điện 004002 dùng chụp khí gì", t0, nil)
		assert.Equal(t, intent.AccessoryBundleLookup, in.Tag)
		assert.Equal(t, []catalog.Category{catalog.CategoryNozzle}, in.Parts)
	}
}

func TestRoute_ClassifierFallback(t *testing.T) {
	t.Run("classifier decides unmatched text", func(t *testing.T) {
		cls := &fixedClassifier{tag: intent.OrderClose}
		in, src := route(t, state.ContextState{}, "em can tu van them", t0, cls)

		assert.Equal(t, 1, cls.calls)
		assert.Equal(t, intent.OrderClose, in.Tag)
		assert.Equal(t, intent.SourceLLM, src)
	})

	t.Run("llm failure falls back", func(t *testing.T) {
		p := stub.New(stub.Fail(stub.ErrScripted))
		cls := intent.NewClassifier(p, logger.NewNopLogger())

		in, src := route(t, state.ContextState{}, "em can tu van them", t0, cls)

		assert.Equal(t, intent.Fallback, in.Tag)
		assert.Equal(t, intent.SourceDefault, src)
	})

	t.Run("no classifier configured", func(t *testing.T) {
		in, src := route(t, state.ContextState{}, "em can tu van them", t0, nil)
		assert.Equal(t, intent.Fallback, in.Tag)
		assert.Equal(t, intent.SourceDefault, src)
	})

	t.Run("empty message clarifies", func(t *testing.T) {
		in, src := route(t, state.ContextState{}, "  ", t0, nil)
		assert.Equal(t, intent.Clarify, in.Tag)
		assert.Equal(t, intent.SourceRule, src)
	})
}
