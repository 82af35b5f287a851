package search_test

import (
	"errors"
	"testing"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/catalog/catalogtest"
	"tokinarc-sales-be/pkg/rag"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/search"
	"tokinarc-sales-be/pkg/rag/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skus(recs []catalog.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.SKU)
	}
	return out
}

func newEngine(maxImages int) *search.Engine {
	return search.NewEngine(maxImages, logger.NewNopLogger())
}

func TestRetrieve_BundleByAnchor(t *testing.T) {
	in := intent.Intent{
		Tag:       intent.AccessoryBundleLookup,
		AnchorSKU: "004002",
		SKUs:      []string{"004002"},
		Parts:     []catalog.Category{catalog.CategoryNozzle},
	}

	res := newEngine(4).Retrieve(in, state.ContextState{}, catalogtest.Index())

	assert.Equal(t, search.OutcomeMatched, res.Outcome)
	assert.Equal(t, []string{"003002"}, skus(res.Items))
	assert.Equal(t, 1, res.Total)
	require.NotNil(t, res.Anchor)
	assert.Equal(t, "004002", res.Anchor.SKU)
	assert.Equal(t, "004002", res.Filters.AnchorSKU)
	assert.NoError(t, res.Err())
}

func TestRetrieve_AnchorCategoryExcludedFromParts(t *testing.T) {
	in := intent.Intent{
		Tag:       intent.AccessoryBundleLookup,
		AnchorSKU: "004002",
		Parts:     catalog.BundleCategories,
	}

	res := newEngine(10).Retrieve(in, state.ContextState{}, catalogtest.Index())

	assert.NotContains(t, res.Filters.Parts, catalog.CategoryInsulator)
	assert.ElementsMatch(t, []string{"002001", "003002", "001003"}, skus(res.Items))
}

func TestRetrieve_ExactPath(t *testing.T) {
	tests := []struct {
		name    string
		codes   []string
		want    []string
		unknown []string
		outcome search.Outcome
	}{
		{"single sku", []string{"003002"}, []string{"003002"}, nil, search.OutcomeMatched},
		{"d code", []string{"U4167L00"}, []string{"004100"}, nil, search.OutcomeMatched},
		{"unknown never substituted", []string{"003003"}, []string{}, []string{"003003"}, search.OutcomeNoMatch},
		{"mixed", []string{"003002", "999999"}, []string{"003002"}, []string{"999999"}, search.OutcomeMatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newEngine(4).Retrieve(intent.Intent{Tag: intent.CodeLookup, SKUs: tt.codes}, state.ContextState{}, catalogtest.Index())

			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.want, skus(res.Items))
			assert.Equal(t, tt.unknown, res.Unknown)
		})
	}
}

func TestRetrieve_SingleQualifyingSKU(t *testing.T) {
	in := intent.Intent{Tag: intent.ProductLookup, Parts: []catalog.Category{catalog.CategoryOrifice}, Amp: catalog.Amp500}

	res := newEngine(4).Retrieve(in, state.ContextState{}, catalogtest.Index())

	assert.Equal(t, []string{"001004"}, skus(res.Items))
	assert.Equal(t, 1, res.Total)
}

func TestRetrieve_NeedsDisambiguation(t *testing.T) {
	in := intent.Intent{Tag: intent.AccessoryBundleLookup, Parts: []catalog.Category{catalog.CategoryNozzle}}

	res := newEngine(4).Retrieve(in, state.ContextState{}, catalogtest.Index())

	assert.Equal(t, search.OutcomeNeedsDisambiguation, res.Outcome)
	assert.Empty(t, res.Items)
	assert.Equal(t, []string{search.SlotAmp}, res.Missing)
	assert.True(t, errors.Is(res.Err(), rag.ErrAmbiguousSlot))

	in.Tag = intent.SlotFillAmp
	filled := newEngine(4).Retrieve(in, state.ContextState{Amp: catalog.Amp350}, catalogtest.Index())
	assert.Equal(t, search.OutcomeMatched, filled.Outcome)
	assert.Equal(t, []string{"003002"}, skus(filled.Items))
}

func TestRetrieve_UnderConstrained(t *testing.T) {
	in := intent.Intent{
		Tag:      intent.List,
		Parts:    []catalog.Category{catalog.CategoryNozzle},
		Amp:      catalog.Amp500,
		RangeMin: 2,
		RangeMax: 4,
	}

	res := newEngine(4).Retrieve(in, state.ContextState{}, catalogtest.Index())

	assert.Equal(t, search.OutcomeSingleUnderConstrained, res.Outcome)
	assert.Equal(t, []string{"003005"}, skus(res.Items))
	assert.True(t, errors.Is(res.Err(), rag.ErrUnderConstrained))
}

func TestRetrieve_DisplayCap(t *testing.T) {
	in := intent.Intent{
		Tag:       intent.ProductLookup,
		Parts:     []catalog.Category{catalog.CategoryNozzle, catalog.CategoryInsulator, catalog.CategoryOrifice},
		HandRobot: catalog.Hand,
	}

	res := newEngine(2).Retrieve(in, state.ContextState{}, catalogtest.Index())

	assert.Len(t, res.Items, 2)
	assert.Equal(t, 6, res.Total)
	assert.True(t, res.Truncated)
}

func TestRetrieve_NoMatch(t *testing.T) {
	t.Run("empty catalog", func(t *testing.T) {
		in := intent.Intent{Tag: intent.ProductLookup, Parts: []catalog.Category{catalog.CategoryNozzle}, Amp: catalog.Amp350}
		res := newEngine(4).Retrieve(in, state.ContextState{}, catalog.NewIndex(nil))

		assert.Equal(t, search.OutcomeNoMatch, res.Outcome)
		assert.Equal(t, catalog.Amp350, res.Filters.Amp)
		assert.Equal(t, []catalog.Category{catalog.CategoryNozzle}, res.Filters.Parts)
		assert.True(t, errors.Is(res.Err(), rag.ErrNoMatch))
	})

	t.Run("unknown anchor", func(t *testing.T) {
		in := intent.Intent{Tag: intent.AccessoryBundleLookup, AnchorSKU: "012345", Parts: []catalog.Category{catalog.CategoryNozzle}}
		res := newEngine(4).Retrieve(in, state.ContextState{}, catalogtest.Index())

		assert.Equal(t, search.OutcomeNoMatch, res.Outcome)
		assert.Equal(t, []string{"012345"}, res.Unknown)
	})
}

func TestRetrieve_SkippedIntents(t *testing.T) {
	for _, tag := range []intent.Tag{intent.AskSellingScope, intent.Clarify, intent.Fallback} {
		res := newEngine(4).Retrieve(intent.Intent{Tag: tag}, state.ContextState{}, catalogtest.Index())
		assert.Equal(t, search.OutcomeSkipped, res.Outcome)
		assert.NoError(t, res.Err())
	}
}
