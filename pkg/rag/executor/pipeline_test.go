package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/ai/router"
	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/catalog/catalogtest"
	"tokinarc-sales-be/pkg/knowledge"
	"tokinarc-sales-be/pkg/llm"
	"tokinarc-sales-be/pkg/llm/stub"
	"tokinarc-sales-be/pkg/rag"
	"tokinarc-sales-be/pkg/rag/guard"
	"tokinarc-sales-be/pkg/rag/intent"
	"tokinarc-sales-be/pkg/rag/response"
	"tokinarc-sales-be/pkg/rag/search"
	"tokinarc-sales-be/pkg/rag/state"
	"tokinarc-sales-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixtureCatalog struct{ err error }

func (f fixtureCatalog) Load() (*catalog.Index, catalog.Meta, error) {
	if f.err != nil {
		return nil, catalog.Meta{}, f.err
	}
	return catalogtest.Index(), catalog.Meta{FileName: "fixture.json"}, nil
}

func newExecutor(t *testing.T, provider llm.LLMProvider, src CatalogSource, knowledgeDir string) *TurnExecutor {
	t.Helper()
	log := logger.NewNopLogger()
	ks := knowledge.NewStore(knowledge.Config{Dir: knowledgeDir, Enabled: true}, nil, log)
	require.NoError(t, ks.EnsureFiles())

	p := NewTurnExecutor(
		state.NewResolver(state.DefaultTTL, log),
		router.NewRouter(intent.NewClassifier(provider, log), log),
		search.NewEngine(search.DefaultMaxImages, log),
		src,
		ks,
		response.NewGenerator(provider, search.DefaultMaxImages, log),
		log,
	)
	p.now = func() time.Time { return t0 }
	return p
}

func replying(text string) *stub.Provider {
	p := stub.New()
	p.Default = stub.Reply(text)
	return p
}

func TestExecute_BundleScenario(t *testing.T) {
	p := newExecutor(t, replying("Dạ cách điện 004002 dùng chụp khí 003002 ạ."), fixtureCatalog{}, t.TempDir())

	out, err := p.Execute(context.Background(), store.NewSession("s1", t0), "Cách điện 004002 dùng chụp khí gì")
	require.NoError(t, err)

	assert.Equal(t, intent.AccessoryBundleLookup, out.Intent.Tag)
	assert.Equal(t, intent.SourceRule, out.Source)
	assert.Equal(t, "004002", out.Intent.AnchorSKU)
	assert.Equal(t, []catalog.Category{catalog.CategoryNozzle}, out.Intent.Parts)
	for _, r := range out.Result.Items {
		assert.Equal(t, catalog.CategoryNozzle, r.Category)
	}
	assert.Equal(t, guard.Directive{ShowProducts: true, ShowOriginLine: true, ShowHandRobotNote: true}, out.Directive)

	lines := strings.Split(out.Answer, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, guard.OriginLine, lines[1])
	assert.NotContains(t, out.Answer, guard.FormBlock)
	assert.NotEmpty(t, out.Images)

	assert.Equal(t, "004002", out.State.AnchorSKU)
	assert.Equal(t, t0, out.State.UpdatedAt)
	assert.Len(t, out.Logs, 6)
	assert.True(t, strings.HasPrefix(out.Logs[0], "[PHASE 1]"))
	assert.NotNil(t, out.Index)
}

func pendingAmpSession(updated time.Time) *store.Session {
	sess := store.NewSession("s1", updated)
	sess.Context = state.ContextState{
		AnchorSKU:      "004002",
		AnchorCategory: catalog.CategoryInsulator,
		PendingAction:  state.PendingFillAmp,
		PendingParts:   []catalog.Category{catalog.CategoryNozzle},
		UpdatedAt:      updated,
	}
	return sess
}

func TestExecute_SlotFillWithinTTL(t *testing.T) {
	p := newExecutor(t, replying("Dạ với dòng 350A Anh/Chị dùng chụp khí 003002 ạ."), fixtureCatalog{}, t.TempDir())

	out, err := p.Execute(context.Background(), pendingAmpSession(t0.Add(-5*time.Minute)), "350A")
	require.NoError(t, err)

	assert.Equal(t, intent.SlotFillAmp, out.Intent.Tag)
	assert.Equal(t, catalog.Amp350, out.State.Amp)
	assert.Equal(t, "004002", out.State.AnchorSKU)
	assert.Equal(t, state.PendingNone, out.State.PendingAction)
}

func TestExecute_SlotFillAfterTTL(t *testing.T) {
	provider := replying("không dùng")
	p := newExecutor(t, provider, fixtureCatalog{}, t.TempDir())

	out, err := p.Execute(context.Background(), pendingAmpSession(t0.Add(-20*time.Minute)), "350A")
	require.NoError(t, err)

	assert.Equal(t, intent.Clarify, out.Intent.Tag)
	assert.Empty(t, out.State.AnchorSKU)
	assert.Equal(t, response.AskSKUGroupReply, out.Answer)
	assert.Zero(t, provider.Calls())
}

func TestExecute_EmptyMessage(t *testing.T) {
	provider := stub.New()
	p := newExecutor(t, provider, fixtureCatalog{}, t.TempDir())
	sess := pendingAmpSession(t0.Add(-time.Minute))

	out, err := p.Execute(context.Background(), sess, "   ")
	require.NoError(t, err)

	assert.Equal(t, intent.Clarify, out.Intent.Tag)
	assert.Equal(t, response.AskSKUGroupReply, out.Answer)
	assert.Equal(t, sess.Context, out.State)
	assert.Zero(t, provider.Calls())
}

func TestExecute_UpstreamUnavailable(t *testing.T) {
	failure := fmt.Errorf("chat after 3 attempt(s): %w", rag.ErrUpstreamUnavailable)
	provider := stub.New()
	provider.Default = stub.Fail(failure)
	p := newExecutor(t, provider, fixtureCatalog{}, t.TempDir())

	out, err := p.Execute(context.Background(), store.NewSession("s1", t0), "Cách điện 004002 dùng chụp khí gì")

	assert.Nil(t, out)
	assert.ErrorIs(t, err, rag.ErrUpstreamUnavailable)
}

func TestExecute_CatalogFailure(t *testing.T) {
	boom := errors.New("catalog file missing")
	p := newExecutor(t, replying("x"), fixtureCatalog{err: boom}, t.TempDir())

	_, err := p.Execute(context.Background(), store.NewSession("s1", t0), "chụp khí 350A")
	assert.ErrorIs(t, err, boom)
}

func TestExecute_CorruptedKnowledgeDoesNotFailTurn(t *testing.T) {
	dir := t.TempDir()
	p := newExecutor(t, replying("Dạ đây là chụp khí 003002 ạ."), fixtureCatalog{}, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, knowledge.DeltaFileName), []byte("- [oops\n"), 0o644))

	out, err := p.Execute(context.Background(), store.NewSession("s1", t0), "chụp khí 003002")
	require.NoError(t, err)
	assert.Equal(t, intent.CodeLookup, out.Intent.Tag)
	assert.NotEmpty(t, out.Answer)
}

func TestExecute_RangeWithUnicodeDash(t *testing.T) {
	p := newExecutor(t, replying("Dạ hiện chỉ có một mã chụp khí 500A ạ."), fixtureCatalog{}, t.TempDir())

	for _, msg := range []string{"liệt kê 2-4 chụp khí 500A", "liệt kê 2\u20134 chụp khí 500A", "liệt kê 2\u20144 chụp khí 500A"} {
		t.Run(msg, func(t *testing.T) {
			out, err := p.Execute(context.Background(), store.NewSession("s1", t0), msg)
			require.NoError(t, err)

			assert.Equal(t, 2, out.Intent.RangeMin)
			assert.Equal(t, 4, out.Intent.RangeMax)
			assert.Equal(t, search.OutcomeSingleUnderConstrained, out.Result.Outcome)
			assert.Len(t, out.Result.Items, 1)
		})
	}
}

func TestExecute_RobotAnchorDropsHandNote(t *testing.T) {
	p := newExecutor(t, replying("Dạ cách điện U4167L00 dùng chụp khí robot 003010 ạ."), fixtureCatalog{}, t.TempDir())

	out, err := p.Execute(context.Background(), store.NewSession("s1", t0), "Cách điện U4167L00 dùng chụp khí gì")
	require.NoError(t, err)

	assert.Equal(t, intent.AccessoryBundleLookup, out.Intent.Tag)
	assert.Equal(t, "004100", out.Result.Filters.AnchorSKU)
	assert.Equal(t, catalog.Robot, out.Result.Filters.HandRobot)
	assert.False(t, out.Directive.ShowHandRobotNote)
	assert.NotContains(t, out.Answer, "súng hàn tay")
	assert.Equal(t, catalog.Robot, out.State.HandRobot)
}
