package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tokinarc-sales-be/internal/bootstrap"
	"tokinarc-sales-be/internal/config"
	"tokinarc-sales-be/internal/dto"
	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/internal/pkg/serverutils"
	"tokinarc-sales-be/internal/server"
	"tokinarc-sales-be/pkg/catalog/catalogtest"
	"tokinarc-sales-be/pkg/llm/stub"
	"tokinarc-sales-be/pkg/rag"
	"tokinarc-sales-be/pkg/rag/guard"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	catalogPath, err := catalogtest.WriteJSON(dir)
	require.NoError(t, err)

	return &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			CorsAllowedOrigins: "*",
			SessionBackend:     "memory",
			MaxSessions:        3,
		},
		Sales: config.SalesConfig{
			CatalogPath:    catalogPath,
			ShortMemoryTTL: 15 * time.Minute,
			MaxImages:      4,
			HistoryTurns:   10,
		},
		Knowledge: config.KnowledgeConfig{
			Enabled:     true,
			Dir:         filepath.Join(dir, "knowledge"),
			MaxNewLines: 5,
			TopK:        6,
			MinScore:    1,
		},
		Ai: config.AIConfig{
			LLMProvider:     "stub",
			MaxAttempts:     2,
			RetryInitial:    time.Millisecond,
			RetryMax:        2 * time.Millisecond,
			RetryMultiplier: 2,
		},
	}
}

func newApp(t *testing.T, provider *stub.Provider) *fiber.App {
	t.Helper()
	cfg := testConfig(t)
	container := bootstrap.NewContainerWithProvider(cfg, provider, logger.NewNopLogger())
	t.Cleanup(container.Close)
	return server.New(cfg, container).GetApp()
}

func send(t *testing.T, app *fiber.App, sessionId, message string) (int, serverutils.BaseResponse[dto.SendChatResponse]) {
	t.Helper()
	body, _ := json.Marshal(dto.SendChatRequest{SessionId: sessionId, Message: message})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/v1/send", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var result serverutils.BaseResponse[dto.SendChatResponse]
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &result)
	return resp.StatusCode, result
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}

func TestChatFlow(t *testing.T) {
	provider := stub.New()
	provider.Default = stub.Reply("Dạ cách điện 004002 dùng chụp khí 003002 ạ.")
	app := newApp(t, provider)

	var sessionId string

	t.Run("Bundle question shows products with origin line and note", func(t *testing.T) {
		status, res := send(t, app, "", "Cách điện 004002 dùng chụp khí gì")
		require.Equal(t, 200, status)
		assert.True(t, res.Success)

		sessionId = res.Data.SessionId
		assert.NotEmpty(t, sessionId)
		assert.Equal(t, "ACCESSORY_BUNDLE_LOOKUP", res.Data.Intent)
		assert.Equal(t, guard.Directive{ShowProducts: true, ShowOriginLine: true, ShowHandRobotNote: true}, res.Data.Directive)
		assert.NotContains(t, res.Data.AnswerText, guard.FormBlock)

		lines := strings.Split(res.Data.AnswerText, "\n")
		require.GreaterOrEqual(t, len(lines), 2)
		assert.Equal(t, guard.OriginLine, lines[1])
		assert.NotEmpty(t, res.Data.Images)
		assert.NotEmpty(t, res.Data.ThinkingLogs)
	})

	t.Run("Follow-up keeps the session", func(t *testing.T) {
		status, res := send(t, app, sessionId, "350A")
		require.Equal(t, 200, status)
		assert.Equal(t, sessionId, res.Data.SessionId)
	})

	t.Run("Session detail has both turns and the anchor", func(t *testing.T) {
		status, raw := get(t, app, "/api/chat/v1/sessions/"+sessionId)
		require.Equal(t, 200, status)

		var res serverutils.BaseResponse[dto.SessionDetailResponse]
		require.NoError(t, json.Unmarshal(raw, &res))
		assert.Len(t, res.Data.Turns, 4)
		assert.Equal(t, "004002", res.Data.Context.AnchorSKU)
	})

	t.Run("Sessions list", func(t *testing.T) {
		status, raw := get(t, app, "/api/chat/v1/sessions")
		require.Equal(t, 200, status)

		var res serverutils.BaseResponse[[]dto.SessionSummaryResponse]
		require.NoError(t, json.Unmarshal(raw, &res))
		require.Len(t, res.Data, 1)
		assert.Equal(t, sessionId, res.Data[0].Id)
	})

	t.Run("Unknown session is 404", func(t *testing.T) {
		status, _ := get(t, app, "/api/chat/v1/sessions/does-not-exist")
		assert.Equal(t, 404, status)
	})

	t.Run("Invalid session id is rejected", func(t *testing.T) {
		status, res := send(t, app, "not-a-uuid", "xin chào")
		assert.Equal(t, 400, status)
		assert.False(t, res.Success)
	})
}

func TestChatFlow_UpstreamDown(t *testing.T) {
	provider := stub.New()
	provider.Default = stub.Fail(rag.ErrUpstreamUnavailable)
	app := newApp(t, provider)

	status, res := send(t, app, "", "Cách điện 004002 dùng chụp khí gì")
	require.Equal(t, 200, status)
	assert.True(t, res.Data.Degraded)

	_, raw := get(t, app, "/api/chat/v1/sessions")
	var list serverutils.BaseResponse[[]dto.SessionSummaryResponse]
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Empty(t, list.Data)
}

func TestKnowledgeEndpoints(t *testing.T) {
	app := newApp(t, stub.New())

	status, raw := get(t, app, "/api/knowledge/v1/search?q="+url.QueryEscape("chụp khí")+"&k=2")
	require.Equal(t, 200, status)
	var search serverutils.BaseResponse[[]dto.KnowledgeChunkDTO]
	require.NoError(t, json.Unmarshal(raw, &search))
	require.NotEmpty(t, search.Data)
	assert.LessOrEqual(t, len(search.Data), 2)
	assert.Equal(t, "core", search.Data[0].Tier)

	status, _ = get(t, app, "/api/knowledge/v1/search")
	assert.Equal(t, 400, status)

	status, raw = get(t, app, "/api/knowledge/v1/stats")
	require.Equal(t, 200, status)
	var stats serverutils.BaseResponse[dto.KnowledgeStatsResponse]
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.True(t, stats.Data.Enabled)
	assert.Positive(t, stats.Data.CoreEntries)
	assert.Empty(t, stats.Data.Corrupted)
}

func TestHealth(t *testing.T) {
	app := newApp(t, stub.New())
	status, _ := get(t, app, "/api/health")
	assert.Equal(t, 200, status)
}
