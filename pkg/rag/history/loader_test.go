package history_test

import (
	"testing"
	"time"

	"tokinarc-sales-be/pkg/llm"
	"tokinarc-sales-be/pkg/rag/history"
	"tokinarc-sales-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func TestFromSession(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	sess := store.NewSession("s1", now)
	sess.AddTurn(store.RoleUser, "Cách điện 004002 dùng chụp khí gì", now)
	sess.AddTurn(store.RoleAssistant, "Dạ dùng chụp khí 003002 ạ.\nXuất xứ: Tokinarc – Nhật Bản 🇯🇵\n\n**Chụp khí (Tokin 003002)**", now)
	sess.AddTurn(store.RoleUser, "ok", now)

	got := history.FromSession(sess, 10)

	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "Cách điện 004002 dùng chụp khí gì"},
		{Role: llm.RoleAssistant, Content: "Dạ dùng chụp khí 003002 ạ.\n\n**Chụp khí (Tokin 003002)**"},
		{Role: llm.RoleUser, Content: "ok"},
	}, got)

	last := history.FromSession(sess, 1)
	assert.Equal(t, []llm.Message{{Role: llm.RoleUser, Content: "ok"}}, last)
	assert.Nil(t, history.FromSession(nil, 5))
}
