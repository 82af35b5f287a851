package history

import (
	"strings"

	"tokinarc-sales-be/pkg/llm"
	"tokinarc-sales-be/pkg/store"
)

// DefaultLimit is how many recent turns are replayed to the model.
const DefaultLimit = 10

// guardedPrefixes mark lines the guard inserts. They are dropped from the
// replayed history so the model never learns to write them itself.
var guardedPrefixes = []string{
	"Xuất xứ:",
	"🏢", "👤", "📞",
	"Dạ vâng ạ, hiện em đang tư vấn theo bộ phụ kiện",
}

// FromSession converts the last limit turns into chat messages, oldest first.
func FromSession(sess *store.Session, limit int) []llm.Message {
	if sess == nil || len(sess.Turns) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	turns := sess.Turns
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	messages := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		content := t.Text
		if t.Role == store.RoleAssistant {
			role = llm.RoleAssistant
			content = stripGuarded(content)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: content})
	}
	return messages
}

func stripGuarded(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if isGuarded(strings.TrimSpace(l)) {
			continue
		}
		kept = append(kept, l)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isGuarded(line string) bool {
	for _, p := range guardedPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
