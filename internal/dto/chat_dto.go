package dto

import (
	"time"

	"tokinarc-sales-be/pkg/rag/guard"
	"tokinarc-sales-be/pkg/rag/state"
	"tokinarc-sales-be/pkg/store"
)

type SendChatRequest struct {
	SessionId string `json:"session_id" validate:"omitempty,uuid"`
	Message   string `json:"message" validate:"max=2000"`
}

type ImageDTO struct {
	URL                 string `json:"url"`
	SKU                 string `json:"sku"`
	AfterParagraphIndex int    `json:"after_paragraph_index"`
}

type SendChatResponse struct {
	SessionId    string          `json:"session_id"`
	Title        string          `json:"title"`
	AnswerText   string          `json:"answer_text"`
	Images       []ImageDTO      `json:"images"`
	Intent       string          `json:"intent"`
	IntentSource string          `json:"intent_source"`
	Directive    guard.Directive `json:"directive"`
	ThinkingLogs []string        `json:"thinking_logs"`
	// Degraded is set when the model was unreachable and the turn was not saved.
	Degraded bool `json:"degraded,omitempty"`
}

type SessionSummaryResponse struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SessionDetailResponse struct {
	SessionSummaryResponse
	Turns   []store.Turn       `json:"turns"`
	Context state.ContextState `json:"context"`
	Order   store.OrderState   `json:"order"`
}
