package dto

// LearningMessage is queued after an answered turn for the knowledge gate.
type LearningMessage struct {
	SessionId   string `json:"session_id"`
	UserMessage string `json:"user_message"`
	Answer      string `json:"answer"`
	Intent      string `json:"intent"`
	Anchor      string `json:"anchor"`
}
