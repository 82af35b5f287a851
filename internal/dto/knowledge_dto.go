package dto

type KnowledgeSearchRequest struct {
	Query string `query:"q" validate:"required,max=500"`
	K     int    `query:"k" validate:"omitempty,min=1,max=50"`
}

type KnowledgeChunkDTO struct {
	Id       string  `json:"id"`
	Tier     string  `json:"tier"`
	Tag      string  `json:"tag"`
	Priority string  `json:"priority"`
	Section  string  `json:"section,omitempty"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

type KnowledgeStatsResponse struct {
	Enabled       bool           `json:"enabled"`
	CoreEntries   int            `json:"core_entries"`
	DeltaEntries  int            `json:"delta_entries"`
	CoreByTag     map[string]int `json:"core_by_tag"`
	DeltaByTag    map[string]int `json:"delta_by_tag"`
	Corrupted     []string       `json:"corrupted,omitempty"`
	AppendedLines int64          `json:"appended_lines"`
}
