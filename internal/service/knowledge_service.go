package service

import (
	"context"

	"tokinarc-sales-be/internal/dto"
	"tokinarc-sales-be/pkg/knowledge"
)

type IKnowledgeService interface {
	Search(ctx context.Context, request *dto.KnowledgeSearchRequest) ([]*dto.KnowledgeChunkDTO, error)
	Stats(ctx context.Context) (*dto.KnowledgeStatsResponse, error)
}

type knowledgeService struct {
	store *knowledge.Store
	gate  *knowledge.Gate
}

func NewKnowledgeService(store *knowledge.Store, gate *knowledge.Gate) IKnowledgeService {
	return &knowledgeService{store: store, gate: gate}
}

func (ks *knowledgeService) Search(ctx context.Context, request *dto.KnowledgeSearchRequest) ([]*dto.KnowledgeChunkDTO, error) {
	k := request.K
	if k <= 0 {
		k = ks.store.TopK()
	}

	chunks, err := ks.store.Retrieve(ctx, request.Query, k)
	if err != nil && len(chunks) == 0 {
		return nil, err
	}

	res := make([]*dto.KnowledgeChunkDTO, 0, len(chunks))
	for _, c := range chunks {
		res = append(res, &dto.KnowledgeChunkDTO{
			Id:       c.ID,
			Tier:     string(c.Tier),
			Tag:      string(c.Entry.Tag),
			Priority: string(c.Entry.Priority),
			Section:  c.Section,
			Content:  c.Content,
			Score:    c.Score,
		})
	}
	return res, nil
}

func (ks *knowledgeService) Stats(ctx context.Context) (*dto.KnowledgeStatsResponse, error) {
	st := ks.store.Stats(ctx)

	res := &dto.KnowledgeStatsResponse{
		Enabled:      ks.store.Enabled(),
		CoreEntries:  st.CoreEntries,
		DeltaEntries: st.DeltaEntries,
		CoreByTag:    tagCounts(st.CoreByTag),
		DeltaByTag:   tagCounts(st.DeltaByTag),
		Corrupted:    st.Corrupted,
	}
	if ks.gate != nil {
		res.AppendedLines = ks.gate.Appended()
	}
	return res, nil
}

func tagCounts(in map[knowledge.Tag]int) map[string]int {
	out := make(map[string]int, len(in))
	for tag, n := range in {
		out[string(tag)] = n
	}
	return out
}
