package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tokinarc-sales-be/internal/dto"
	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/internal/pkg/serverutils"
	"tokinarc-sales-be/internal/repository/contract"
	"tokinarc-sales-be/pkg/events"
	"tokinarc-sales-be/pkg/rag"
	"tokinarc-sales-be/pkg/rag/executor"
	"tokinarc-sales-be/pkg/rag/response"
	"tokinarc-sales-be/pkg/store"

	"github.com/google/uuid"
)

type IChatService interface {
	SendChat(ctx context.Context, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	GetAllSessions(ctx context.Context) ([]*dto.SessionSummaryResponse, error)
	GetSession(ctx context.Context, id string) (*dto.SessionDetailResponse, error)
}

type chatService struct {
	sessionRepo contract.SessionRepository
	executor    *executor.TurnExecutor
	publisher   IPublisherService
	events      events.Publisher
	learning    bool
	logger      logger.ILogger
	locks       *keyedMutex
	now         func() time.Time
}

// NewChatService wires the turn executor to session storage. publisher may
// be nil, which disables self-learning.
func NewChatService(
	sessionRepo contract.SessionRepository,
	turnExecutor *executor.TurnExecutor,
	publisher IPublisherService,
	eventPublisher events.Publisher,
	logger logger.ILogger,
) IChatService {
	return &chatService{
		sessionRepo: sessionRepo,
		executor:    turnExecutor,
		publisher:   publisher,
		events:      eventPublisher,
		learning:    publisher != nil,
		logger:      logger,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

func (cs *chatService) SendChat(ctx context.Context, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	sessionId := request.SessionId
	if sessionId == "" {
		sessionId = uuid.New().String()
	}

	unlock := cs.locks.Lock(sessionId)
	defer unlock()

	sess, err := cs.sessionRepo.Get(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = store.NewSession(sessionId, cs.now())
	}

	result, err := cs.executor.Execute(ctx, sess, request.Message)
	if errors.Is(err, rag.ErrUpstreamUnavailable) {
		cs.logger.Warn("CHAT", "Model unavailable, turn not saved", map[string]interface{}{"session_id": sessionId, "error": err.Error()})
		return &dto.SendChatResponse{
			SessionId:    sessionId,
			Title:        sess.Title,
			AnswerText:   response.UpstreamApology,
			Images:       []dto.ImageDTO{},
			ThinkingLogs: []string{},
			Degraded:     true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	res := cs.toResponse(sessionId, result)

	// nothing to remember for a blank message
	if strings.TrimSpace(request.Message) == "" {
		res.Title = sess.Title
		return res, nil
	}

	now := cs.now()
	sess.AddTurn(store.RoleUser, request.Message, now)
	sess.AddTurn(store.RoleAssistant, result.Answer, now)
	sess.Context = result.State
	if result.Intent.Quantity > 0 {
		sess.Order.Quantity = result.Intent.Quantity
	}
	if result.Result.Anchor != nil {
		sess.Order.SelectedSKU = result.Result.Anchor.SKU
	} else if len(result.Result.Items) == 1 {
		sess.Order.SelectedSKU = result.Result.Items[0].SKU
	}
	if result.Directive.ShowForm {
		sess.Order.AskedForm = true
	}

	if err := cs.sessionRepo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	res.Title = sess.Title

	cs.afterTurn(ctx, sessionId, request.Message, result)
	return res, nil
}

// afterTurn publishes the turn event and queues learning. Failures are
// logged only; the answer has already been saved.
func (cs *chatService) afterTurn(ctx context.Context, sessionId, message string, result *executor.TurnResult) {
	ev := events.TurnCompleted(sessionId, string(result.Intent.Tag), string(result.Source), string(result.Result.Outcome), len(result.Result.Items), cs.now())
	if err := cs.events.Publish(ctx, ev); err != nil {
		cs.logger.Warn("CHAT", "Failed to publish turn event", map[string]interface{}{"error": err.Error()})
	}

	if !cs.learning || !result.Intent.Tag.Technical() || !result.Result.HasItems() {
		return
	}
	err := cs.publisher.PublishLearning(ctx, dto.LearningMessage{
		SessionId:   sessionId,
		UserMessage: message,
		Answer:      result.Answer,
		Intent:      string(result.Intent.Tag),
		Anchor:      result.AnchorLabel(),
	})
	if err != nil {
		cs.logger.Warn("CHAT", "Failed to queue learning", map[string]interface{}{"error": err.Error()})
	}
}

func (cs *chatService) toResponse(sessionId string, result *executor.TurnResult) *dto.SendChatResponse {
	images := make([]dto.ImageDTO, 0, len(result.Images))
	for _, img := range result.Images {
		images = append(images, dto.ImageDTO{URL: img.URL, SKU: img.SKU, AfterParagraphIndex: img.AfterParagraphIndex})
	}
	logs := result.Logs
	if logs == nil {
		logs = []string{}
	}
	return &dto.SendChatResponse{
		SessionId:    sessionId,
		AnswerText:   result.Answer,
		Images:       images,
		Intent:       string(result.Intent.Tag),
		IntentSource: string(result.Source),
		Directive:    result.Directive,
		ThinkingLogs: logs,
	}
}

func (cs *chatService) GetAllSessions(ctx context.Context) ([]*dto.SessionSummaryResponse, error) {
	sessions, err := cs.sessionRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.SessionSummaryResponse, 0, len(sessions))
	for _, s := range sessions {
		summary := summaryOf(s)
		res = append(res, &summary)
	}
	return res, nil
}

func (cs *chatService) GetSession(ctx context.Context, id string) (*dto.SessionDetailResponse, error) {
	sess, err := cs.sessionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", id, serverutils.ErrNotFound)
	}

	turns := sess.Turns
	if turns == nil {
		turns = []store.Turn{}
	}
	return &dto.SessionDetailResponse{
		SessionSummaryResponse: summaryOf(sess),
		Turns:                  turns,
		Context:                sess.Context,
		Order:                  sess.Order,
	}, nil
}

func summaryOf(s *store.Session) dto.SessionSummaryResponse {
	return dto.SessionSummaryResponse{
		Id:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
