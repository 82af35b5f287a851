package service

import (
	"context"
	"encoding/json"
	"time"

	"tokinarc-sales-be/internal/dto"
	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/events"
	"tokinarc-sales-be/pkg/knowledge"
	"tokinarc-sales-be/pkg/rag/executor"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ILearningConsumer drains the learning topic in the background.
type ILearningConsumer interface {
	Consume(ctx context.Context) error
	Process(ctx context.Context, msg dto.LearningMessage) (knowledge.Report, error)
}

type learningConsumer struct {
	pubSub    *gochannel.GoChannel
	topicName string
	catalog   executor.CatalogSource
	extractor *knowledge.Extractor
	gate      *knowledge.Gate
	events    events.Publisher
	logger    logger.ILogger
}

func NewLearningConsumer(
	pubSub *gochannel.GoChannel,
	topicName string,
	catalogSource executor.CatalogSource,
	extractor *knowledge.Extractor,
	gate *knowledge.Gate,
	eventPublisher events.Publisher,
	logger logger.ILogger,
) ILearningConsumer {
	return &learningConsumer{
		pubSub:    pubSub,
		topicName: topicName,
		catalog:   catalogSource,
		extractor: extractor,
		gate:      gate,
		events:    eventPublisher,
		logger:    logger,
	}
}

func (lc *learningConsumer) Consume(ctx context.Context) error {
	messages, err := lc.pubSub.Subscribe(ctx, lc.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			lc.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (lc *learningConsumer) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.LearningMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		lc.logger.Error("LEARNING", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	if _, err := lc.Process(ctx, payload); err != nil {
		// a corrupted tier or an unreadable catalog will not heal on redelivery
		lc.logger.Error("LEARNING", "Gate run failed", map[string]interface{}{"session_id": payload.SessionId, "error": err.Error()})
	}
	msg.Ack()
}

// Process runs extractor and gate for one turn and announces the result.
func (lc *learningConsumer) Process(ctx context.Context, msg dto.LearningMessage) (knowledge.Report, error) {
	turn := knowledge.TurnRecord{
		UserMessage: msg.UserMessage,
		Answer:      msg.Answer,
		Intent:      msg.Intent,
		Anchor:      msg.Anchor,
	}

	candidates := lc.extractor.Propose(ctx, turn)
	if len(candidates) == 0 {
		lc.logger.Debug("LEARNING", "No candidates proposed", map[string]interface{}{"session_id": msg.SessionId})
		return knowledge.Report{}, nil
	}

	idx, _, err := lc.catalog.Load()
	if err != nil {
		return knowledge.Report{}, err
	}

	report, err := lc.gate.ProposeAndGate(ctx, candidates, idx, turn.Context())
	if err != nil {
		return report, err
	}

	lc.logger.Info("LEARNING", "Gate finished", map[string]interface{}{
		"session_id": msg.SessionId,
		"proposed":   len(candidates),
		"appended":   report.Appended,
		"rejected":   len(report.Rejected),
	})

	ev := events.KnowledgeAppended(msg.SessionId, report.Appended, len(report.Rejected), lc.gate.Appended(), time.Now())
	if err := lc.events.Publish(ctx, ev); err != nil {
		lc.logger.Warn("LEARNING", "Failed to publish event", map[string]interface{}{"error": err.Error()})
	}
	return report, nil
}
