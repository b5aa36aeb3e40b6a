package job

import (
	"context"
	"fmt"
	"time"

	"web3-token-agent/internal/worker/action"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/runtime"

	"go.uber.org/zap"
)

const (
	pendingTradesRoom  = "pending-trades"
	pendingTradesLimit = 20
)

type PendingLister interface {
	ListPending(ctx context.Context, agentID string, window time.Duration, limit int) ([]*model.TokenRating, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg *model.Message, cb runtime.Callback) error
}

// PendingTradesJob 补发窗口期内还没成交的评分
type PendingTradesJob struct {
	agentID    string
	window     time.Duration
	ratings    PendingLister
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewPendingTradesJob(agentID string, window time.Duration, ratings PendingLister, dispatcher Dispatcher, logger *zap.Logger) *PendingTradesJob {
	return &PendingTradesJob{
		agentID:    agentID,
		window:     window,
		ratings:    ratings,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (j *PendingTradesJob) Run(ctx context.Context) error {
	pending, err := j.ratings.ListPending(ctx, j.agentID, j.window, pendingTradesLimit)
	if err != nil {
		return fmt.Errorf("list pending ratings: %w", err)
	}
	for _, r := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		payload := action.ScorePayload{
			TokenRequest: action.TokenRequest{Ticker: r.Ticker, InputTokenAddress: r.TokenAddress, Chain: r.Chain},
			Score:        r.Score,
			ObjectID:     r.ID,
		}
		msg := &model.Message{
			AgentID: j.agentID,
			UserID:  j.agentID,
			RoomID:  pendingTradesRoom,
			Content: model.Content{Action: action.ExecuteTradeName, Source: "job", Data: payload.ToMap()},
		}
		if err := j.dispatcher.Dispatch(ctx, msg, nil); err != nil {
			j.logger.Warn("Pending trade dispatch failed", zap.String("rating_id", r.ID), zap.Error(err))
		}
	}
	if len(pending) > 0 {
		j.logger.Info("Pending trades dispatched", zap.Int("count", len(pending)))
	}
	return nil
}
