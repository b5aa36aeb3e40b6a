package service

import (
	"context"
	"fmt"
	"time"

	"web3-token-agent/internal/worker/dao"
	"web3-token-agent/internal/worker/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RatingIndexer 评分写库后的异步下游（ES、分析库）
type RatingIndexer interface {
	Submit(item *model.TokenRating)
}

// RatingService 评分存取，主库写成功后推给各下游
type RatingService struct {
	dao      dao.RatingDAO
	indexers []RatingIndexer
	tl       *zap.Logger
}

func NewRatingService(ratingDAO dao.RatingDAO, tl *zap.Logger, indexers ...RatingIndexer) *RatingService {
	return &RatingService{dao: ratingDAO, indexers: indexers, tl: tl}
}

func (s *RatingService) publish(r *model.TokenRating) {
	for _, idx := range s.indexers {
		idx.Submit(r)
	}
}

// Save NEUTRAL 不落库，返回 false
func (s *RatingService) Save(ctx context.Context, r *model.TokenRating) (bool, error) {
	if r.Score == model.ScoreNeutral {
		return false, nil
	}
	if !r.Score.Valid() {
		return false, fmt.Errorf("invalid token score %d", r.Score)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
	if err := s.dao.Create(ctx, r); err != nil {
		return false, fmt.Errorf("save rating: %w", err)
	}
	s.publish(r)
	return true, nil
}

func (s *RatingService) Get(ctx context.Context, id string) (*model.TokenRating, error) {
	return s.dao.GetByID(ctx, id)
}

// AttachTrade 回写交易结果
func (s *RatingService) AttachTrade(ctx context.Context, id string, trade model.TradeInfo) (*model.TokenRating, error) {
	r, err := s.dao.AttachTrade(ctx, id, trade)
	if err != nil {
		return nil, fmt.Errorf("attach trade to rating %s: %w", id, err)
	}
	s.publish(r)
	return r, nil
}

// ClaimTrade 认领评分的下单权，false 表示已成交或已有进行中的交易
func (s *RatingService) ClaimTrade(ctx context.Context, id string) (bool, error) {
	ok, err := s.dao.ClaimTrade(ctx, id, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("claim rating %s: %w", id, err)
	}
	return ok, nil
}

// MarkSubmitted 记录托管服务返回的交易 id，便于人工对账
func (s *RatingService) MarkSubmitted(ctx context.Context, id, tradeID string) error {
	if err := s.dao.SetTradeID(ctx, id, tradeID); err != nil {
		return fmt.Errorf("mark rating %s submitted: %w", id, err)
	}
	return nil
}

// ReleaseTrade 交易以失败终态结束时释放认领
func (s *RatingService) ReleaseTrade(ctx context.Context, id string) error {
	if err := s.dao.ReleaseTrade(ctx, id); err != nil {
		return fmt.Errorf("release rating %s: %w", id, err)
	}
	return nil
}

// ListPending window 内尚未成交且未被认领的评分
func (s *RatingService) ListPending(ctx context.Context, agentID string, window time.Duration, limit int) ([]*model.TokenRating, error) {
	since := time.Now().Add(-window).UnixMilli()
	return s.dao.ListPending(ctx, agentID, since, limit)
}

func (s *RatingService) ListByToken(ctx context.Context, tokenAddress string, limit int) ([]*model.TokenRating, error) {
	return s.dao.ListByToken(ctx, tokenAddress, limit)
}
