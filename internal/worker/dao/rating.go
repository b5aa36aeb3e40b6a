package dao

import (
	"context"

	"web3-token-agent/internal/worker/model"
)

// RatingDAO 评分记录
type RatingDAO interface {
	Create(ctx context.Context, rating *model.TokenRating) error

	// GetByID 不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*model.TokenRating, error)

	// AttachTrade 写入交易子文档并返回更新后的记录
	AttachTrade(ctx context.Context, id string, trade model.TradeInfo) (*model.TokenRating, error)

	// ClaimTrade 下单前认领评分，只有未成交且未被认领的记录能认领成功
	ClaimTrade(ctx context.Context, id string, nowMs int64) (bool, error)

	// SetTradeID 记录已提交的托管交易 id
	SetTradeID(ctx context.Context, id, tradeID string) error

	// ReleaseTrade 交易确认失败后释放认领，允许重新下单
	ReleaseTrade(ctx context.Context, id string) error

	// ListPending 没有交易子文档、未被认领、非 NEUTRAL、且时间不早于 sinceMs 的评分
	ListPending(ctx context.Context, agentID string, sinceMs int64, limit int) ([]*model.TokenRating, error)

	// ListByToken 按时间倒序
	ListByToken(ctx context.Context, tokenAddress string, limit int) ([]*model.TokenRating, error)
}
