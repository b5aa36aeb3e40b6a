package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"web3-token-agent/internal/worker/model"

	"gorm.io/gorm"
)

type ratingDAO struct {
	db *gorm.DB
}

func NewRatingDAO(db *gorm.DB) RatingDAO {
	return &ratingDAO{db: db}
}

func (r *ratingDAO) Create(ctx context.Context, rating *model.TokenRating) error {
	return r.db.WithContext(ctx).Create(rating).Error
}

func (r *ratingDAO) GetByID(ctx context.Context, id string) (*model.TokenRating, error) {
	var rating model.TokenRating
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rating, nil
}

func (r *ratingDAO) AttachTrade(ctx context.Context, id string, trade model.TradeInfo) (*model.TokenRating, error) {
	data, err := model.EncodeTrade(trade)
	if err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).
		Model(&model.TokenRating{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"trade":      data,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("rating %s not found", id)
	}
	return r.GetByID(ctx, id)
}

func (r *ratingDAO) ClaimTrade(ctx context.Context, id string, nowMs int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.TokenRating{}).
		Where("id = ? AND trade IS NULL AND submitted_at IS NULL", id).
		Updates(map[string]any{
			"submitted_at": nowMs,
			"updated_at":   gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ratingDAO) SetTradeID(ctx context.Context, id, tradeID string) error {
	return r.db.WithContext(ctx).
		Model(&model.TokenRating{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"trade_id":   tradeID,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *ratingDAO) ReleaseTrade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.TokenRating{}).
		Where("id = ? AND trade IS NULL", id).
		Updates(map[string]any{
			"submitted_at": nil,
			"trade_id":     nil,
			"updated_at":   gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *ratingDAO) ListPending(ctx context.Context, agentID string, sinceMs int64, limit int) ([]*model.TokenRating, error) {
	var ratings []*model.TokenRating
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND trade IS NULL AND submitted_at IS NULL AND score <> ? AND timestamp >= ?", agentID, model.ScoreNeutral, sinceMs).
		Order("timestamp ASC").
		Limit(limit).
		Find(&ratings).Error
	return ratings, err
}

func (r *ratingDAO) ListByToken(ctx context.Context, tokenAddress string, limit int) ([]*model.TokenRating, error) {
	var ratings []*model.TokenRating
	err := r.db.WithContext(ctx).
		Where("LOWER(token_address) = ?", strings.ToLower(tokenAddress)).
		Order("timestamp DESC").
		Limit(limit).
		Find(&ratings).Error
	return ratings, err
}
