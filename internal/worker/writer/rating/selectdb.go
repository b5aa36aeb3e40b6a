package rating

import (
	"context"
	"time"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/writer"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SelectDBRatingWriter 评分镜像到分析库（MySQL 协议），按 id upsert
type SelectDBRatingWriter struct {
	db *gorm.DB
	tl *zap.Logger
}

func NewSelectDBRatingWriter(db *gorm.DB, logger *zap.Logger) writer.BatchWriter[*model.TokenRating] {
	return &SelectDBRatingWriter{db: db, tl: logger}
}

func (sw *SelectDBRatingWriter) BWrite(ctx context.Context, ratings []*model.TokenRating) error {
	if len(ratings) == 0 {
		return nil
	}
	start := time.Now()
	ratings = deduplicateRatings(ratings)

	newCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := sw.db.WithContext(newCtx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(ratings, 500).Error
	if err != nil {
		sw.tl.Warn("SelectDB rating upsert failed", zap.Int("count", len(ratings)), zap.Error(err))
		return err
	}
	sw.tl.Debug("SelectDB rating upsert success", zap.Int("count", len(ratings)), zap.Duration("took", time.Since(start)))
	return nil
}

func (sw *SelectDBRatingWriter) Close() error {
	return nil
}

// deduplicateRatings 同 id 保留最后一条，保持首次出现的顺序
func deduplicateRatings(ratings []*model.TokenRating) []*model.TokenRating {
	idx := make(map[string]int, len(ratings))
	out := make([]*model.TokenRating, 0, len(ratings))
	for _, r := range ratings {
		if i, ok := idx[r.ID]; ok {
			out[i] = r
			continue
		}
		idx[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
