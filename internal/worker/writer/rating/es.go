package rating

import (
	"context"
	"time"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/writer"
	"web3-token-agent/pkg/elasticsearch"

	"go.uber.org/zap"
)

// IndexMapping 评分索引 mapping
var IndexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":            map[string]any{"type": "keyword"},
			"agent_id":      map[string]any{"type": "keyword"},
			"ticker":        map[string]any{"type": "keyword"},
			"token_address": map[string]any{"type": "keyword"},
			"chain":         map[string]any{"type": "keyword"},
			"score":         map[string]any{"type": "byte"},
			"score_label":   map[string]any{"type": "keyword"},
			"reason":        map[string]any{"type": "text"},
			"requester":     map[string]any{"type": "keyword"},
			"timestamp":     map[string]any{"type": "date", "format": "epoch_millis"},
			"traded":        map[string]any{"type": "boolean"},
			"tx_hash":       map[string]any{"type": "keyword"},
			"trade_side":    map[string]any{"type": "keyword"},
			"trade_amount":  map[string]any{"type": "double"},
		},
	},
}

type ESRatingWriter struct {
	esClient *elasticsearch.Client
	logger   *zap.Logger
	index    string
}

func NewESRatingWriter(esClient *elasticsearch.Client, logger *zap.Logger, index string) writer.BatchWriter[*model.TokenRating] {
	return &ESRatingWriter{
		esClient: esClient,
		logger:   logger,
		index:    index,
	}
}

func (w *ESRatingWriter) BWrite(ctx context.Context, ratings []*model.TokenRating) error {
	if len(ratings) == 0 {
		return nil
	}
	start := time.Now()

	// 同一批里同一条评分只保留最后一次（交易回写会覆盖首次写入）
	latest := make(map[string]*model.TokenRating, len(ratings))
	order := make([]string, 0, len(ratings))
	for _, r := range ratings {
		if _, ok := latest[r.ID]; !ok {
			order = append(order, r.ID)
		}
		latest[r.ID] = r
	}

	operations := make([]elasticsearch.BulkOperation, 0, len(order))
	for _, id := range order {
		operations = append(operations, elasticsearch.BulkOperation{
			Action:   "index",
			Index:    w.index,
			ID:       id,
			Document: w.convertToESDoc(latest[id]),
		})
	}

	if err := w.esClient.BulkWrite(ctx, operations); err != nil {
		return err
	}
	w.logger.Debug("Indexed token ratings", zap.Int("count", len(operations)), zap.Duration("took", time.Since(start)))
	return nil
}

func (w *ESRatingWriter) convertToESDoc(r *model.TokenRating) map[string]any {
	doc := map[string]any{
		"id":            r.ID,
		"agent_id":      r.AgentID,
		"ticker":        r.Ticker,
		"token_address": r.TokenAddress,
		"chain":         r.Chain,
		"score":         int(r.Score),
		"score_label":   r.Score.String(),
		"reason":        r.Reason,
		"requester":     r.Requester,
		"timestamp":     r.Timestamp,
		"traded":        false,
	}
	trade, err := r.GetTrade()
	if err != nil {
		w.logger.Warn("Invalid trade sub-document", zap.String("id", r.ID), zap.Error(err))
		return doc
	}
	if trade != nil {
		doc["traded"] = true
		doc["tx_hash"] = trade.TxHash
		doc["trade_side"] = trade.Side
		doc["trade_amount"] = trade.Amount.InexactFloat64()
	}
	return doc
}

func (w *ESRatingWriter) Close() error {
	return nil
}
