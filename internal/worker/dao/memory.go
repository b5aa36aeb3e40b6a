package dao

import (
	"context"

	"web3-token-agent/internal/worker/model"
)

// MemoryDAO room 级消息记忆
type MemoryDAO interface {
	Append(ctx context.Context, msg *model.Message) error

	// Recent 最近 n 条，按时间正序
	Recent(ctx context.Context, agentID, roomID string, n int) ([]*model.Message, error)
}
