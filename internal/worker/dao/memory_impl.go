package dao

import (
	"context"
	"time"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	memoryMaxLen = 50
	memoryTTL    = 7 * 24 * time.Hour
)

type memoryDAO struct {
	rds *redis.Client
}

func NewMemoryDAO(rds *redis.Client) MemoryDAO {
	return &memoryDAO{rds: rds}
}

func (m *memoryDAO) Append(ctx context.Context, msg *model.Message) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	key := utils.RoomMemoryKey(msg.AgentID, msg.RoomID)
	_, err = m.rds.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -memoryMaxLen, -1)
		pipe.Expire(ctx, key, memoryTTL)
		return nil
	})
	return err
}

func (m *memoryDAO) Recent(ctx context.Context, agentID, roomID string, n int) ([]*model.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := m.rds.LRange(ctx, utils.RoomMemoryKey(agentID, roomID), int64(-n), -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.Message, 0, len(items))
	for _, item := range items {
		var msg model.Message
		if sonic.UnmarshalString(item, &msg) != nil {
			continue
		}
		out = append(out, &msg)
	}
	return out, nil
}
