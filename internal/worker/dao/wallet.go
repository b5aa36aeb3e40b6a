package dao

import (
	"context"

	"web3-token-agent/internal/worker/model"
)

// WalletDAO agent 钱包记录，每次都读库，不做缓存
type WalletDAO interface {
	// Get 不存在时返回 nil, nil
	Get(ctx context.Context, agentID string) (*model.WalletRecord, error)

	// Create 已存在返回 ErrWalletExists
	Create(ctx context.Context, record *model.WalletRecord) error

	Update(ctx context.Context, record *model.WalletRecord) error
}
