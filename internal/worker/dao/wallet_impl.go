package dao

import (
	"context"
	"errors"

	"web3-token-agent/internal/worker/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrWalletExists = errors.New("wallet record already exists")

type walletDAO struct {
	db *gorm.DB
}

func NewWalletDAO(db *gorm.DB) WalletDAO {
	return &walletDAO{db: db}
}

func (w *walletDAO) Get(ctx context.Context, agentID string) (*model.WalletRecord, error) {
	var record model.WalletRecord
	err := w.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (w *walletDAO) Create(ctx context.Context, record *model.WalletRecord) error {
	res := w.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWalletExists
	}
	return nil
}

func (w *walletDAO) Update(ctx context.Context, record *model.WalletRecord) error {
	return w.db.WithContext(ctx).
		Model(&model.WalletRecord{}).
		Where("agent_id = ?", record.AgentID).
		Updates(map[string]any{
			"wallets":          record.Wallets,
			"chains":           record.Chains,
			"profile_handle":   record.ProfileHandle,
			"admin_profile_id": record.AdminProfileID,
			"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
