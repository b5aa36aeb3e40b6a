package model

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// WalletRecord 每个 agent 一条，保存各链托管钱包导出数据的密文
type WalletRecord struct {
	AgentID        string         `gorm:"column:agent_id;type:varchar(128);primaryKey" json:"agent_id"`
	Wallets        datatypes.JSON `gorm:"column:wallets;not null" json:"wallets"` // chain -> <ivHex>:<cipherHex>
	Chains         pq.StringArray `gorm:"column:chains;type:text[]" json:"chains"`
	ProfileHandle  *string        `gorm:"column:profile_handle;type:varchar(128)" json:"profile_handle,omitempty"`
	AdminProfileID *string        `gorm:"column:admin_profile_id;type:varchar(128)" json:"admin_profile_id,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (w *WalletRecord) TableName() string {
	return "t_agent_wallet"
}

// EncryptedWallets 解析 chain -> 密文映射
func (w *WalletRecord) EncryptedWallets() (map[string]string, error) {
	out := make(map[string]string)
	if len(w.Wallets) == 0 {
		return out, nil
	}
	if err := sonic.Unmarshal(w.Wallets, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetEncryptedWallets 写入 chain -> 密文映射并同步 Chains
func (w *WalletRecord) SetEncryptedWallets(m map[string]string) error {
	data, err := sonic.Marshal(m)
	if err != nil {
		return err
	}
	w.Wallets = datatypes.JSON(data)
	chains := make([]string, 0, len(m))
	for chain := range m {
		chains = append(chains, chain)
	}
	w.Chains = pq.StringArray(chains)
	return nil
}
