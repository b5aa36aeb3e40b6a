package dao

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DAOManager 管理所有DAO实例
type DAOManager struct {
	WalletDAO WalletDAO
	RatingDAO RatingDAO
	MemoryDAO MemoryDAO
}

// NewDAOManager 创建DAO管理器实例
func NewDAOManager(db *gorm.DB, rds *redis.Client) *DAOManager {
	return &DAOManager{
		WalletDAO: NewWalletDAO(db),
		RatingDAO: NewRatingDAO(db),
		MemoryDAO: NewMemoryDAO(rds),
	}
}
