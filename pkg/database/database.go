package database

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PoolOptions struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func open(dialector gorm.Dialector, pool PoolOptions) (*gorm.DB, error) {
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	return gormDB, nil
}

// InitPG 主库：钱包记录与评分记录
func InitPG(dsn string) (*gorm.DB, error) {
	return open(postgres.Open(dsn), PoolOptions{
		MaxIdleConns:    5,
		MaxOpenConns:    20,
		ConnMaxIdleTime: 10 * time.Minute,
		ConnMaxLifetime: time.Hour,
	})
}

// InitSelectDB 分析库（MySQL 协议），只做评分镜像写入
func InitSelectDB(dsn string) (*gorm.DB, error) {
	return open(mysql.Open(dsn), PoolOptions{
		MaxIdleConns:    5,
		MaxOpenConns:    20,
		ConnMaxIdleTime: 10 * time.Minute,
		ConnMaxLifetime: time.Hour,
	})
}

// Migrate 建表/补字段
func Migrate(db *gorm.DB, models ...any) error {
	return db.AutoMigrate(models...)
}
