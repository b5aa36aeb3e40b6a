package repository

import (
	"web3-token-agent/pkg/elasticsearch"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

type RedisClient = *redis.Client
type DBClient = *gorm.DB
type MQClient = *kafka.Writer
type ESClient = *elasticsearch.Client

type Repository interface {
	GetRDB() RedisClient
	GetDB() DBClient
	// 以下可选，未配置时返回 nil
	GetSelectDB() DBClient
	GetMQ() MQClient
	GetES() ESClient
	Close() error
}
