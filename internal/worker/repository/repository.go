package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/writer/rating"
	"web3-token-agent/pkg/database"
	"web3-token-agent/pkg/elasticsearch"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var once sync.Once
var r *repositoryImpl

func New(cfg config.Config, logger *zap.Logger) Repository {
	once.Do(func() {
		r = &repositoryImpl{
			cfg:    cfg,
			logger: logger,
		}
		r.init()
	})
	return r
}

type repositoryImpl struct {
	cfg      config.Config
	logger   *zap.Logger
	db       *gorm.DB
	selectDB *gorm.DB
	rdb      *redis.Client
	mq       *kafka.Writer
	es       *elasticsearch.Client
}

func (r *repositoryImpl) init() {
	var err error
	r.db, err = database.InitPG(r.cfg.Postgres.DSN)
	if err != nil {
		panic(err)
	}
	if err := database.Migrate(r.db, &model.WalletRecord{}, &model.TokenRating{}); err != nil {
		panic(err)
	}

	// 初始化selectDB（可选，DSN 为空则跳过）
	if strings.TrimSpace(r.cfg.SelectDB.DSN) != "" {
		r.selectDB, err = database.InitSelectDB(r.cfg.SelectDB.DSN)
		if err == nil {
			err = database.Migrate(r.selectDB, &model.TokenRating{})
		}
		if err != nil {
			r.logger.Warn("failed to connect to selectdb, continue without it", zap.Error(err))
			r.selectDB = nil
		}
	} else {
		r.logger.Info("selectdb dsn empty, skip selectdb initialization")
	}

	r.rdb = redis.NewClient(&redis.Options{
		Addr:     r.cfg.Redis.Address,
		Password: r.cfg.Redis.Password,
		DB:       r.cfg.Redis.DB,
		PoolSize: 20,
	})
	if err := r.rdb.Ping(context.Background()).Err(); err != nil {
		r.logger.Warn("failed to connect to redis, continue", zap.Error(err))
	}

	if r.cfg.Kafka.Enable {
		brokers := strings.Split(r.cfg.Kafka.Brokers, ",")
		r.mq = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        r.cfg.Kafka.TopicResponses,
			Balancer:     &kafka.Hash{}, // 同一 room 的回复落在同一分区
			BatchSize:    100,
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Snappy,
			MaxAttempts:  5,
			WriteTimeout: 2 * time.Second,
		}
	}

	if len(r.cfg.Elasticsearch.Addresses) > 0 {
		r.es, err = elasticsearch.NewClient(elasticsearch.Config{
			Addresses: r.cfg.Elasticsearch.Addresses,
			Username:  r.cfg.Elasticsearch.Username,
			Password:  r.cfg.Elasticsearch.Password,
			Indexes: map[string]map[string]any{
				r.cfg.Elasticsearch.RatingsIndexName: rating.IndexMapping,
			},
		}, r.logger)
		if err != nil {
			r.logger.Warn("failed to init elasticsearch, rating index disabled", zap.Error(err))
			r.es = nil
		}
	}
}

func (r *repositoryImpl) GetRDB() *redis.Client {
	return r.rdb
}

func (r *repositoryImpl) GetDB() *gorm.DB {
	return r.db
}

func (r *repositoryImpl) GetSelectDB() *gorm.DB {
	return r.selectDB
}

func (r *repositoryImpl) GetMQ() MQClient {
	return r.mq
}

func (r *repositoryImpl) GetES() ESClient {
	return r.es
}

func (r *repositoryImpl) Close() error {
	if r.db != nil {
		sqlDB, _ := r.db.DB()
		sqlDB.Close()
	}
	if r.selectDB != nil {
		sqlDB, _ := r.selectDB.DB()
		sqlDB.Close()
	}
	if r.rdb != nil {
		r.rdb.Close()
	}
	if r.mq != nil {
		r.mq.Close()
	}
	return nil
}
