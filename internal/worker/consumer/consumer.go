package consumer

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"web3-token-agent/internal/worker/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// KafkaConsumer 接口
type KafkaConsumer interface {
	Run(ctx context.Context)
	Stop() error
	ID() string
}

// MessageHandler 解耦消息处理逻辑
type MessageHandler interface {
	HandleMessage(msg kafka.Message)
}

type Consumer struct {
	logger      *zap.Logger
	kafkaReader *kafka.Reader
	limiter     *rate.Limiter
	done        chan struct{}
}

// NewConsumer 创建一个新的通用 Consumer 实例
func NewConsumer(conf config.KafkaConfig, logger *zap.Logger, topic string) *Consumer {
	reader := newKafkaReader(conf, topic)
	limit := rate.Limit(conf.RateLimit)
	if conf.RateLimit <= 0 {
		limit = rate.Inf
	}
	return &Consumer{
		logger:      logger,
		kafkaReader: reader,
		limiter:     rate.NewLimiter(limit, max(conf.RateLimit, 1)),
	}
}

// Start 启动消费者主循环
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) {
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.run(ctx, handler)
	}()
}

func (c *Consumer) run(ctx context.Context, handler MessageHandler) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Warn("closing Kafka consumer...")
			_ = c.kafkaReader.Close()
			return
		default:
		}

		// 等待令牌可用，实现速率限制
		if err := c.limiter.Wait(ctx); err != nil {
			continue
		}

		ctxWithTimeout, cancel := context.WithTimeout(ctx, 2*time.Second)
		msg, err := c.kafkaReader.ReadMessage(ctxWithTimeout)
		cancel()

		if err != nil {
			if errors.Is(err, io.EOF) {
				// reader 已关闭
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				c.logger.Debug("Kafka idle")
			} else if !errors.Is(err, context.Canceled) {
				c.logger.Warn("Kafka read error", zap.Error(err))
			}
			continue
		}

		handler.HandleMessage(msg)
	}
}

// Stop 关闭 reader 并等待主循环退出，返回后不会再调用 HandleMessage
func (c *Consumer) Stop() error {
	var err error
	if c.kafkaReader != nil {
		err = c.kafkaReader.Close()
	}
	if c.done != nil {
		<-c.done
	}
	return err
}

func newKafkaReader(conf config.KafkaConfig, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:                strings.Split(conf.Brokers, ","),
		Topic:                  topic,
		GroupID:                conf.GroupID,
		StartOffset:            kafka.LastOffset,
		CommitInterval:         time.Second,
		QueueCapacity:          200,
		MinBytes:               1,
		MaxBytes:               1e6,
		ReadBatchTimeout:       500 * time.Millisecond,
		PartitionWatchInterval: 5 * time.Second,
	})
}
