package response

import (
	"context"
	"time"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/writer"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const RETRY_COUNT = 3

// KafkaResponseWriter 回调内容按 room id 分区写回 kafka
type KafkaResponseWriter struct {
	mq *kafka.Writer
	tl *zap.Logger

	topic string
}

func NewKafkaResponseWriter(mq *kafka.Writer, tl *zap.Logger, topic string) writer.BatchWriter[model.Response] {
	return &KafkaResponseWriter{mq: mq, tl: tl, topic: topic}
}

func (w *KafkaResponseWriter) BWrite(ctx context.Context, responses []model.Response) error {
	if len(responses) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(responses))
	for _, r := range responses {
		msg, err := w.marshalToMsg(r)
		if err != nil {
			w.tl.Warn("Marshal response failed", zap.String("room_id", r.RoomID), zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}

	newCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt < RETRY_COUNT; attempt++ {
		if err = w.mq.WriteMessages(newCtx, msgs...); err == nil {
			return nil
		}
	}
	w.tl.Warn("MQ write failed, exceeded the maximum number of retries", zap.Int("count", len(msgs)), zap.Error(err))
	return err
}

func (w *KafkaResponseWriter) Close() error {
	return nil
}

func (w *KafkaResponseWriter) marshalToMsg(r model.Response) (kafka.Message, error) {
	data, err := sonic.Marshal(r)
	if err != nil {
		return kafka.Message{}, err
	}
	// writer 未指定 Topic 时由消息自带
	msg := kafka.Message{Key: []byte(r.RoomID), Value: data}
	if w.mq == nil || w.mq.Topic == "" {
		msg.Topic = w.topic
	}
	return msg, nil
}
