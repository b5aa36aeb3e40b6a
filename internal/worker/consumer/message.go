package consumer

import (
	"context"
	"sync"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/monitor"
	"web3-token-agent/internal/worker/runtime"
	"web3-token-agent/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TransportKafka   = "kafka"
	workerBufferSize = 100
)

// Dispatcher 消息路由
type Dispatcher interface {
	DispatchInbound(ctx context.Context, msg *model.Message, cb runtime.Callback) error
}

// ResponseSink 回调内容的去向
type ResponseSink interface {
	Submit(item model.Response)
}

// MessageConsumer 消费入站消息，同一 room 固定落在同一个 worker 上保证顺序
type MessageConsumer struct {
	*Consumer
	ctx        context.Context
	id         string
	workerSize int
	buffers    []chan *model.Message
	dispatcher Dispatcher
	sink       ResponseSink
	wg         sync.WaitGroup
}

func NewMessageConsumer(conf config.KafkaConfig, logger *zap.Logger, dispatcher Dispatcher, sink ResponseSink) *MessageConsumer {
	return newMessageConsumer(NewConsumer(conf, logger, conf.TopicMessages), conf.Workers, logger, dispatcher, sink)
}

func newMessageConsumer(base *Consumer, workers int, logger *zap.Logger, dispatcher Dispatcher, sink ResponseSink) *MessageConsumer {
	workerSize := max(workers, 1)
	buffers := make([]chan *model.Message, workerSize)
	for i := range buffers {
		buffers[i] = make(chan *model.Message, workerBufferSize)
	}
	if base == nil {
		base = &Consumer{logger: logger}
	}
	return &MessageConsumer{
		Consumer:   base,
		ctx:        context.Background(),
		id:         "message_consumer",
		workerSize: workerSize,
		buffers:    buffers,
		dispatcher: dispatcher,
		sink:       sink,
	}
}

func (mc *MessageConsumer) ID() string {
	return mc.id
}

// Run 启动 worker 后开始读取 kafka
func (mc *MessageConsumer) Run(ctx context.Context) {
	mc.startWorkers(ctx)
	mc.Consumer.Start(ctx, mc)
}

func (mc *MessageConsumer) startWorkers(ctx context.Context) {
	mc.ctx = ctx
	for i := 0; i < mc.workerSize; i++ {
		mc.wg.Add(1)
		go func(idx int) {
			defer mc.wg.Done()
			for {
				select {
				case msg, ok := <-mc.buffers[idx]:
					if !ok {
						return
					}
					mc.process(ctx, msg)
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}
}

func (mc *MessageConsumer) process(ctx context.Context, msg *model.Message) {
	cb := func(ctx context.Context, content model.Content) error {
		mc.sink.Submit(model.Response{
			AgentID:   msg.AgentID,
			RoomID:    msg.RoomID,
			InReplyTo: msg.ID,
			Content:   content,
			CreatedAt: time.Now().UnixMilli(),
		})
		return nil
	}
	if err := mc.dispatcher.DispatchInbound(ctx, msg, cb); err != nil {
		mc.logger.Warn("Dispatch message failed", zap.String("room_id", msg.RoomID), zap.String("message_id", msg.ID), zap.Error(err))
	}
}

// HandleMessage 实现 MessageHandler 接口
func (mc *MessageConsumer) HandleMessage(msg kafka.Message) {
	monitor.InboundMessages.WithLabelValues(TransportKafka).Inc()

	var m model.Message
	if err := sonic.Unmarshal(msg.Value, &m); err != nil {
		mc.logger.Warn("JSON parse error", zap.String("consumerID", mc.id), zap.Error(err), zap.ByteString("raw", msg.Value))
		return
	}
	if m.RoomID == "" {
		m.RoomID = string(msg.Key)
	}
	if m.RoomID == "" {
		mc.logger.Warn("Message without room id dropped", zap.String("consumerID", mc.id))
		return
	}
	if m.Content.Source == "" {
		m.Content.Source = TransportKafka
	}
	mc.dispatch(&m)
}

func (mc *MessageConsumer) dispatch(msg *model.Message) {
	idx := utils.GetHashBucket(msg.RoomID, uint32(mc.workerSize))

	// 满了就阻塞，消费速度由 worker 决定；退出时丢弃
	select {
	case mc.buffers[idx] <- msg:
	case <-mc.ctx.Done():
		mc.logger.Warn("Consumer stopping, message dropped", zap.String("room_id", msg.RoomID), zap.String("message_id", msg.ID))
	}
}

// Stop 先等读循环退出，再关闭 buffer
func (mc *MessageConsumer) Stop() error {
	err := mc.Consumer.Stop()
	for i := 0; i < mc.workerSize; i++ {
		close(mc.buffers[i])
	}
	mc.wg.Wait()
	return err
}
