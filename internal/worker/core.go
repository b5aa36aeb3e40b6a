package worker

import (
	"context"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/consumer"
	"web3-token-agent/internal/worker/job"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/monitor"
	"web3-token-agent/internal/worker/repository"
	"web3-token-agent/internal/worker/server"
	"web3-token-agent/internal/worker/writer"
	"web3-token-agent/internal/worker/writer/response"

	"go.uber.org/zap"
)

type Core struct {
	cfg       config.Config
	tl        *zap.Logger
	repo      repository.Repository
	agent     *Agent
	scheduler *job.Scheduler
	consumers []consumer.KafkaConsumer
	responses *writer.AsyncBatchWriter[model.Response]
	server    *server.Server
	metrics   *monitor.MetricsServer
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) *Core {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	scheduler := job.NewScheduler(logger)
	repo := repository.New(cfg, logger)

	agent, err := NewAgent(ctx, cfg, repo, logger)
	if err != nil {
		panic(err)
	}

	core := &Core{
		cfg:       cfg,
		repo:      repo,
		tl:        logger,
		agent:     agent,
		scheduler: scheduler,
		metrics:   monitor.NewMetricsServer(cfg.Monitor, logger),
	}

	// 补发未成交评分
	if cfg.Job.PendingTradesEnable {
		pending := job.NewPendingTradesJob(cfg.Agent.ID, time.Duration(cfg.Job.PendingTradeWindow)*time.Second, agent.Ratings, agent.Runtime, logger)
		// 单次执行要等到交易终态，不受周期限制，只随 worker 退出取消
		scheduler.RegisterJobWithTimeout("pending_trades", time.Duration(cfg.Job.PendingTradesInterval)*time.Second, 0, pending.Run)
	}

	// 消息入口：kafka
	if cfg.Kafka.Enable && repo.GetMQ() != nil {
		core.responses = writer.NewAsyncBatchWriter(logger, response.NewKafkaResponseWriter(repo.GetMQ(), logger, cfg.Kafka.TopicResponses), 50, 200*time.Millisecond, "kafka_response", 1)
		core.consumers = append(core.consumers, consumer.NewMessageConsumer(cfg.Kafka, logger, agent.Runtime, core.responses))
	}

	// 消息入口：http
	if cfg.Server.Enable {
		core.server = server.NewServer(cfg.Server, agent.Runtime, agent.Ratings, logger)
	}
	return core
}

func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting worker core...")
	c.metrics.Run()

	if c.responses != nil {
		c.responses.Start(ctx)
	}
	for _, cons := range c.consumers {
		go cons.Run(ctx)
	}
	if c.server != nil {
		c.server.Start()
	}

	c.scheduler.Start(ctx)
	c.tl.Info("Worker started successfully")

	<-ctx.Done()
	c.tl.Info("Shutting down worker due to context cancellation...")
}

// Stop 先停入口，再刷写下游，最后关闭连接
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping worker core...")

	if c.server != nil {
		if err := c.server.Stop(ctx); err != nil {
			c.tl.Warn("HTTP server shutdown failed", zap.Error(err))
		}
	}
	for _, cons := range c.consumers {
		if err := cons.Stop(); err != nil {
			c.tl.Warn("Consumer stop failed", zap.String("consumer", cons.ID()), zap.Error(err))
		}
	}
	c.scheduler.Stop(ctx)

	if c.responses != nil {
		c.responses.Close()
	}
	c.agent.Close()
	_ = c.metrics.Stop(ctx)
	c.repo.Close()

	c.tl.Info("Worker core stopped.")
}
