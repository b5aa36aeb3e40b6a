package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	// InboundMessages 入口消息
	InboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_inbound_messages_total",
			Help: "Total number of messages received by transport.",
		},
		[]string{"transport"},
	)
	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_action_duration_seconds",
			Help:    "Time taken to handle a message by action.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 180},
		},
		[]string{"action"},
	)

	// UpstreamFetches 上游数据源
	UpstreamFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_fetch_total",
			Help: "Upstream market data fetches by provider and result.",
		},
		[]string{"provider", "result"},
	)
	MarketCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_cache_lookups_total",
			Help: "Market data cache lookups by tier and result.",
		},
		[]string{"tier", "result"},
	)

	// TokenScores 评分与交易
	TokenScores = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_scores_total",
			Help: "Token scores produced by label.",
		},
		[]string{"score"},
	)
	Trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades_total",
			Help: "Trades submitted by side and result.",
		},
		[]string{"side", "result"},
	)

	// AsyncWriterBatchSize AsyncWriter 指标
	AsyncWriterBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_batch_size",
			Help:    "Number of items in each batch submitted to the writer.",
			Buckets: []float64{1, 5, 10, 50, 100, 500},
		},
		[]string{"writer_id"},
	)
	AsyncWriterMessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_messages_dropped_total",
			Help: "Total number of messages dropped due to full queue.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterFlushErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_flush_errors_total",
			Help: "Total number of failed batch flushes.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterFlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_flush_duration_seconds",
			Help:    "Time taken to flush a batch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"writer_id"},
	)
)

func init() {
	prometheus.MustRegister(
		InboundMessages,
		ActionDuration,

		UpstreamFetches,
		MarketCacheLookups,

		TokenScores,
		Trades,

		AsyncWriterBatchSize,
		AsyncWriterMessagesDropped,
		AsyncWriterFlushErrors,
		AsyncWriterFlushDuration,
	)
}

func resultLabel(ok bool) string {
	if ok {
		return "hit"
	}
	return "miss"
}

// ObserveCache marketcache.Observer 实现
func ObserveCache(tier string, hit bool) {
	MarketCacheLookups.WithLabelValues(tier, resultLabel(hit)).Inc()
}

// ObserveFetch 记录上游调用结果
func ObserveFetch(provider string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	UpstreamFetches.WithLabelValues(provider, result).Inc()
}
