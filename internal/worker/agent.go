package worker

import (
	"context"
	"fmt"
	"time"

	"web3-token-agent/internal/worker/action"
	"web3-token-agent/internal/worker/analyzer"
	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/dao"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/monitor"
	"web3-token-agent/internal/worker/repository"
	"web3-token-agent/internal/worker/runtime"
	"web3-token-agent/internal/worker/service"
	"web3-token-agent/internal/worker/writer"
	"web3-token-agent/internal/worker/writer/rating"
	"web3-token-agent/pkg/birdeye"
	"web3-token-agent/pkg/custody"
	"web3-token-agent/pkg/dexscreener"
	"web3-token-agent/pkg/helius"
	"web3-token-agent/pkg/launchpad"
	"web3-token-agent/pkg/llm"
	"web3-token-agent/pkg/logger"
	"web3-token-agent/pkg/marketcache"
	"web3-token-agent/pkg/moralis"
	"web3-token-agent/pkg/twitter"

	"go.uber.org/zap"
)

// Agent 动作运行时及其依赖，worker 和命令行共用
type Agent struct {
	Runtime *runtime.Runtime
	Wallets *service.WalletService
	Ratings *service.RatingService

	indexers []*writer.AsyncBatchWriter[*model.TokenRating]
}

func newMarketCache(cfg config.CacheConfig, repo repository.Repository, tl *zap.Logger) (*marketcache.Cache, error) {
	var store marketcache.Store
	switch cfg.Backend {
	case "redis":
		store = marketcache.NewRedisStore(repo.GetRDB())
	default:
		fs, err := marketcache.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		store = fs
	}
	return marketcache.New(store, logger.Component(tl, "marketcache"),
		marketcache.WithTTL(time.Duration(cfg.TTLSeconds)*time.Second),
		marketcache.WithObserver(monitor.ObserveCache),
	), nil
}

// NewAgent 组装数据源、服务和动作
func NewAgent(ctx context.Context, cfg config.Config, repo repository.Repository, tl *zap.Logger) (*Agent, error) {
	daos := dao.NewDAOManager(repo.GetDB(), repo.GetRDB())

	cache, err := newMarketCache(cfg.Cache, repo, tl)
	if err != nil {
		return nil, fmt.Errorf("init market cache: %w", err)
	}

	tokenAnalyzer := analyzer.New(analyzer.Sources{
		Market: birdeye.NewClient(cfg.Birdeye, logger.Component(tl, "birdeye")),
		Pairs:  dexscreener.NewClient(cfg.DexScreener, logger.Component(tl, "dexscreener")),
		Holders: analyzer.NewHolderRouter(
			moralis.NewMoralisClient(cfg.Moralis, logger.Component(tl, "moralis")),
			helius.NewClient(cfg.Helius, logger.Component(tl, "helius")),
		),
	}, cache, logger.Component(tl, "analyzer"))

	wallets, err := service.NewWalletService(cfg.Wallet, daos.WalletDAO, custody.NewClient(cfg.Custody, logger.Component(tl, "custody")), logger.Component(tl, "wallet"))
	if err != nil {
		return nil, fmt.Errorf("init wallet service: %w", err)
	}

	a := &Agent{Wallets: wallets}

	var indexers []service.RatingIndexer
	if es := repo.GetES(); es != nil {
		w := writer.NewAsyncBatchWriter(tl, rating.NewESRatingWriter(es, tl, cfg.Elasticsearch.RatingsIndexName), 50, 2*time.Second, "es_rating", 1)
		a.indexers = append(a.indexers, w)
		indexers = append(indexers, w)
	}
	if sdb := repo.GetSelectDB(); sdb != nil {
		w := writer.NewAsyncBatchWriter(tl, rating.NewSelectDBRatingWriter(sdb, tl), 200, 5*time.Second, "selectdb_rating", 1)
		a.indexers = append(a.indexers, w)
		indexers = append(indexers, w)
	}
	for _, w := range a.indexers {
		w.Start(ctx)
	}
	a.Ratings = service.NewRatingService(daos.RatingDAO, logger.Component(tl, "rating"), indexers...)

	scoreDeps := action.ScoreDeps{
		Model:    llm.NewClient(cfg.OpenAI, logger.Component(tl, "llm")),
		Posts:    twitter.NewSearcher(cfg.Twitter, logger.Component(tl, "twitter")),
		Analyzer: tokenAnalyzer,
		Memory:   daos.MemoryDAO,
		Ratings:  a.Ratings,
	}
	if lp := launchpad.NewClient(cfg.Launchpad, logger.Component(tl, "launchpad")); lp.Enabled() {
		scoreDeps.Clubs = lp
	}

	a.Runtime = runtime.New(cfg.Agent, daos.MemoryDAO, logger.Component(tl, "runtime"))
	a.Runtime.Register(
		action.NewScoreToken(scoreDeps, tl),
		action.NewExecuteTrade(cfg.Wallet, action.TradeDeps{Wallets: wallets, Ratings: a.Ratings}, tl),
	)
	return a, nil
}

// Close 刷完评分下游队列
func (a *Agent) Close() {
	for _, w := range a.indexers {
		w.Close()
	}
}
