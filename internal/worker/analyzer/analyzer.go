package analyzer

import (
	"context"
	"fmt"
	"strings"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/monitor"
	"web3-token-agent/pkg/birdeye"
	"web3-token-agent/pkg/dexscreener"
	"web3-token-agent/pkg/httpclient"
	"web3-token-agent/pkg/marketcache"
	"web3-token-agent/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShouldTradeToken 阈值
const (
	minTop10HolderPercent   = 0.05
	minVolume24hUSD         = 1000.0
	minPriceChange24h       = 10.0
	minPriceChange12h       = 5.0
	minUniqueWallet24h      = 100
	minUniqueWallet24hGrown = 10.0
	maxLowLiquidityUSD      = 1000.0
	maxLowMarketCapUSD      = 100000.0
)

type TokenRef struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Ticker  string `json:"ticker,omitempty"`
}

// ProcessedTokenData 多个数据源汇总 + 派生字段
type ProcessedTokenData struct {
	Token    TokenRef                  `json:"token"`
	Security birdeye.TokenSecurityData `json:"security"`
	Trade    birdeye.TokenTradeData    `json:"trade"`

	HolderDistributionTrend Trend `json:"holder_distribution_trend"`
	HolderCount             int   `json:"holder_count"`
	HighValueHolderCount    int   `json:"high_value_holder_count"`
	HighSupplyHoldersCount  int   `json:"high_supply_holders_count"`
	RecentTrades            bool  `json:"recent_trades"`

	DexScreener         dexscreener.SearchResult `json:"dex_screener"`
	BestPair            dexscreener.Pair         `json:"best_pair"`
	IsDexScreenerListed bool                     `json:"is_dex_screener_listed"`
	IsDexScreenerPaid   bool                     `json:"is_dex_screener_paid"`
}

type Sources struct {
	Market  MarketSource
	Pairs   PairSource
	Holders HolderSource
}

type Analyzer struct {
	src   Sources
	cache *marketcache.Cache
	tl    *zap.Logger
}

// New 缓存随 Analyzer 一起创建和持有
func New(src Sources, cache *marketcache.Cache, tl *zap.Logger) *Analyzer {
	return &Analyzer{src: src, cache: cache, tl: tl}
}

func fetch[T any](ctx context.Context, a *Analyzer, provider, dataType, address string, load func(ctx context.Context) (T, error)) (T, error) {
	key := utils.MarketDataKey(dataType, address)
	return marketcache.Fetch(ctx, a.cache, key, func(ctx context.Context) (T, error) {
		v, err := load(ctx)
		monitor.ObserveFetch(provider, err)
		return v, err
	})
}

// GetProcessedTokenData 依次拉取安全数据、交易统计、DEX 交易对和持有者，任一失败直接返回
func (a *Analyzer) GetProcessedTokenData(ctx context.Context, token TokenRef) (*ProcessedTokenData, error) {
	chain := utils.NormalizeChain(token.Chain)
	if !utils.IsSupportedChain(chain) {
		return nil, fmt.Errorf("%w: %s", httpclient.ErrUnsupportedChain, token.Chain)
	}
	token.Chain = chain

	security, err := fetch(ctx, a, "birdeye", utils.DataTokenSecurity, token.Address,
		func(ctx context.Context) (*birdeye.TokenSecurityData, error) {
			return a.src.Market.GetTokenSecurity(ctx, chain, token.Address)
		})
	if err != nil {
		return nil, err
	}

	trade, err := fetch(ctx, a, "birdeye", utils.DataTokenTrade, token.Address,
		func(ctx context.Context) (*birdeye.TokenTradeData, error) {
			return a.src.Market.GetTokenTradeData(ctx, chain, token.Address)
		})
	if err != nil {
		return nil, err
	}

	dex, err := fetch(ctx, a, "dexscreener", utils.DataDexScreener, token.Address,
		func(ctx context.Context) (*dexscreener.SearchResult, error) {
			res, err := a.src.Pairs.Search(ctx, token.Address)
			if err != nil {
				return nil, err
			}
			if len(res.Pairs) == 0 {
				return nil, httpclient.NoData("DexScreener pair")
			}
			return res, nil
		})
	if err != nil {
		return nil, err
	}

	holders, err := fetch(ctx, a, "holders", utils.DataHolderList, token.Address,
		func(ctx context.Context) ([]model.HolderData, error) {
			return a.src.Holders.Holders(ctx, chain, token.Address)
		})
	if err != nil {
		return nil, err
	}

	balances := make([]decimal.Decimal, 0, len(holders))
	for _, h := range holders {
		balances = append(balances, h.Balance)
	}

	best := dexscreener.HighestLiquidityPair(dex.Pairs)
	data := &ProcessedTokenData{
		Token:                   token,
		Security:                *security,
		Trade:                   *trade,
		HolderDistributionTrend: HolderDistributionTrend(trade.UniqueWalletChangeWindows()),
		HolderCount:             len(holders),
		HighValueHolderCount:    CountHighValueHolders(balances, trade.Price),
		HighSupplyHoldersCount:  CountHighSupplyHolders(balances),
		RecentTrades:            trade.Volume24hUSD > 0,
		DexScreener:             *dex,
		BestPair:                *best,
		IsDexScreenerListed:     isListed(dex.Pairs, token.Address),
		IsDexScreenerPaid:       isPaid(dex.Pairs),
	}
	if data.Token.Ticker == "" {
		data.Token.Ticker = best.BaseToken.Symbol
	}

	a.tl.Info("Processed token data",
		zap.String("chain", chain),
		zap.String("token", token.Address),
		zap.String("trend", string(data.HolderDistributionTrend)),
		zap.Int("holders", data.HolderCount),
	)
	return data, nil
}

func isListed(pairs []dexscreener.Pair, address string) bool {
	for _, p := range pairs {
		if strings.EqualFold(p.BaseToken.Address, address) {
			return true
		}
	}
	return false
}

func isPaid(pairs []dexscreener.Pair) bool {
	for _, p := range pairs {
		if p.Boosts != nil && p.Boosts.Active > 0 {
			return true
		}
	}
	return false
}

func ptrValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// ShouldTradeToken 任一阈值命中即返回 true，只用于提醒，不是交易决策
func ShouldTradeToken(data *ProcessedTokenData) bool {
	trade := data.Trade
	return data.Security.Top10HolderPercent >= minTop10HolderPercent ||
		trade.Volume24hUSD >= minVolume24hUSD ||
		ptrValue(trade.PriceChange24hPercent) >= minPriceChange24h ||
		ptrValue(trade.PriceChange12hPercent) >= minPriceChange12h ||
		trade.UniqueWallet24h >= minUniqueWallet24h ||
		ptrValue(trade.UniqueWallet24hChangePercent) >= minUniqueWallet24hGrown ||
		data.BestPair.LiquidityUSD() < maxLowLiquidityUSD ||
		data.BestPair.MarketCap < maxLowMarketCapUSD
}
