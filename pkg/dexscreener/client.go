package dexscreener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/pkg/httpclient"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.dexscreener.com"

type Client struct {
	baseURL    string
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

func NewClient(cfg config.ProviderConfig, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:        time.Duration(cfg.Timeout) * time.Second,
		RateLimit:      cfg.RateLimit,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger,
	}
}

// Search 按地址或 symbol 搜索交易对，没有交易对时返回空列表
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	var resp SearchResult
	url := c.baseURL + "/latest/dex/search"
	if err := c.httpClient.Get(ctx, url, map[string]string{"q": query}, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch dexscreener pairs failed, query: %s: %w", query, err)
	}
	return &resp, nil
}

// GetHighestLiquidityPair 搜索并返回流动性最高的交易对
func (c *Client) GetHighestLiquidityPair(ctx context.Context, query string) (*Pair, error) {
	res, err := c.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	pair := HighestLiquidityPair(res.Pairs)
	if pair == nil {
		return nil, httpclient.NoData("DexScreener pair")
	}
	return pair, nil
}

// HighestLiquidityPair 流动性高者胜出，流动性相同时比较市值
func HighestLiquidityPair(pairs []Pair) *Pair {
	var best *Pair
	for i := range pairs {
		p := &pairs[i]
		if best == nil {
			best = p
			continue
		}
		liq, bestLiq := p.LiquidityUSD(), best.LiquidityUSD()
		if liq > bestLiq || (liq == bestLiq && p.MarketCap > best.MarketCap) {
			best = p
		}
	}
	return best
}
