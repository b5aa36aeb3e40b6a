package birdeye

import (
	"context"
	"fmt"
	"strings"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/pkg/httpclient"
	"web3-token-agent/pkg/utils"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://public-api.birdeye.so"

// x-chain header 取值
var chainHeaders = map[string]string{
	utils.ChainSolana:   "solana",
	utils.ChainEthereum: "ethereum",
	utils.ChainBase:     "base",
	utils.ChainBSC:      "bsc",
	utils.ChainArbitrum: "arbitrum",
	utils.ChainPolygon:  "polygon",
}

type Client struct {
	baseURL    string
	apiKey     string
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
		Headers:        map[string]string{"X-API-KEY": cfg.APIKey, "accept": "application/json"},
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger,
	}
}

func (c *Client) chainHeader(chain string) (map[string]string, error) {
	if c.apiKey == "" {
		return nil, httpclient.ErrMissingAPIKey
	}
	h, ok := chainHeaders[utils.NormalizeChain(chain)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", httpclient.ErrUnsupportedChain, chain)
	}
	return map[string]string{"x-chain": h}, nil
}

// GetTokenSecurity 获取 owner/creator/top10 持仓数据
func (c *Client) GetTokenSecurity(ctx context.Context, chain, address string) (*TokenSecurityData, error) {
	headers, err := c.chainHeader(chain)
	if err != nil {
		return nil, err
	}

	var resp securityResp
	url := c.baseURL + "/defi/token_security"
	if err := c.httpClient.Get(ctx, url, map[string]string{"address": address}, headers, &resp); err != nil {
		return nil, fmt.Errorf("fetch token security failed, address: %s: %w", address, err)
	}
	if !resp.Success || resp.Data == nil {
		return nil, httpclient.NoData("security")
	}
	return resp.Data, nil
}

// GetTokenTradeData 获取价格、成交量、持币钱包变化等交易统计
func (c *Client) GetTokenTradeData(ctx context.Context, chain, address string) (*TokenTradeData, error) {
	headers, err := c.chainHeader(chain)
	if err != nil {
		return nil, err
	}

	var resp tradeResp
	url := c.baseURL + "/defi/v3/token/trade-data/single"
	if err := c.httpClient.Get(ctx, url, map[string]string{"address": address}, headers, &resp); err != nil {
		return nil, fmt.Errorf("fetch token trade data failed, address: %s: %w", address, err)
	}
	if !resp.Success || resp.Data == nil {
		return nil, httpclient.NoData("trade")
	}
	return resp.Data, nil
}
