package custody

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/pkg/httpclient"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrTradeTimeout  = errors.New("trade did not reach a terminal status in time")
	ErrNotConfigured = errors.New("custody base url not configured")
)

type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *httpclient.HTTPClient
	logger       *zap.Logger
}

func NewClient(cfg config.CustodyConfig, logger *zap.Logger) *Client {
	pollInterval := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	pollTimeout := time.Duration(cfg.PollTimeout) * time.Second
	if pollTimeout <= 0 {
		pollTimeout = 3 * time.Minute
	}
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:   time.Duration(cfg.Timeout) * time.Second,
		RateLimit: cfg.RateLimit,
		Headers:   map[string]string{"Authorization": "Bearer " + cfg.APIKey},
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		httpClient:   httpclient.NewHTTPClient(httpCfg, logger),
		logger:       logger,
	}
}

func (c *Client) ready() error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	if c.apiKey == "" {
		return httpclient.ErrMissingAPIKey
	}
	return nil
}

func (c *Client) walletURL(walletID string, parts ...string) string {
	u := c.baseURL + "/v1/wallets/" + url.PathEscape(walletID)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// CreateWallet 在指定网络创建钱包，返回值带导出数据
func (c *Client) CreateWallet(ctx context.Context, networkID string) (*Wallet, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var resp walletResp
	body := map[string]string{"network_id": networkID}
	if err := c.httpClient.PostJSONOnce(ctx, c.baseURL+"/v1/wallets", body, nil, &resp); err != nil {
		return nil, fmt.Errorf("create wallet on %s: %w", networkID, err)
	}
	if resp.Export == nil || resp.Wallet.ID == "" {
		return nil, httpclient.NoData("wallet export")
	}
	w := resp.Wallet
	w.Export = *resp.Export
	return &w, nil
}

// ImportWallet 用导出数据恢复钱包，Export 保持调用方传入的原值
func (c *Client) ImportWallet(ctx context.Context, data ExportData) (*Wallet, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var resp walletResp
	if err := c.httpClient.PostJSON(ctx, c.baseURL+"/v1/wallets/import", data, nil, &resp); err != nil {
		return nil, fmt.Errorf("import wallet %s: %w", data.WalletID, err)
	}
	if resp.Wallet.ID == "" {
		return nil, httpclient.NoData("wallet")
	}
	w := resp.Wallet
	w.Export = data
	return &w, nil
}

// ListBalances 返回 asset(小写) -> 数量
func (c *Client) ListBalances(ctx context.Context, walletID string) (map[string]decimal.Decimal, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var resp balancesResp
	if err := c.httpClient.Get(ctx, c.walletURL(walletID, "balances"), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("list balances of %s: %w", walletID, err)
	}
	out := make(map[string]decimal.Decimal, len(resp.Balances))
	for _, b := range resp.Balances {
		out[strings.ToLower(b.Asset)] = b.Amount
	}
	return out, nil
}

func (c *Client) CreateTrade(ctx context.Context, walletID string, req TradeRequest) (*Trade, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var trade Trade
	// 下单不重试，失败时交易状态未知
	if err := c.httpClient.PostJSONOnce(ctx, c.walletURL(walletID, "trades"), req, nil, &trade); err != nil {
		return nil, fmt.Errorf("create trade %s -> %s: %w", req.FromAsset, req.ToAsset, err)
	}
	if trade.ID == "" {
		return nil, httpclient.NoData("trade")
	}
	return &trade, nil
}

func (c *Client) GetTrade(ctx context.Context, walletID, tradeID string) (*Trade, error) {
	var trade Trade
	if err := c.httpClient.Get(ctx, c.walletURL(walletID, "trades", tradeID), nil, nil, &trade); err != nil {
		return nil, fmt.Errorf("get trade %s: %w", tradeID, err)
	}
	return &trade, nil
}

// WaitTrade 轮询直到交易进入终态或超时
func (c *Client) WaitTrade(ctx context.Context, walletID, tradeID string) (*Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		trade, err := c.GetTrade(ctx, walletID, tradeID)
		if err != nil {
			return nil, err
		}
		if trade.Status.Terminal() {
			return trade, nil
		}
		c.logger.Debug("Trade still pending", zap.String("trade_id", tradeID), zap.String("status", string(trade.Status)))

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrTradeTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
