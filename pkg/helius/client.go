package helius

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/pkg/httpclient"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://mainnet.helius-rpc.com"
	pageLimit      = 1000
	// MaxPages Solana 持有者最多翻页数
	MaxPages = 2
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *httpclient.HTTPClient
	rpcClient  *rpc.Client
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
		apiKey:     cfg.APIKey,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		rpcClient:  rpc.New(fmt.Sprintf("%s/?api-key=%s", baseURL, cfg.APIKey)),
		logger:     logger,
	}
}

// GetTokenDecimals 通过标准 RPC getTokenSupply 读取精度
func (c *Client) GetTokenDecimals(ctx context.Context, mint solana.PublicKey) (int32, error) {
	out, err := c.rpcClient.GetTokenSupply(ctx, mint, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("get token supply of %s: %w", mint, err)
	}
	if out == nil || out.Value == nil {
		return 0, httpclient.NoData("token supply")
	}
	return int32(out.Value.Decimals), nil
}

// GetTokenHolders 通过 getTokenAccounts 翻页，按 owner 累加余额，余额按精度换算
func (c *Client) GetTokenHolders(ctx context.Context, mint string) ([]model.HolderData, error) {
	if c.apiKey == "" {
		return nil, httpclient.ErrMissingAPIKey
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid solana mint %s: %w", mint, err)
	}
	decimals, err := c.GetTokenDecimals(ctx, mintKey)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/?api-key=%s", c.baseURL, c.apiKey)
	balances := make(map[string]decimal.Decimal)
	order := make([]string, 0)

	for page := 1; page <= MaxPages; page++ {
		req := rpcRequest{
			JSONRPC: "2.0",
			ID:      "helius-holders",
			Method:  "getTokenAccounts",
			Params: tokenAccountsParams{
				Page:           page,
				Limit:          pageLimit,
				DisplayOptions: map[string]any{},
				Mint:           mint,
			},
		}

		var resp tokenAccountsResp
		if err := c.httpClient.PostJSON(ctx, url, req, nil, &resp); err != nil {
			return nil, fmt.Errorf("fetch solana token holders failed, mint: %s, page: %d: %w", mint, page, err)
		}
		if resp.Error != nil {
			return nil, errors.New("helius rpc error: " + resp.Error.Message)
		}
		if resp.Result == nil || len(resp.Result.TokenAccounts) == 0 {
			break
		}

		for _, acc := range resp.Result.TokenAccounts {
			prev, ok := balances[acc.Owner]
			if !ok {
				order = append(order, acc.Owner)
			}
			balances[acc.Owner] = prev.Add(decimal.NewFromUint64(acc.Amount))
		}
		if len(resp.Result.TokenAccounts) < pageLimit {
			break
		}
	}

	if len(order) == 0 {
		return nil, httpclient.NoData("holder")
	}

	holders := make([]model.HolderData, 0, len(order))
	for _, owner := range order {
		holders = append(holders, model.HolderData{Address: owner, Balance: balances[owner].Shift(-decimals)})
	}
	c.logger.Debug("Fetched solana token holders", zap.String("mint", mint), zap.Int("holders", len(holders)))
	return holders, nil
}
