package moralis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/pkg/httpclient"
	"web3-token-agent/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://deep-index.moralis.io"
	pageSize       = 100
	// MaxHolders EVM 持有者列表的硬上限
	MaxHolders = 2500
)

// moralis chain 参数
var chainParams = map[string]string{
	utils.ChainEthereum: "eth",
	utils.ChainBase:     "base",
	utils.ChainBSC:      "bsc",
	utils.ChainPolygon:  "polygon",
	utils.ChainArbitrum: "arbitrum",
}

type MoralisClient struct {
	baseURL    string
	apiKey     string
	maxHolders int
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

func NewMoralisClient(cfg config.MoralisConfig, logger *zap.Logger) *MoralisClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxHolders := cfg.MaxHolders
	if maxHolders <= 0 || maxHolders > MaxHolders {
		maxHolders = MaxHolders
	}

	// 创建HTTP客户端配置
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:        time.Duration(cfg.Timeout) * time.Second,
		RateLimit:      cfg.RateLimit,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		Headers:        map[string]string{"X-API-Key": cfg.APIKey, "accept": "application/json"},
	}

	return &MoralisClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		maxHolders: maxHolders,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger,
	}
}

// GetEvmTokenHolders 按 cursor 翻页拉取持有者，过滤零余额并按地址去重，最多返回 maxHolders 条
func (m *MoralisClient) GetEvmTokenHolders(ctx context.Context, chain string, tokenAddr string) ([]model.HolderData, error) {
	if m.apiKey == "" {
		return nil, httpclient.ErrMissingAPIKey
	}
	chainParam, ok := chainParams[utils.NormalizeChain(chain)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", httpclient.ErrUnsupportedChain, chain)
	}

	url := fmt.Sprintf("%s/api/v2.2/erc20/%s/owners", m.baseURL, tokenAddr)
	seen := make(map[string]struct{})
	resp := make([]model.HolderData, 0, pageSize)
	cursor := ""
	pages := 0

	for len(resp) < m.maxHolders {
		query := map[string]string{
			"chain": chainParam,
			"limit": fmt.Sprint(pageSize),
			"order": "DESC",
		}
		if cursor != "" {
			query["cursor"] = cursor
		}

		var tokenHolders TokenHoldersResp
		if err := m.httpClient.Get(ctx, url, query, nil, &tokenHolders); err != nil {
			return nil, fmt.Errorf("fetch evm token holders failed, token: %s, page: %d: %w", tokenAddr, pages, err)
		}
		pages++

		for _, h := range tokenHolders.Result {
			if len(resp) >= m.maxHolders {
				break
			}
			balance, err := decimal.NewFromString(h.BalanceFormatted)
			if err != nil || !balance.IsPositive() {
				continue
			}
			addr := strings.ToLower(h.OwnerAddress)
			if _, dup := seen[addr]; dup {
				continue
			}
			seen[addr] = struct{}{}
			resp = append(resp, model.HolderData{Address: h.OwnerAddress, Balance: balance})
		}

		cursor = tokenHolders.Cursor
		if cursor == "" || len(tokenHolders.Result) == 0 {
			break
		}
	}

	m.logger.Debug("Fetched evm token holders",
		zap.String("token", tokenAddr),
		zap.String("chain", chainParam),
		zap.Int("pages", pages),
		zap.Int("holders", len(resp)),
	)
	if len(resp) == 0 {
		return nil, httpclient.NoData("holder")
	}
	return resp, nil
}
