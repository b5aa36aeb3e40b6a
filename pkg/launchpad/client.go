package launchpad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/pkg/httpclient"

	"go.uber.org/zap"
)

const clubByTokenQuery = `query ClubByToken($token: String!) {
  clubs(where: { tokenAddress: $token }, first: 1) {
    id version tokenAddress name symbol
    supply liquidity complete
    hook targetMarketCap liquidityReleasedAt
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResp struct {
	Data struct {
		Clubs []json.RawMessage `json:"clubs"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type Client struct {
	endpoint   string
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

func NewClient(cfg config.ProviderConfig, logger *zap.Logger) *Client {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:        time.Duration(cfg.Timeout) * time.Second,
		RateLimit:      cfg.RateLimit,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		Headers:        headers,
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger,
	}
}

func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

// GetClubByToken 查询代币对应的启动板 club
func (c *Client) GetClubByToken(ctx context.Context, tokenAddress string) (Club, error) {
	if !c.Enabled() {
		return nil, errors.New("launchpad endpoint not configured")
	}
	req := graphQLRequest{
		Query:     clubByTokenQuery,
		Variables: map[string]any{"token": strings.ToLower(tokenAddress)},
	}
	var resp graphQLResp
	if err := c.httpClient.PostJSON(ctx, c.endpoint, req, nil, &resp); err != nil {
		return nil, fmt.Errorf("query launchpad club %s: %w", tokenAddress, err)
	}
	if len(resp.Errors) > 0 {
		return nil, errors.New("launchpad graphql error: " + resp.Errors[0].Message)
	}
	if len(resp.Data.Clubs) == 0 {
		return nil, httpclient.NoData("launchpad club")
	}
	return DecodeClub(resp.Data.Clubs[0])
}
