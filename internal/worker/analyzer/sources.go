package analyzer

import (
	"context"
	"fmt"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/pkg/birdeye"
	"web3-token-agent/pkg/dexscreener"
	"web3-token-agent/pkg/httpclient"
	"web3-token-agent/pkg/utils"
)

// MarketSource 安全数据 + 交易统计（birdeye）
type MarketSource interface {
	GetTokenSecurity(ctx context.Context, chain, address string) (*birdeye.TokenSecurityData, error)
	GetTokenTradeData(ctx context.Context, chain, address string) (*birdeye.TokenTradeData, error)
}

// PairSource DEX 交易对（dexscreener）
type PairSource interface {
	Search(ctx context.Context, query string) (*dexscreener.SearchResult, error)
}

// HolderSource 持有者列表
type HolderSource interface {
	Holders(ctx context.Context, chain, address string) ([]model.HolderData, error)
}

type evmHolderSource interface {
	GetEvmTokenHolders(ctx context.Context, chain, tokenAddr string) ([]model.HolderData, error)
}

type solanaHolderSource interface {
	GetTokenHolders(ctx context.Context, mint string) ([]model.HolderData, error)
}

// HolderRouter 按链族选择持有者数据源：EVM 走 moralis，solana 走 helius
type HolderRouter struct {
	evm    evmHolderSource
	solana solanaHolderSource
}

func NewHolderRouter(evm evmHolderSource, solana solanaHolderSource) *HolderRouter {
	return &HolderRouter{evm: evm, solana: solana}
}

func (r *HolderRouter) Holders(ctx context.Context, chain, address string) ([]model.HolderData, error) {
	chain = utils.NormalizeChain(chain)
	switch {
	case chain == utils.ChainSolana:
		return r.solana.GetTokenHolders(ctx, address)
	case utils.IsEVMChain(chain):
		return r.evm.GetEvmTokenHolders(ctx, chain, address)
	default:
		return nil, fmt.Errorf("%w: %s", httpclient.ErrUnsupportedChain, chain)
	}
}
