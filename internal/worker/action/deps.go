package action

import (
	"context"

	"web3-token-agent/internal/worker/analyzer"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/service"
	"web3-token-agent/pkg/custody"
	"web3-token-agent/pkg/launchpad"
	"web3-token-agent/pkg/twitter"

	"github.com/shopspring/decimal"
)

// 动作依赖的外部协作方，按最小接口声明

type Model interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	CompleteJSON(ctx context.Context, system, prompt string, out any) error
}

type PostSearcher interface {
	SearchRecent(ctx context.Context, query string) ([]twitter.Post, error)
}

type TokenAnalyzer interface {
	GetProcessedTokenData(ctx context.Context, token analyzer.TokenRef) (*analyzer.ProcessedTokenData, error)
}

type ClubSource interface {
	GetClubByToken(ctx context.Context, tokenAddress string) (launchpad.Club, error)
}

type RoomMemory interface {
	Recent(ctx context.Context, agentID, roomID string, n int) ([]*model.Message, error)
}

type RatingStore interface {
	Save(ctx context.Context, r *model.TokenRating) (bool, error)
	ClaimTrade(ctx context.Context, id string) (bool, error)
	MarkSubmitted(ctx context.Context, id, tradeID string) error
	ReleaseTrade(ctx context.Context, id string) error
	AttachTrade(ctx context.Context, id string, trade model.TradeInfo) (*model.TokenRating, error)
}

type WalletProvider interface {
	GetWallets(ctx context.Context, agentID string, create bool) (*service.WalletSet, error)
	Balances(ctx context.Context, wallet *custody.Wallet, assets ...string) (map[string]decimal.Decimal, error)
	SubmitTrade(ctx context.Context, wallet *custody.Wallet, tokenIn, tokenOut string, amount decimal.Decimal) (string, error)
	AwaitTrade(ctx context.Context, wallet *custody.Wallet, tradeID string) (*service.TradeResult, error)
}
