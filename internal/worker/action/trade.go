package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/monitor"
	"web3-token-agent/internal/worker/runtime"
	"web3-token-agent/pkg/custody"
	"web3-token-agent/pkg/httpclient"
	"web3-token-agent/pkg/logger"
	"web3-token-agent/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const ExecuteTradeName = "EXECUTE_TRADE"

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// 仓位比例暂为常量
const (
	buyPercent        = 10
	strongBuyPercent  = 25
	sellPercent       = 50
	strongSellPercent = 100
)

// TradePlan 一次交易的资产和数量
type TradePlan struct {
	Side      string
	FromAsset string
	ToAsset   string
	Amount    decimal.Decimal
}

// sizing 每个评分档位对应的方向和比例，NEUTRAL 不交易
func sizing(score model.TokenScore) (side string, percent int64, ok bool) {
	switch score {
	case model.ScoreStrongBuy:
		return SideBuy, strongBuyPercent, true
	case model.ScoreBuy:
		return SideBuy, buyPercent, true
	case model.ScoreNeutral:
		return "", 0, false
	case model.ScoreSell:
		return SideSell, sellPercent, true
	case model.ScoreStrongSell:
		return SideSell, strongSellPercent, true
	default:
		return "", 0, false
	}
}

// PlanTrade 买入用 USDC/ETH 中余额较大者，卖出把代币换成 USDC；数量为 0 时返回 nil
func PlanTrade(score model.TokenScore, token string, balances map[string]decimal.Decimal, cfg config.WalletConfig) *TradePlan {
	side, percent, ok := sizing(score)
	if !ok {
		return nil
	}
	get := func(asset string) decimal.Decimal {
		return balances[strings.ToLower(asset)]
	}

	plan := &TradePlan{Side: side}
	switch side {
	case SideBuy:
		usdc, eth := get(cfg.USDCAddress), get(cfg.ETHAddress)
		plan.ToAsset = token
		if usdc.GreaterThan(eth) {
			plan.FromAsset, plan.Amount = cfg.USDCAddress, utils.Percent(usdc, percent)
		} else {
			plan.FromAsset, plan.Amount = cfg.ETHAddress, utils.Percent(eth, percent)
		}
	case SideSell:
		plan.FromAsset, plan.ToAsset = token, cfg.USDCAddress
		plan.Amount = utils.Percent(get(token), percent)
	}
	if !plan.Amount.IsPositive() {
		return nil
	}
	return plan
}

type TradeDeps struct {
	Wallets WalletProvider
	Ratings RatingStore
}

// ExecuteTrade 根据评分在托管钱包上下单
type ExecuteTrade struct {
	cfg  config.WalletConfig
	deps TradeDeps
	tl   *zap.Logger
}

func NewExecuteTrade(cfg config.WalletConfig, deps TradeDeps, tl *zap.Logger) *ExecuteTrade {
	return &ExecuteTrade{cfg: cfg, deps: deps, tl: logger.Component(tl, "action.trade")}
}

func (a *ExecuteTrade) Name() string { return ExecuteTradeName }

func (a *ExecuteTrade) Similes() []string {
	return []string{"TRADE_TOKEN", "SWAP_TOKEN"}
}

func (a *ExecuteTrade) Description() string {
	return "Buys or sells a scored token through the agent's custodial wallet."
}

// Validate 只接受 agent 自己发出的消息（评分串联、补单任务），外部入口不能直接下单
func (a *ExecuteTrade) Validate(ctx context.Context, msg *model.Message) bool {
	if !runtime.FromAgent(msg) {
		return false
	}
	_, ok := payloadFromData(msg.Content.Data)
	return ok
}

func (a *ExecuteTrade) Handle(ctx context.Context, msg *model.Message, cb runtime.Callback) error {
	tl := logger.WithTrace(ctx, a.tl).With(zap.String("room_id", msg.RoomID))

	p, ok := payloadFromData(msg.Content.Data)
	if !ok {
		tl.Warn("invalid trade payload")
		return nil
	}
	tl = tl.With(zap.String("ticker", p.Ticker), zap.String("score", p.Score.String()), zap.String("object_id", p.ObjectID))

	if p.Chain != utils.NormalizeChain(a.cfg.TradeNetwork) {
		tl.Info("chain not tradable, skip", zap.String("chain", p.Chain))
		return nil
	}
	if _, _, ok := sizing(p.Score); !ok {
		return nil
	}

	set, err := a.deps.Wallets.GetWallets(ctx, msg.AgentID, false)
	if err != nil {
		tl.Error("load wallets failed", zap.Error(err))
		return nil
	}
	wallet := set.Get(p.Chain)
	if wallet == nil {
		tl.Warn("no wallet for trade network")
		return nil
	}

	balances, err := a.deps.Wallets.Balances(ctx, wallet, a.cfg.USDCAddress, a.cfg.ETHAddress, p.InputTokenAddress)
	if err != nil {
		tl.Error("load balances failed", zap.Error(err))
		return nil
	}
	plan := PlanTrade(p.Score, p.InputTokenAddress, balances, a.cfg)
	if plan == nil {
		tl.Info("nothing to trade")
		return nil
	}

	if p.ObjectID != "" {
		claimed, err := a.deps.Ratings.ClaimTrade(ctx, p.ObjectID)
		if err != nil {
			tl.Error("claim rating failed", zap.Error(err))
			return nil
		}
		if !claimed {
			tl.Info("rating already traded or in flight, skip")
			return nil
		}
	}

	tradeID, err := a.deps.Wallets.SubmitTrade(ctx, wallet, plan.FromAsset, plan.ToAsset, plan.Amount)
	if err != nil {
		monitor.Trades.WithLabelValues(plan.Side, "error").Inc()
		if rejected(err) {
			a.release(ctx, tl, p.ObjectID)
			tl.Error("trade rejected", zap.Error(err))
			return nil
		}
		// 状态未知，保留认领等人工对账
		tl.Error("trade submission state unknown, rating stays claimed", zap.Error(err))
		return nil
	}
	tl = tl.With(zap.String("trade_id", tradeID))
	if p.ObjectID != "" {
		if err := a.deps.Ratings.MarkSubmitted(ctx, p.ObjectID, tradeID); err != nil {
			tl.Warn("record trade id failed", zap.Error(err))
		}
	}

	result, err := a.deps.Wallets.AwaitTrade(ctx, wallet, tradeID)
	switch {
	case err != nil:
		monitor.Trades.WithLabelValues(plan.Side, "error").Inc()
		tl.Error("trade did not settle, rating stays claimed", zap.Error(err))
		return nil
	case result == nil:
		monitor.Trades.WithLabelValues(plan.Side, "incomplete").Inc()
		a.release(ctx, tl, p.ObjectID)
		return nil
	}
	monitor.Trades.WithLabelValues(plan.Side, "complete").Inc()

	if p.ObjectID != "" {
		_, err := a.deps.Ratings.AttachTrade(ctx, p.ObjectID, model.TradeInfo{
			TxHash:     result.TxHash,
			Link:       result.Link,
			Side:       plan.Side,
			FromAsset:  plan.FromAsset,
			ToAsset:    plan.ToAsset,
			Amount:     plan.Amount,
			ToAmount:   result.ToAmount,
			ExecutedAt: time.Now().UnixMilli(),
		})
		if err != nil {
			tl.Error("record trade on rating failed", zap.String("tx_hash", result.TxHash), zap.Error(err))
		}
	}

	from, to := assetLabel(plan.FromAsset, p.Ticker, a.cfg), assetLabel(plan.ToAsset, p.Ticker, a.cfg)
	description := fmt.Sprintf("Bought %s %s with %s %s", result.ToAmount.String(), to, plan.Amount.String(), from)
	if plan.Side == SideSell {
		description = fmt.Sprintf("Sold %s %s for %s %s", plan.Amount.String(), from, result.ToAmount.String(), to)
	}
	return cb(ctx, model.Content{
		Text:   fmt.Sprintf("%s. Transaction: %s", description, result.Link),
		Source: msg.Content.Source,
		Attachments: []model.Attachment{{
			ID:          uuid.NewString(),
			URL:         result.Link,
			Title:       "Trade executed",
			Source:      "tradeExecution",
			Description: description,
		}},
	})
}

func (a *ExecuteTrade) release(ctx context.Context, tl *zap.Logger, ratingID string) {
	if ratingID == "" {
		return
	}
	if err := a.deps.Ratings.ReleaseTrade(ctx, ratingID); err != nil {
		tl.Warn("release rating failed", zap.Error(err))
	}
}

// rejected 托管服务明确拒单（4xx 或未配置），交易一定没有发生
func rejected(err error) bool {
	if errors.Is(err, httpclient.ErrMissingAPIKey) || errors.Is(err, custody.ErrNotConfigured) {
		return true
	}
	var httpErr *httpclient.HTTPError
	return errors.As(err, &httpErr) && httpErr.Code >= 400 && httpErr.Code < 500
}

func assetLabel(asset, ticker string, cfg config.WalletConfig) string {
	switch strings.ToLower(asset) {
	case strings.ToLower(cfg.USDCAddress):
		return "USDC"
	case strings.ToLower(cfg.ETHAddress):
		return "ETH"
	}
	return ticker
}
