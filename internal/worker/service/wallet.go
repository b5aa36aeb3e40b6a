package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/dao"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/pkg/custody"
	"web3-token-agent/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustodyClient 托管钱包服务
type CustodyClient interface {
	CreateWallet(ctx context.Context, networkID string) (*custody.Wallet, error)
	ImportWallet(ctx context.Context, data custody.ExportData) (*custody.Wallet, error)
	ListBalances(ctx context.Context, walletID string) (map[string]decimal.Decimal, error)
	CreateTrade(ctx context.Context, walletID string, req custody.TradeRequest) (*custody.Trade, error)
	WaitTrade(ctx context.Context, walletID, tradeID string) (*custody.Trade, error)
}

// WalletSet 每次调用都从库里解密重建，不跨调用复用
type WalletSet struct {
	Wallets        map[string]*custody.Wallet // chain -> wallet
	ProfileHandle  *string
	AdminProfileID *string
}

func (s *WalletSet) Get(chain string) *custody.Wallet {
	if s == nil {
		return nil
	}
	return s.Wallets[utils.NormalizeChain(chain)]
}

type TradeResult struct {
	TxHash   string
	Link     string
	ToAmount decimal.Decimal
}

type WalletService struct {
	cfg     config.WalletConfig
	dao     dao.WalletDAO
	custody CustodyClient
	cipher  *utils.Cipher
	tl      *zap.Logger
}

func NewWalletService(cfg config.WalletConfig, walletDAO dao.WalletDAO, custodyClient CustodyClient, tl *zap.Logger) (*WalletService, error) {
	cipher, err := utils.NewCipher(cfg.EncryptionKey, cfg.EncryptionIV)
	if err != nil {
		return nil, err
	}
	return &WalletService{
		cfg:     cfg,
		dao:     walletDAO,
		custody: custodyClient,
		cipher:  cipher,
		tl:      tl,
	}, nil
}

// NetworkID chain -> 托管服务网络 id
func NetworkID(chain string) string {
	return utils.NormalizeChain(chain) + "-mainnet"
}

// GetWallets 记录不存在且 create=false 时返回 nil；解密/导入失败记录日志并返回 nil
func (s *WalletService) GetWallets(ctx context.Context, agentID string, create bool) (*WalletSet, error) {
	record, err := s.dao.Get(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("load wallet record of %s: %w", agentID, err)
	}
	if record == nil {
		if !create {
			return nil, nil
		}
		set, err := s.provision(ctx, agentID)
		if !errors.Is(err, dao.ErrWalletExists) {
			return set, err
		}
		// 并发创建，读取对方写入的记录
		if record, err = s.dao.Get(ctx, agentID); err != nil || record == nil {
			return nil, err
		}
	}

	set, err := s.restore(ctx, record)
	if err != nil {
		s.tl.Error("failed to restore wallets", zap.String("agent_id", agentID), zap.Error(err))
		return nil, nil
	}
	return set, nil
}

func (s *WalletService) provision(ctx context.Context, agentID string) (*WalletSet, error) {
	set := &WalletSet{Wallets: make(map[string]*custody.Wallet)}
	encrypted := make(map[string]string)

	for _, chain := range s.cfg.Chains {
		chain = utils.NormalizeChain(chain)
		w, err := s.custody.CreateWallet(ctx, NetworkID(chain))
		if err != nil {
			return nil, fmt.Errorf("create %s wallet: %w", chain, err)
		}
		plain, err := sonic.Marshal(w.Export)
		if err != nil {
			return nil, err
		}
		text, err := s.cipher.Encrypt(plain)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s wallet: %w", chain, err)
		}
		encrypted[chain] = text
		set.Wallets[chain] = w
	}

	record := &model.WalletRecord{AgentID: agentID}
	if err := record.SetEncryptedWallets(encrypted); err != nil {
		return nil, err
	}
	if err := s.dao.Create(ctx, record); err != nil {
		return nil, err
	}
	s.tl.Info("Provisioned agent wallets", zap.String("agent_id", agentID), zap.Strings("chains", record.Chains))
	return set, nil
}

func (s *WalletService) restore(ctx context.Context, record *model.WalletRecord) (*WalletSet, error) {
	encrypted, err := record.EncryptedWallets()
	if err != nil {
		return nil, fmt.Errorf("decode wallet record: %w", err)
	}
	set := &WalletSet{
		Wallets:        make(map[string]*custody.Wallet, len(encrypted)),
		ProfileHandle:  record.ProfileHandle,
		AdminProfileID: record.AdminProfileID,
	}
	for chain, text := range encrypted {
		plain, err := s.cipher.Decrypt(text)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s wallet: %w", chain, err)
		}
		var export custody.ExportData
		if err := sonic.Unmarshal(plain, &export); err != nil {
			return nil, fmt.Errorf("decode %s wallet export: %w", chain, err)
		}
		w, err := s.custody.ImportWallet(ctx, export)
		if err != nil {
			return nil, fmt.Errorf("import %s wallet: %w", chain, err)
		}
		set.Wallets[chain] = w
	}
	return set, nil
}

// Balances 返回指定资产余额，缺失的资产按 0 计
func (s *WalletService) Balances(ctx context.Context, wallet *custody.Wallet, assets ...string) (map[string]decimal.Decimal, error) {
	all, err := s.custody.ListBalances(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(assets))
	for _, asset := range assets {
		key := strings.ToLower(asset)
		out[key] = all[key]
	}
	return out, nil
}

// ExecuteTrade 阻塞直到交易进入终态；非 complete 返回 nil 结果
func (s *WalletService) ExecuteTrade(ctx context.Context, wallet *custody.Wallet, tokenIn, tokenOut string, amount decimal.Decimal) (*TradeResult, error) {
	tradeID, err := s.SubmitTrade(ctx, wallet, tokenIn, tokenOut, amount)
	if err != nil {
		return nil, err
	}
	return s.AwaitTrade(ctx, wallet, tradeID)
}

// SubmitTrade 只提交一次，返回托管服务的交易 id
func (s *WalletService) SubmitTrade(ctx context.Context, wallet *custody.Wallet, tokenIn, tokenOut string, amount decimal.Decimal) (string, error) {
	trade, err := s.custody.CreateTrade(ctx, wallet.ID, custody.TradeRequest{
		FromAsset: tokenIn,
		ToAsset:   tokenOut,
		Amount:    amount,
	})
	if err != nil {
		return "", err
	}
	s.tl.Info("Trade submitted",
		zap.String("wallet_id", wallet.ID),
		zap.String("trade_id", trade.ID),
		zap.String("from", tokenIn),
		zap.String("to", tokenOut),
		zap.String("amount", amount.String()))
	return trade.ID, nil
}

// AwaitTrade 等待交易终态；非 complete 返回 nil 结果
func (s *WalletService) AwaitTrade(ctx context.Context, wallet *custody.Wallet, tradeID string) (*TradeResult, error) {
	tl := s.tl.With(zap.String("wallet_id", wallet.ID), zap.String("trade_id", tradeID))

	trade, err := s.custody.WaitTrade(ctx, wallet.ID, tradeID)
	if err != nil {
		return nil, err
	}
	if trade.Status != custody.TradeComplete {
		tl.Warn("Trade did not complete", zap.String("status", string(trade.Status)))
		return nil, nil
	}

	link := trade.TransactionLink
	if link == "" && s.cfg.ExplorerURL != "" {
		link = s.cfg.ExplorerURL + trade.TransactionHash
	}
	tl.Info("Trade completed", zap.String("tx_hash", trade.TransactionHash))
	return &TradeResult{TxHash: trade.TransactionHash, Link: link, ToAmount: trade.ToAmount}, nil
}
