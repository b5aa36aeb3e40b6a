package custody

import "github.com/shopspring/decimal"

// ExportData 托管钱包导出数据，导入时原样提交
type ExportData struct {
	WalletID  string `json:"walletId"`
	Seed      string `json:"seed"`
	NetworkID string `json:"networkId"`
}

type Wallet struct {
	ID             string     `json:"id"`
	NetworkID      string     `json:"network_id"`
	DefaultAddress string     `json:"default_address"`
	Export         ExportData `json:"-"`
}

type walletResp struct {
	Wallet Wallet      `json:"wallet"`
	Export *ExportData `json:"export"`
}

type Balance struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
}

type balancesResp struct {
	Balances []Balance `json:"balances"`
}

type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeBroadcast TradeStatus = "broadcast"
	TradeComplete  TradeStatus = "complete"
	TradeFailed    TradeStatus = "failed"
)

// Terminal 是否为终态
func (s TradeStatus) Terminal() bool {
	return s == TradeComplete || s == TradeFailed
}

type TradeRequest struct {
	FromAsset string          `json:"from_asset_id"`
	ToAsset   string          `json:"to_asset_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type Trade struct {
	ID              string          `json:"trade_id"`
	Status          TradeStatus     `json:"status"`
	TransactionHash string          `json:"transaction_hash"`
	TransactionLink string          `json:"transaction_link"`
	FromAmount      decimal.Decimal `json:"from_amount"`
	ToAmount        decimal.Decimal `json:"to_amount"`
}
