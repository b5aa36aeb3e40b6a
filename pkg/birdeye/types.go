package birdeye

// TokenSecurityData 持仓集中度相关的安全数据
type TokenSecurityData struct {
	OwnerBalance       float64 `json:"ownerBalance"`
	CreatorBalance     float64 `json:"creatorBalance"`
	OwnerPercentage    float64 `json:"ownerPercentage"`
	CreatorPercentage  float64 `json:"creatorPercentage"`
	Top10HolderBalance float64 `json:"top10HolderBalance"`
	Top10HolderPercent float64 `json:"top10HolderPercent"`
}

type securityResp struct {
	Success bool               `json:"success"`
	Data    *TokenSecurityData `json:"data"`
}

// TokenTradeData 交易统计，变化百分比字段上游可能缺失，用指针区分
type TokenTradeData struct {
	Address           string  `json:"address"`
	Holder            int64   `json:"holder"`
	Market            int64   `json:"market"`
	LastTradeUnixTime int64   `json:"last_trade_unix_time"`
	Price             float64 `json:"price"`
	History24hPrice   float64 `json:"history_24h_price"`

	PriceChange1hPercent  *float64 `json:"price_change_1h_percent"`
	PriceChange12hPercent *float64 `json:"price_change_12h_percent"`
	PriceChange24hPercent *float64 `json:"price_change_24h_percent"`

	UniqueWallet24h        int64 `json:"unique_wallet_24h"`
	UniqueWalletHistory24h int64 `json:"unique_wallet_history_24h"`

	UniqueWallet30mChangePercent *float64 `json:"unique_wallet_30m_change_percent"`
	UniqueWallet1hChangePercent  *float64 `json:"unique_wallet_1h_change_percent"`
	UniqueWallet2hChangePercent  *float64 `json:"unique_wallet_2h_change_percent"`
	UniqueWallet4hChangePercent  *float64 `json:"unique_wallet_4h_change_percent"`
	UniqueWallet8hChangePercent  *float64 `json:"unique_wallet_8h_change_percent"`
	UniqueWallet24hChangePercent *float64 `json:"unique_wallet_24h_change_percent"`

	Volume24h    float64 `json:"volume_24h"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	Volume12hUSD float64 `json:"volume_12h_usd"`
	Buy24h       int64   `json:"buy_24h"`
	Sell24h      int64   `json:"sell_24h"`
}

// UniqueWalletChangeWindows 按 30m/1h/2h/4h/8h/24h 顺序返回持币钱包变化百分比
func (t *TokenTradeData) UniqueWalletChangeWindows() []*float64 {
	return []*float64{
		t.UniqueWallet30mChangePercent,
		t.UniqueWallet1hChangePercent,
		t.UniqueWallet2hChangePercent,
		t.UniqueWallet4hChangePercent,
		t.UniqueWallet8hChangePercent,
		t.UniqueWallet24hChangePercent,
	}
}

type tradeResp struct {
	Success bool            `json:"success"`
	Data    *TokenTradeData `json:"data"`
}
