package model

import "github.com/shopspring/decimal"

// HolderData 持有者地址 + 余额（已处理精度）
type HolderData struct {
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}
