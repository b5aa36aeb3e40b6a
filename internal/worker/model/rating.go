package model

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TokenRating 评分记录，只有非 NEUTRAL 的评分才会落库
type TokenRating struct {
	ID           string          `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	AgentID      string          `gorm:"column:agent_id;type:varchar(128);not null;index" json:"agent_id"`
	Ticker       string          `gorm:"column:ticker;type:varchar(64);not null" json:"ticker"`
	TokenAddress string          `gorm:"column:token_address;type:varchar(128);not null;index" json:"token_address"`
	Chain        string          `gorm:"column:chain;type:varchar(32);not null" json:"chain"`
	Score        TokenScore      `gorm:"column:score;type:smallint;not null" json:"score"`
	Reason       string          `gorm:"column:reason;type:text" json:"reason"`
	Requester    string          `gorm:"column:requester;type:varchar(128)" json:"requester"`
	Trade        *datatypes.JSON `gorm:"column:trade" json:"trade,omitempty"`                         // 交易子文档 TradeInfo
	SubmittedAt  *int64          `gorm:"column:submitted_at" json:"submitted_at,omitempty"`           // 下单认领时间，毫秒
	TradeID      *string         `gorm:"column:trade_id;type:varchar(128)" json:"trade_id,omitempty"` // 托管服务交易 id
	Timestamp    int64           `gorm:"column:timestamp;not null;index" json:"timestamp"`            // 毫秒时间戳
	UpdatedAt    time.Time       `gorm:"column:updated_at;type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (*TokenRating) TableName() string {
	return "t_token_rating"
}

// TradeInfo 评分记录上挂载的交易结果
type TradeInfo struct {
	TxHash     string          `json:"tx_hash"`
	Link       string          `json:"link"`
	Side       string          `json:"side"`
	FromAsset  string          `json:"from_asset"`
	ToAsset    string          `json:"to_asset"`
	Amount     decimal.Decimal `json:"amount"`
	ToAmount   decimal.Decimal `json:"to_amount"`
	ExecutedAt int64           `json:"executed_at"`
}

// GetTrade 解析交易子文档，未交易时返回 nil
func (r *TokenRating) GetTrade() (*TradeInfo, error) {
	if r.Trade == nil || len(*r.Trade) == 0 {
		return nil, nil
	}
	var info TradeInfo
	if err := sonic.Unmarshal(*r.Trade, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// EncodeTrade 序列化交易子文档
func EncodeTrade(info TradeInfo) (datatypes.JSON, error) {
	data, err := sonic.Marshal(info)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
