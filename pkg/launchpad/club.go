package launchpad

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

// Club 启动板代币，只有 ClubV1 / ClubV2 两种实现
type Club interface {
	ClubID() string
	Token() string
	sealed()
}

// ClubV1 bonding curve 版本
type ClubV1 struct {
	ID           string          `json:"id"`
	TokenAddress string          `json:"tokenAddress"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	Supply       decimal.Decimal `json:"supply"`
	Liquidity    decimal.Decimal `json:"liquidity"`
	Complete     bool            `json:"complete"`
}

// ClubV2 hook 版本，流动性释放后视为毕业
type ClubV2 struct {
	ID                  string          `json:"id"`
	TokenAddress        string          `json:"tokenAddress"`
	Name                string          `json:"name"`
	Symbol              string          `json:"symbol"`
	Hook                string          `json:"hook"`
	TargetMarketCap     decimal.Decimal `json:"targetMarketCap"`
	LiquidityReleasedAt int64           `json:"liquidityReleasedAt"` // 秒，0 表示未释放
}

func (c *ClubV1) ClubID() string { return c.ID }
func (c *ClubV1) Token() string  { return c.TokenAddress }
func (*ClubV1) sealed()          {}

func (c *ClubV2) ClubID() string { return c.ID }
func (c *ClubV2) Token() string  { return c.TokenAddress }
func (*ClubV2) sealed()          {}

// Graduated 是否已迁出启动板
func Graduated(c Club) bool {
	switch v := c.(type) {
	case *ClubV1:
		return v.Complete
	case *ClubV2:
		return v.LiquidityReleasedAt > 0
	default:
		panic(fmt.Sprintf("unknown club type %T", c))
	}
}

// Summary 生成写入技术分析报告的启动板段落
func Summary(c Club) string {
	var b strings.Builder
	b.WriteString("Launchpad Club:\n")
	switch v := c.(type) {
	case *ClubV1:
		fmt.Fprintf(&b, "- Version: v1 (bonding curve)\n")
		fmt.Fprintf(&b, "- Name: %s (%s)\n", v.Name, v.Symbol)
		fmt.Fprintf(&b, "- Supply: %s\n", v.Supply.String())
		fmt.Fprintf(&b, "- Liquidity: %s\n", v.Liquidity.String())
	case *ClubV2:
		fmt.Fprintf(&b, "- Version: v2 (hook %s)\n", v.Hook)
		fmt.Fprintf(&b, "- Name: %s (%s)\n", v.Name, v.Symbol)
		fmt.Fprintf(&b, "- Target market cap: $%s\n", v.TargetMarketCap.StringFixed(0))
		if v.LiquidityReleasedAt > 0 {
			fmt.Fprintf(&b, "- Liquidity released: %s\n", time.Unix(v.LiquidityReleasedAt, 0).UTC().Format(time.RFC3339))
		}
	default:
		panic(fmt.Sprintf("unknown club type %T", c))
	}
	fmt.Fprintf(&b, "- Graduated: %t\n", Graduated(c))
	return b.String()
}

// DecodeClub 按 version 字段解码
func DecodeClub(raw []byte) (Club, error) {
	var head struct {
		Version any `json:"version"`
	}
	if err := sonic.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode club version: %w", err)
	}

	switch strings.TrimPrefix(strings.ToLower(fmt.Sprint(head.Version)), "v") {
	case "1":
		var c ClubV1
		if err := sonic.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode club v1: %w", err)
		}
		return &c, nil
	case "2":
		var c ClubV2
		if err := sonic.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode club v2: %w", err)
		}
		return &c, nil
	default:
		return nil, fmt.Errorf("unknown club version: %v", head.Version)
	}
}
