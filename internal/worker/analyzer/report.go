package analyzer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func usd(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

// FormatReport 交给模型打分的文字报告；高价值持有者只给数量
func FormatReport(data *ProcessedTokenData) string {
	var b strings.Builder
	t := data.Trade
	s := data.Security
	p := data.BestPair

	fmt.Fprintf(&b, "Token Performance Report for %s (%s on %s)\n\n", data.Token.Ticker, data.Token.Address, data.Token.Chain)

	b.WriteString("Security Data:\n")
	fmt.Fprintf(&b, "- Owner Balance: %g\n", s.OwnerBalance)
	fmt.Fprintf(&b, "- Creator Balance: %g\n", s.CreatorBalance)
	fmt.Fprintf(&b, "- Owner Percentage: %.4f%%\n", s.OwnerPercentage*100)
	fmt.Fprintf(&b, "- Creator Percentage: %.4f%%\n", s.CreatorPercentage*100)
	fmt.Fprintf(&b, "- Top 10 Holders Balance: %g\n", s.Top10HolderBalance)
	fmt.Fprintf(&b, "- Top 10 Holders Percentage: %.4f%%\n\n", s.Top10HolderPercent*100)

	b.WriteString("Trade Data:\n")
	fmt.Fprintf(&b, "- Price: %s\n", usd(t.Price))
	fmt.Fprintf(&b, "- 24h Price Change: %s\n", pct(t.PriceChange24hPercent))
	fmt.Fprintf(&b, "- 12h Price Change: %s\n", pct(t.PriceChange12hPercent))
	fmt.Fprintf(&b, "- 1h Price Change: %s\n", pct(t.PriceChange1hPercent))
	fmt.Fprintf(&b, "- 24h Volume: %s\n", usd(t.Volume24hUSD))
	fmt.Fprintf(&b, "- 12h Volume: %s\n", usd(t.Volume12hUSD))
	fmt.Fprintf(&b, "- 24h Buys / Sells: %d / %d\n", t.Buy24h, t.Sell24h)
	fmt.Fprintf(&b, "- Unique Wallets 24h: %d (prev %d, change %s)\n\n", t.UniqueWallet24h, t.UniqueWalletHistory24h, pct(t.UniqueWallet24hChangePercent))

	b.WriteString("Holder Distribution:\n")
	fmt.Fprintf(&b, "- Trend: %s\n", data.HolderDistributionTrend)
	fmt.Fprintf(&b, "- Holders Sampled: %d\n", data.HolderCount)
	fmt.Fprintf(&b, "- High-Value Holders (> $5): %d\n", data.HighValueHolderCount)
	fmt.Fprintf(&b, "- Holders Above 2%% Of Sampled Supply: %d\n", data.HighSupplyHoldersCount)
	fmt.Fprintf(&b, "- Recent Trades: %t\n\n", data.RecentTrades)

	b.WriteString("DexScreener:\n")
	fmt.Fprintf(&b, "- Listed: %t\n", data.IsDexScreenerListed)
	fmt.Fprintf(&b, "- Paid Boost: %t\n", data.IsDexScreenerPaid)
	fmt.Fprintf(&b, "- Pairs: %d\n", len(data.DexScreener.Pairs))
	fmt.Fprintf(&b, "- Best Pair: %s on %s\n", p.PairAddress, p.DexID)
	fmt.Fprintf(&b, "- Liquidity: %s\n", usd(p.LiquidityUSD()))
	fmt.Fprintf(&b, "- Market Cap: %s\n", usd(p.MarketCap))
	fmt.Fprintf(&b, "- FDV: %s\n", usd(p.Fdv))
	fmt.Fprintf(&b, "- 24h Txns: %d buys / %d sells\n", p.Txns.H24.Buys, p.Txns.H24.Sells)

	if ShouldTradeToken(data) {
		b.WriteString("\nSignal: at least one activity threshold is met for this token.\n")
	}
	return b.String()
}
