package analyzer

import "github.com/shopspring/decimal"

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

const (
	trendUpThreshold   = 10.0
	trendDownThreshold = -10.0

	highValueHolderUSD    = 5.0
	highSupplyHolderShare = 0.02
)

// HolderDistributionTrend 对有值的窗口取平均，缺失窗口不计入
func HolderDistributionTrend(windows []*float64) Trend {
	sum, n := 0.0, 0
	for _, w := range windows {
		if w == nil {
			continue
		}
		sum += *w
		n++
	}
	if n == 0 {
		return TrendStable
	}
	avg := sum / float64(n)
	switch {
	case avg > trendUpThreshold:
		return TrendIncreasing
	case avg < trendDownThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// CountHighValueHolders balance × price > $5 的持有者数
func CountHighValueHolders(holders []decimal.Decimal, price float64) int {
	p := decimal.NewFromFloat(price)
	threshold := decimal.NewFromFloat(highValueHolderUSD)
	count := 0
	for _, b := range holders {
		if b.Mul(p).GreaterThan(threshold) {
			count++
		}
	}
	return count
}

// CountHighSupplyHolders 持仓占已知总量超过 2% 的持有者数
func CountHighSupplyHolders(holders []decimal.Decimal) int {
	total := decimal.Zero
	for _, b := range holders {
		total = total.Add(b)
	}
	if !total.IsPositive() {
		return 0
	}
	threshold := decimal.NewFromFloat(highSupplyHolderShare)
	count := 0
	for _, b := range holders {
		if b.Div(total).GreaterThan(threshold) {
			count++
		}
	}
	return count
}
