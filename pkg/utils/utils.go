package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// 支持的链
const (
	ChainSolana   = "solana"
	ChainEthereum = "ethereum"
	ChainBase     = "base"
	ChainBSC      = "bsc"
	ChainArbitrum = "arbitrum"
	ChainPolygon  = "polygon"
)

var evmChains = map[string]struct{}{
	ChainEthereum: {},
	ChainBase:     {},
	ChainBSC:      {},
	ChainArbitrum: {},
	ChainPolygon:  {},
}

// NormalizeChain 统一链名（小写、常见别名）
func NormalizeChain(chain string) string {
	c := strings.ToLower(strings.TrimSpace(chain))
	switch c {
	case "sol":
		return ChainSolana
	case "eth", "mainnet":
		return ChainEthereum
	case "bnb", "binance":
		return ChainBSC
	case "matic":
		return ChainPolygon
	case "arb":
		return ChainArbitrum
	}
	return c
}

// IsEVMChain 是否为 EVM 链
func IsEVMChain(chain string) bool {
	_, ok := evmChains[NormalizeChain(chain)]
	return ok
}

// IsSupportedChain 是否为支持的链
func IsSupportedChain(chain string) bool {
	return NormalizeChain(chain) == ChainSolana || IsEVMChain(chain)
}

// IsValidAddress 按链族校验地址格式
func IsValidAddress(chain, address string) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return false
	}
	if IsEVMChain(chain) {
		return common.IsHexAddress(address)
	}
	if NormalizeChain(chain) == ChainSolana {
		_, err := solana.PublicKeyFromBase58(address)
		return err == nil
	}
	return false
}

// ChecksumAddress 将 EVM 地址转换为 EIP-55 Checksum 格式，非 EVM 地址原样返回
func ChecksumAddress(addr string, chain string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if IsEVMChain(chain) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}

// Percent 计算 amount * pct / 100
func Percent(amount decimal.Decimal, pct int64) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100))
}
