package utils

import (
	"fmt"
	"strings"
)

// 行情缓存的数据类型
const (
	DataTokenSecurity  = "tokenSecurity"
	DataTokenTrade     = "tokenTrade"
	DataDexScreener    = "dexScreenerData"
	DataHolderList     = "holderList"
	DataLaunchpadClub  = "launchpadClub"
	DataProcessedToken = "processedTokenData"
)

// MarketDataKey 行情缓存 key：<dataType>_<tokenAddress>
func MarketDataKey(dataType, tokenAddress string) string {
	return fmt.Sprintf("%s_%s", dataType, tokenAddress)
}

// RoomMemoryKey 房间最近消息列表
func RoomMemoryKey(agentID, roomID string) string {
	return fmt.Sprintf("token_agent:memory:%s:%s", agentID, roomID)
}

// RedisCacheKey 行情缓存在 redis 中的 key
func RedisCacheKey(key string) string {
	return "token_agent:market:" + key
}

// SafeFileName 将缓存 key 转换为可用的文件名
func SafeFileName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		}
		return '_'
	}, key)
}
