package utils

import (
	"hash/crc32"
)

// GetHashBucket 同一个 key 总是落到同一个 worker，保证 room 内顺序
func GetHashBucket(key string, bucketSize uint32) uint32 {
	if bucketSize == 0 {
		return 0
	}
	return crc32.ChecksumIEEE([]byte(key)) % bucketSize
}
