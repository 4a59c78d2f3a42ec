package kv

import (
	"bytes"
	"encoding/binary"
	"time"
)

// expiryMagic 标记带过期时间的值，后接 8 字节大端 unix 毫秒.
var expiryMagic = []byte{0xC5, 'V', 'x', 1}

const expiryHeaderLen = 4 + 8

// withExpiry 为 ttl>0 的值加上过期头，用于不支持条目级 TTL 的后端.
func withExpiry(value []byte, ttl time.Duration, now time.Time) []byte {
	if ttl <= 0 {
		return value
	}

	out := make([]byte, expiryHeaderLen+len(value))
	copy(out, expiryMagic)
	binary.BigEndian.PutUint64(out[4:expiryHeaderLen], uint64(now.Add(ttl).UnixMilli()))
	copy(out[expiryHeaderLen:], value)

	return out
}

// stripExpiry 去掉过期头，expired 为 true 时调用方应视为不存在.
func stripExpiry(b []byte, now time.Time) (value []byte, expired bool) {
	if len(b) < expiryHeaderLen || !bytes.Equal(b[:4], expiryMagic) {
		return b, false
	}

	deadline := int64(binary.BigEndian.Uint64(b[4:expiryHeaderLen]))
	if now.UnixMilli() >= deadline {
		return nil, true
	}

	return b[expiryHeaderLen:], false
}
