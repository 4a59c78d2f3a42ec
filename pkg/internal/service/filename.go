package service

import (
	crand "crypto/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// fallbackName 清洗后为空或为点段时使用的文件名.
const fallbackName = "file"

var (
	// ulidEntropy 单调熵源，非并发安全，由 ulidMu 保护.
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
	ulidMu      sync.Mutex
)

// SanitizeName 删除 [A-Za-z0-9_.-] 以外的所有字符，不做替换.
func SanitizeName(name string) string {
	var b strings.Builder

	b.Grow(len(name))

	for i := 0; i < len(name); i++ {
		c := name[i]
		if isSafeByte(c) {
			b.WriteByte(c)
		}
	}

	out := b.String()
	if out == "" || out == "." || out == ".." {
		return fallbackName
	}

	return out
}

func isSafeByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '.', c == '-':
		return true
	default:
		return false
	}
}

// NewToken 返回 26 位单调递增的 ULID.
func NewToken(t time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}

// StoredName 生成存储文件名 "{unix}_{token}_{sanitized}".
func StoredName(t time.Time, originalName string) string {
	return strconv.FormatInt(t.Unix(), 10) + "_" + NewToken(t) + "_" + SanitizeName(originalName)
}
