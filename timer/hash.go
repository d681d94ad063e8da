package timer

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/fixkme/ticktimer/errs"
	"github.com/fixkme/ticktimer/mlog"
)

const (
	DefaultHashLen  = 8
	maxHashAttempts = 1 << 16
)

// Hash 定时器的唯一标识, 内容是随机字节
type Hash string

// String 十六进制形式
func (h Hash) String() string {
	return hex.EncodeToString([]byte(h))
}

// ParseHash 从十六进制解析
func ParseHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) == 0 {
		return "", errs.InvalidArgument.Printf("hash %q", s)
	}
	return Hash(b), nil
}

type allocator struct {
	hashLen int
}

func (a *allocator) setHashLen(n int) int {
	if n < 1 {
		mlog.Warnf("timer: ignore hash length %d, keep %d", n, a.hashLen)
		return a.hashLen
	}
	a.hashLen = n
	return a.hashLen
}

// allocate 生成taken中不存在的随机hash
func (a *allocator) allocate(taken func(Hash) bool) (Hash, error) {
	buf := make([]byte, a.hashLen)
	for i := 0; i < maxHashAttempts; i++ {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		if h := Hash(buf); !taken(h) {
			return h, nil
		}
	}
	return "", errs.HashExhausted.Printf("len=%d attempts=%d", a.hashLen, maxHashAttempts)
}
