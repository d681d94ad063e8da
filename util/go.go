package util

import (
	"runtime"
	"strconv"
	"strings"
)

// GoroutineID 当前goroutine的id, 解析失败返回0
func GoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))
	if len(fields) == 0 {
		return 0
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
