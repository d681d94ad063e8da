package clock

import (
	"sync"
	"time"
)

// Source 时间源
type Source interface {
	Now() time.Time
}

// System 系统时间, Offset用于调试时整体偏移时间
type System struct {
	Offset time.Duration
}

func (s System) Now() time.Time {
	now := time.Now()
	if s.Offset != 0 {
		now = now.Add(s.Offset)
	}
	return now
}

// Manual 手动控制的时间源, 测试用
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance 时间前进d, d<0时忽略
func (m *Manual) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set 直接设置时间, 可以回退
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
