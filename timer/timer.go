// Package timer 单线程的延迟回调调度器.
//
// Timer不是并发安全的: 所有方法(包括回调内部的重入调用)必须在同一个goroutine中执行,
// 宿主需要周期性地调用Check. 需要跨goroutine使用时请通过agent.Agent.
package timer

import (
	"math"

	"github.com/fixkme/ticktimer/clock"
	"github.com/fixkme/ticktimer/errs"
	"github.com/fixkme/ticktimer/mlog"
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// Func 定时器回调, 返回的错误会从Check/Force/Add透传给调用者
type Func func(args ...any) error

// Info 等待中的定时器信息
type Info struct {
	ID       Hash
	Seconds  float64         // 添加时的延迟(秒)
	Deadline decimal.Decimal // 到期时间(秒)
}

type Option func(*Timer)

func WithClock(src clock.Source) Option {
	return func(t *Timer) {
		t.clock = clock.NewDecimal(src, t.clock.Scale())
	}
}

func WithScale(scale int32) Option {
	return func(t *Timer) {
		t.clock.SetScale(scale)
	}
}

func WithHashLen(n int) Option {
	return func(t *Timer) {
		t.alloc.setHashLen(n)
	}
}

func WithName(name string) Option {
	return func(t *Timer) {
		if name != "" {
			t.name = name
		}
	}
}

type Timer struct {
	name    string
	clock   *clock.Decimal
	alloc   allocator
	q       *queue
	changed chan struct{} // 有定时器离开队列时close并替换
	closed  bool
}

func New(opts ...Option) *Timer {
	t := &Timer{
		name:    xid.New().String(),
		clock:   clock.NewDecimal(clock.System{}, clock.DefaultScale),
		alloc:   allocator{hashLen: DefaultHashLen},
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.q = newQueue(t.clock.Compare)
	return t
}

func (t *Timer) Name() string {
	return t.name
}

func (t *Timer) Scale() int32 {
	return t.clock.Scale()
}

// SetScale 设置时间比较的小数位数, 返回当前值
func (t *Timer) SetScale(scale int32) int32 {
	return t.clock.SetScale(scale)
}

func (t *Timer) HashLen() int {
	return t.alloc.hashLen
}

// SetHashLen 设置hash字节数(>=1), 返回当前值
func (t *Timer) SetHashLen(n int) int {
	return t.alloc.setHashLen(n)
}

// Add seconds秒后调用cb(args...).
// seconds<=0时立即同步调用cb, 不入队, 返回空hash和cb的错误.
func (t *Timer) Add(seconds float64, cb Func, args ...any) (Hash, error) {
	if cb == nil {
		return "", errs.InvalidArgument.Print("nil callback")
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "", errs.InvalidArgument.Printf("seconds=%v", seconds)
	}
	if t.closed {
		return "", errs.Closed
	}
	if seconds <= 0 {
		return "", invoke(cb, args)
	}

	e := &entry{
		deadline: t.clock.Deadline(seconds),
		seconds:  seconds,
		cb:       cb,
		args:     args,
	}
	id, err := t.alloc.allocate(t.q.contains)
	if err != nil {
		return "", err
	}
	e.id = id
	t.q.insert(e)
	mlog.Debugf("timer %s add %s, seconds=%v, deadline=%s, count=%d", t.name, id, seconds, e.deadline, t.q.len())
	return id, nil
}

// Remove 删除等待中的定时器, 不存在时什么也不做
func (t *Timer) Remove(id Hash) {
	if e := t.q.remove(id); e != nil {
		mlog.Debugf("timer %s remove %s", t.name, id)
		t.notify()
	}
}

// Seconds 返回添加时的延迟和到期时间, 不在队列中时ok为false
func (t *Timer) Seconds(id Hash) (info Info, ok bool) {
	e := t.q.lookup(id)
	if e == nil {
		return
	}
	return e.info(), true
}

// Status true表示不在队列中(已执行或已删除), false表示等待执行
func (t *Timer) Status(id Hash) bool {
	return !t.q.contains(id)
}

func (t *Timer) Count() int {
	return t.q.len()
}

// Pending 按到期顺序返回所有等待中的定时器
func (t *Timer) Pending() []Info {
	list := make([]Info, 0, t.q.len())
	t.q.each(func(e *entry) bool {
		list = append(list, e.info())
		return true
	})
	return list
}

// Force 不管是否到期, 立即执行并删除id对应的定时器.
// 先出队再回调, 回调出错时定时器也不会留在队列中.
func (t *Timer) Force(id Hash) error {
	e := t.q.remove(id)
	if e == nil {
		return nil
	}
	mlog.Debugf("timer %s force %s", t.name, id)
	t.notify()
	return invoke(e.cb, e.args)
}

// Check 按到期顺序执行所有已到期的定时器.
// 到期判断使用进入Check时的时间. 回调出错时停止本轮, 出错的定时器已经出队, 后面的留到下一轮.
func (t *Timer) Check() (err error) {
	if t.q.len() == 0 {
		return nil
	}
	now := t.clock.Now()
	fired := 0
	defer func() {
		if fired > 0 {
			t.notify()
		}
	}()
	expired := func(e *entry) bool {
		return t.clock.Expired(e.deadline, now)
	}
	for {
		e := t.q.popIf(expired)
		if e == nil {
			return nil
		}
		fired++
		mlog.Tracef("timer %s fire %s, deadline=%s, now=%s", t.name, e.id, e.deadline, now)
		if err = invoke(e.cb, e.args); err != nil {
			return err
		}
	}
}

// Watch 实现Watcher, id为空时表示是否还有任何定时器
func (t *Timer) Watch(id Hash) (pending bool, changed <-chan struct{}, err error) {
	if id == "" {
		pending = t.q.len() > 0
	} else {
		pending = t.q.contains(id)
	}
	return pending, t.changed, nil
}

// Close 丢弃所有未执行的定时器, 有丢弃时输出警告. 返回丢弃的数量
func (t *Timer) Close() int {
	if t.closed {
		return 0
	}
	t.closed = true
	n := t.q.clear()
	if n > 0 {
		mlog.Warnf("timer %s: some timers did not expire (%d) and were removed", t.name, n)
	}
	t.notify()
	return n
}

func (t *Timer) notify() {
	close(t.changed)
	t.changed = make(chan struct{})
}

func (e *entry) info() Info {
	return Info{ID: e.id, Seconds: e.seconds, Deadline: e.deadline}
}

func invoke(cb Func, args []any) error {
	if err := cb(args...); err != nil {
		return errs.Callback.Wrap(err)
	}
	return nil
}
