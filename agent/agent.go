// Package agent 在单独的goroutine中驱动timer.Timer: 定时调用Check, 并把所有API调用串行化到该goroutine.
package agent

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fixkme/ticktimer/mlog"
	"github.com/fixkme/ticktimer/timer"
	"github.com/fixkme/ticktimer/util"
)

const DefaultInterval = 10 * time.Millisecond

type Option func(*Agent)

// WithInterval Check的调用间隔
func WithInterval(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.interval = d
		}
	}
}

func WithTaskSize(size int) Option {
	return func(a *Agent) {
		a.tasks = newTaskChan(size)
	}
}

// WithPanicHandler 任务或回调panic时调用, 默认输出错误日志
func WithPanicHandler(f func(r any)) Option {
	return func(a *Agent) {
		if f != nil {
			a.panicHandler = f
		}
	}
}

// WithCheckErrorHandler 周期Check返回错误时调用, 默认输出错误日志
func WithCheckErrorHandler(f func(err error)) Option {
	return func(a *Agent) {
		if f != nil {
			a.onCheckError = f
		}
	}
}

type Agent struct {
	timer        *timer.Timer
	tasks        *taskChan
	interval     time.Duration
	panicHandler func(r any)
	onCheckError func(err error)

	closeSig chan struct{}
	done     chan struct{}
	mutex    sync.RWMutex
	isClosed bool
	running  atomic.Bool
	gid      atomic.Int64 // 运行Run的goroutine
	dropped  int
}

func New(t *timer.Timer, opts ...Option) *Agent {
	a := &Agent{
		timer:    t,
		interval: DefaultInterval,
		closeSig: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tasks == nil {
		a.tasks = newTaskChan(0)
	}
	if a.panicHandler != nil {
		a.tasks.panicHandler = a.panicHandler
	}
	if a.onCheckError == nil {
		a.onCheckError = func(err error) {
			mlog.Errorf("agent %s check error: %v", t.Name(), err)
		}
	}
	return a
}

// Timer 返回底层Timer, 只能在回调中(即agent协程内)使用
func (a *Agent) Timer() *timer.Timer {
	return a.timer
}

func (a *Agent) Name() string {
	return "timer-agent-" + a.timer.Name()
}

func (a *Agent) OnInit() error {
	return nil
}

func (a *Agent) Destroy() {
	a.Close()
}

// Run 阻塞运行直到Close
func (a *Agent) Run() {
	if !a.running.CompareAndSwap(false, true) {
		return
	}
	defer close(a.done)
	a.gid.Store(util.GoroutineID())
	defer a.gid.Store(0)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	mlog.Infof("agent %s running, interval=%v", a.timer.Name(), a.interval)
	for {
		select {
		case <-a.closeSig:
			a.onClose()
			return
		case f := <-a.tasks.ch:
			f()
		case <-ticker.C:
			a.check()
		}
	}
}

func (a *Agent) check() {
	var err error
	if r := a.tasks.exec(func() { err = a.timer.Check() }); r != nil {
		return
	}
	if err != nil {
		a.onCheckError(err)
	}
}

func (a *Agent) onClose() {
	// 执行完关闭前已经投递的任务
	for {
		select {
		case f := <-a.tasks.ch:
			f()
		default:
			a.dropped = a.timer.Close()
			return
		}
	}
}

// Close 停止agent并关闭Timer, 返回被丢弃的定时器数量.
// 在回调中调用时清理要等Run返回, 此时返回0; 之后在其他goroutine再调用Close可以拿到丢弃数量.
func (a *Agent) Close() int {
	onAgent := a.gid.Load() != 0 && a.gid.Load() == util.GoroutineID()
	a.mutex.Lock()
	if a.isClosed {
		a.mutex.Unlock()
		if onAgent {
			return 0
		}
		<-a.done
		return a.dropped
	}
	a.isClosed = true
	close(a.closeSig)
	a.mutex.Unlock()

	if onAgent {
		// Run返回时会完成清理
		return 0
	}
	if a.running.CompareAndSwap(false, true) {
		// 从未运行
		a.onClose()
		close(a.done)
	} else {
		<-a.done
	}
	mlog.Infof("agent %s closed, dropped=%d", a.timer.Name(), a.dropped)
	return a.dropped
}

// call 在agent协程中同步执行f
func (a *Agent) call(f func()) error {
	if gid := a.gid.Load(); gid != 0 && gid == util.GoroutineID() {
		// 回调中重入, 直接执行
		f()
		return nil
	}
	a.mutex.RLock()
	if a.isClosed {
		a.mutex.RUnlock()
		return ErrClosed
	}
	errCh, err := a.tasks.submit(f)
	a.mutex.RUnlock()
	if err != nil {
		return err
	}
	return <-errCh
}

func (a *Agent) Add(seconds float64, cb timer.Func, args ...any) (id timer.Hash, err error) {
	if cerr := a.call(func() { id, err = a.timer.Add(seconds, cb, args...) }); cerr != nil {
		return "", cerr
	}
	return
}

func (a *Agent) Remove(id timer.Hash) error {
	return a.call(func() { a.timer.Remove(id) })
}

func (a *Agent) Seconds(id timer.Hash) (info timer.Info, ok bool, err error) {
	err = a.call(func() { info, ok = a.timer.Seconds(id) })
	return
}

func (a *Agent) Status(id timer.Hash) (done bool, err error) {
	err = a.call(func() { done = a.timer.Status(id) })
	return
}

func (a *Agent) Count() (n int, err error) {
	err = a.call(func() { n = a.timer.Count() })
	return
}

func (a *Agent) Pending() (list []timer.Info, err error) {
	err = a.call(func() { list = a.timer.Pending() })
	return
}

func (a *Agent) Force(id timer.Hash) (err error) {
	if cerr := a.call(func() { err = a.timer.Force(id) }); cerr != nil {
		return cerr
	}
	return
}

func (a *Agent) Scale() (scale int32, err error) {
	err = a.call(func() { scale = a.timer.Scale() })
	return
}

func (a *Agent) SetScale(n int32) (scale int32, err error) {
	err = a.call(func() { scale = a.timer.SetScale(n) })
	return
}

func (a *Agent) HashLen() (n int, err error) {
	err = a.call(func() { n = a.timer.HashLen() })
	return
}

func (a *Agent) SetHashLen(n int) (cur int, err error) {
	err = a.call(func() { cur = a.timer.SetHashLen(n) })
	return
}

// Watch 实现timer.Watcher, 可以配合timer.WaitAll/WaitOne使用
func (a *Agent) Watch(id timer.Hash) (pending bool, changed <-chan struct{}, err error) {
	if cerr := a.call(func() { pending, changed, err = a.timer.Watch(id) }); cerr != nil {
		return false, nil, cerr
	}
	return
}
