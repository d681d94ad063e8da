package agent

import (
	"github.com/fixkme/ticktimer/errs"
	"github.com/fixkme/ticktimer/mlog"
)

var (
	ErrTaskChanFull = errs.Unknown.Print("agent task chan is full")
	ErrClosed       = errs.Closed
)

// taskChan 投递到agent协程执行的函数队列
type taskChan struct {
	ch           chan func()
	panicHandler func(r any)
}

func newTaskChan(size int) *taskChan {
	if size < 1024 {
		size = 1024
	} else if size > 102400 {
		size = 102400
	}
	return &taskChan{
		ch: make(chan func(), size),
		panicHandler: func(r any) {
			mlog.Errorf("agent run panic: %v", r)
		},
	}
}

// submit 非阻塞投递, f执行完后errCh关闭; f发生panic时先收到一个错误
func (g *taskChan) submit(f func()) (errCh <-chan error, err error) {
	ch := make(chan error, 1)
	call := func() {
		defer close(ch)
		if r := g.exec(f); r != nil {
			ch <- errs.Unknown.Printf("panic: %v", r)
		}
	}
	select {
	case g.ch <- call:
		return ch, nil
	default:
		return nil, ErrTaskChanFull
	}
}

// exec 执行f, panic交给panicHandler并返回
func (g *taskChan) exec(f func()) (r any) {
	defer func() {
		if r = recover(); r != nil {
			g.panicHandler(r)
		}
	}()
	f()
	return nil
}
