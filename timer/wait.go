package timer

import "context"

// Watcher 查询定时器是否还在队列中, changed在下一次有定时器离开队列时关闭
type Watcher interface {
	Watch(id Hash) (pending bool, changed <-chan struct{}, err error)
}

// WaitAll 阻塞到所有定时器都执行完或被删除.
// 必须有其他goroutine在驱动Check(例如agent.Agent), 否则只能等ctx结束.
func WaitAll(ctx context.Context, w Watcher) error {
	return wait(ctx, w, "")
}

// WaitOne 阻塞到id不在队列中, 前置条件同WaitAll
func WaitOne(ctx context.Context, w Watcher, id Hash) error {
	if id == "" {
		return nil
	}
	return wait(ctx, w, id)
}

func wait(ctx context.Context, w Watcher, id Hash) error {
	for {
		pending, changed, err := w.Watch(id)
		if err != nil {
			return err
		}
		if !pending {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}
