package timer

// Ref 可被回调修改的参数, 调用者持有同一个Ref即可看到修改
type Ref[T any] struct {
	v T
}

func NewRef[T any](v T) *Ref[T] {
	return &Ref[T]{v: v}
}

func (r *Ref[T]) Get() T {
	return r.v
}

func (r *Ref[T]) Set(v T) {
	r.v = v
}

// Update 用fn的返回值替换当前值
func (r *Ref[T]) Update(fn func(T) T) T {
	r.v = fn(r.v)
	return r.v
}
