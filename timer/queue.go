package timer

import (
	"github.com/armon/go-radix"
	"github.com/shopspring/decimal"
)

// entry 一个等待中的定时器
type entry struct {
	id       Hash
	deadline decimal.Decimal // 到期时间, 已截断到scale
	seconds  float64         // 添加时的延迟
	cb       Func
	args     []any

	prev, next *entry // 双向链表
}

// queue 按deadline升序的双向链表, 相同deadline先进先出; index按hash索引链表节点
type queue struct {
	root  *entry //哨兵
	index *radix.Tree
	size  int
	cmp   func(a, b decimal.Decimal) int
}

func newQueue(cmp func(a, b decimal.Decimal) int) *queue {
	q := &queue{index: radix.New(), cmp: cmp}
	q.root = new(entry)
	q.root.prev = q.root
	q.root.next = q.root
	return q
}

func (q *queue) len() int {
	return q.size
}

// insert 有序插入, 跳过所有deadline <= e.deadline的节点
func (q *queue) insert(e *entry) {
	cur := q.root.next
	for cur != q.root && q.cmp(cur.deadline, e.deadline) < 1 {
		cur = cur.next
	}
	e.prev = cur.prev
	e.next = cur
	cur.prev.next = e
	cur.prev = e
	q.index.Insert(string(e.id), e)
	q.size++
}

func (q *queue) lookup(id Hash) *entry {
	v, ok := q.index.Get(string(id))
	if !ok {
		return nil
	}
	return v.(*entry)
}

func (q *queue) contains(id Hash) bool {
	_, ok := q.index.Get(string(id))
	return ok
}

// remove 按hash删除, 不存在时返回nil
func (q *queue) remove(id Hash) *entry {
	e := q.lookup(id)
	if e == nil {
		return nil
	}
	q.unlink(e)
	return e
}

func (q *queue) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
	q.index.Delete(string(e.id))
	q.size--
}

func (q *queue) front() *entry {
	if q.root.next == q.root {
		return nil
	}
	return q.root.next
}

// popIf 队首满足ok时出队并返回, 否则返回nil
func (q *queue) popIf(ok func(e *entry) bool) *entry {
	e := q.front()
	if e == nil || !ok(e) {
		return nil
	}
	q.unlink(e)
	return e
}

// clear 快速清空, 返回清掉的数量
func (q *queue) clear() int {
	n := q.size
	q.root.prev = q.root
	q.root.next = q.root
	q.index = radix.New()
	q.size = 0
	return n
}

// each 按deadline顺序遍历, fn不能修改队列
func (q *queue) each(fn func(e *entry) bool) {
	for e := q.root.next; e != q.root; e = e.next {
		if !fn(e) {
			break
		}
	}
}
