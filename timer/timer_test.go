package timer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fixkme/ticktimer/clock"
	"github.com/fixkme/ticktimer/errs"
	"github.com/fixkme/ticktimer/mlog"
)

func newManualTimer(opts ...Option) (*Timer, *clock.Manual) {
	src := clock.NewManual(time.Unix(1000, 0))
	return New(append([]Option{WithClock(src)}, opts...)...), src
}

func incr(args ...any) error {
	args[0].(*Ref[int]).Update(func(v int) int { return v + 1 })
	return nil
}

func record(order *[]string, name string) Func {
	return func(args ...any) error {
		*order = append(*order, name)
		return nil
	}
}

func TestCheckFiresAfterDelay(t *testing.T) {
	tm, src := newManualTimer()
	counter := NewRef(0)

	id, err := tm.Add(0.05, incr, counter)
	if err != nil || id == "" {
		t.Fatalf("add: id=%q err=%v", id, err)
	}
	if err = tm.Check(); err != nil {
		t.Fatal(err)
	}
	if counter.Get() != 0 || tm.Count() != 1 {
		t.Fatalf("fired early: counter=%d count=%d", counter.Get(), tm.Count())
	}

	src.Advance(60 * time.Millisecond)
	if err = tm.Check(); err != nil {
		t.Fatal(err)
	}
	if counter.Get() != 1 || tm.Count() != 0 {
		t.Fatalf("after expiry: counter=%d count=%d", counter.Get(), tm.Count())
	}
	if !tm.Status(id) {
		t.Fatal("status should report fired timer as not pending")
	}
}

func TestCheckWithSystemClock(t *testing.T) {
	tm := New()
	counter := NewRef(0)
	if _, err := tm.Add(0.05, incr, counter); err != nil {
		t.Fatal(err)
	}
	tm.Check()
	if counter.Get() != 0 || tm.Count() != 1 {
		t.Fatalf("fired early: counter=%d count=%d", counter.Get(), tm.Count())
	}
	time.Sleep(80 * time.Millisecond)
	tm.Check()
	if counter.Get() != 1 || tm.Count() != 0 {
		t.Fatalf("after sleep: counter=%d count=%d", counter.Get(), tm.Count())
	}
}

func TestCheckOrder(t *testing.T) {
	tm, src := newManualTimer()
	var order []string
	for _, d := range []struct {
		name    string
		seconds float64
	}{{"0.3", 0.3}, {"0.1", 0.1}, {"0.2", 0.2}} {
		if _, err := tm.Add(d.seconds, record(&order, d.name)); err != nil {
			t.Fatal(err)
		}
	}

	src.Advance(150 * time.Millisecond)
	tm.Check()
	if strings.Join(order, ",") != "0.1" {
		t.Fatalf("partial dispatch: %v", order)
	}

	src.Advance(time.Second)
	tm.Check()
	if strings.Join(order, ",") != "0.1,0.2,0.3" {
		t.Fatalf("order: %v", order)
	}
}

func TestEqualDeadlinesAreFIFO(t *testing.T) {
	tm, src := newManualTimer()
	var order []string
	for _, name := range []string{"a", "b", "c", "d"} {
		tm.Add(1, record(&order, name))
	}
	tm.Add(0.5, record(&order, "early"))

	src.Advance(2 * time.Second)
	tm.Check()
	if got := strings.Join(order, ","); got != "early,a,b,c,d" {
		t.Fatalf("order: %s", got)
	}
}

func TestAddNonPositiveRunsNow(t *testing.T) {
	tm, _ := newManualTimer()
	counter := NewRef(0)

	for _, s := range []float64{0, -1} {
		id, err := tm.Add(s, incr, counter)
		if err != nil || id != "" {
			t.Fatalf("Add(%v): id=%q err=%v", s, id, err)
		}
	}
	if counter.Get() != 2 || tm.Count() != 0 {
		t.Fatalf("counter=%d count=%d", counter.Get(), tm.Count())
	}

	cause := errors.New("boom")
	_, err := tm.Add(0, func(...any) error { return cause })
	if !errors.Is(err, errs.Callback) || !errors.Is(err, cause) {
		t.Fatalf("callback error not propagated: %v", err)
	}
}

func TestAddInvalid(t *testing.T) {
	tm, _ := newManualTimer()
	if _, err := tm.Add(1, nil); !errors.Is(err, errs.InvalidArgument) {
		t.Fatalf("nil callback: %v", err)
	}
	if _, err := tm.Add(nan(), incr); !errors.Is(err, errs.InvalidArgument) {
		t.Fatalf("NaN seconds: %v", err)
	}
}

func TestStatusCountAndRemove(t *testing.T) {
	tm, _ := newManualTimer()
	id, _ := tm.Add(5, incr, NewRef(0))
	if tm.Status(id) || tm.Count() != 1 {
		t.Fatalf("after add: status=%v count=%d", tm.Status(id), tm.Count())
	}

	tm.Remove(Hash("unknown"))
	if tm.Count() != 1 {
		t.Fatal("removing unknown id changed state")
	}

	tm.Remove(id)
	if !tm.Status(id) || tm.Count() != 0 {
		t.Fatalf("after remove: status=%v count=%d", tm.Status(id), tm.Count())
	}
	tm.Remove(id)
}

func TestSeconds(t *testing.T) {
	tm, _ := newManualTimer()
	id, _ := tm.Add(2.5, incr, NewRef(0))

	info, ok := tm.Seconds(id)
	if !ok {
		t.Fatal("pending timer not found")
	}
	if info.ID != id || info.Seconds != 2.5 || info.Deadline.String() != "1002.5" {
		t.Fatalf("info = %+v", info)
	}

	tm.Remove(id)
	if _, ok = tm.Seconds(id); ok {
		t.Fatal("removed timer still reported")
	}
}

func TestForce(t *testing.T) {
	tm, src := newManualTimer()
	counter := NewRef(0)
	id, _ := tm.Add(10, incr, counter)
	src.Advance(time.Millisecond)

	if err := tm.Force(id); err != nil {
		t.Fatal(err)
	}
	if counter.Get() != 1 || tm.Count() != 0 || !tm.Status(id) {
		t.Fatalf("force: counter=%d count=%d", counter.Get(), tm.Count())
	}

	src.Advance(20 * time.Second)
	tm.Check()
	if err := tm.Force(id); err != nil {
		t.Fatal(err)
	}
	if counter.Get() != 1 {
		t.Fatalf("forced timer fired again: %d", counter.Get())
	}
}

func TestForceErrorStillRemoves(t *testing.T) {
	tm, _ := newManualTimer()
	cause := errors.New("bad")
	id, _ := tm.Add(10, func(...any) error { return cause })
	if err := tm.Force(id); !errors.Is(err, cause) {
		t.Fatalf("force error = %v", err)
	}
	if tm.Count() != 0 {
		t.Fatal("failing forced timer left in queue")
	}
}

func TestCheckStopsOnCallbackError(t *testing.T) {
	tm, src := newManualTimer()
	var order []string
	cause := errors.New("b failed")
	tm.Add(0.1, record(&order, "a"))
	tm.Add(0.2, func(...any) error {
		order = append(order, "b")
		return cause
	})
	tm.Add(0.3, record(&order, "c"))

	src.Advance(time.Second)
	err := tm.Check()
	if !errors.Is(err, errs.Callback) || !errors.Is(err, cause) {
		t.Fatalf("check error = %v", err)
	}
	if strings.Join(order, ",") != "a,b" || tm.Count() != 1 {
		t.Fatalf("order=%v count=%d", order, tm.Count())
	}

	if err = tm.Check(); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "a,b,c" || tm.Count() != 0 {
		t.Fatalf("order=%v count=%d", order, tm.Count())
	}
}

func TestCallbackReentrancy(t *testing.T) {
	tm, src := newManualTimer()
	var order []string
	var cID, dID Hash

	tm.Add(0.1, func(...any) error {
		order = append(order, "a")
		tm.Remove(cID)
		var err error
		dID, err = tm.Add(5, record(&order, "d"))
		return err
	})
	tm.Add(0.2, record(&order, "b"))
	cID, _ = tm.Add(0.3, record(&order, "c"))

	src.Advance(time.Second)
	if err := tm.Check(); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "a,b" {
		t.Fatalf("order: %v", order)
	}
	if !tm.Status(cID) || tm.Status(dID) || tm.Count() != 1 {
		t.Fatalf("c pending=%v d pending=%v count=%d", !tm.Status(cID), !tm.Status(dID), tm.Count())
	}
}

func TestScaleAndHashLen(t *testing.T) {
	tm, _ := newManualTimer()
	if tm.Scale() != clock.DefaultScale || tm.HashLen() != DefaultHashLen {
		t.Fatalf("defaults: scale=%d hashLen=%d", tm.Scale(), tm.HashLen())
	}

	if tm.SetScale(4) != 4 || tm.Scale() != 4 {
		t.Fatalf("scale round trip: %d", tm.Scale())
	}
	if tm.SetHashLen(12) != 12 || tm.HashLen() != 12 {
		t.Fatalf("hashLen round trip: %d", tm.HashLen())
	}
	if tm.SetHashLen(0) != 12 {
		t.Fatal("hash length below 1 accepted")
	}

	id, _ := tm.Add(1, incr, NewRef(0))
	if len(id) != 12 {
		t.Fatalf("hash length = %d", len(id))
	}
	info, _ := tm.Seconds(id)
	if info.Deadline.String() != "1001" {
		t.Fatalf("deadline = %s", info.Deadline)
	}
}

func TestPending(t *testing.T) {
	tm, _ := newManualTimer()
	b, _ := tm.Add(2, incr, NewRef(0))
	a, _ := tm.Add(1, incr, NewRef(0))

	list := tm.Pending()
	if len(list) != 2 || list[0].ID != a || list[1].ID != b {
		t.Fatalf("pending = %+v", list)
	}
}

func TestCloseWarnsAboutDroppedTimers(t *testing.T) {
	var buf bytes.Buffer
	mlog.UseWriterLogger(&buf, mlog.WarnLevel)
	defer mlog.SetLogger(nil)

	tm, _ := newManualTimer()
	tm.Add(1, incr, NewRef(0))
	tm.Add(2, incr, NewRef(0))

	if n := tm.Close(); n != 2 {
		t.Fatalf("dropped = %d", n)
	}
	if !strings.Contains(buf.String(), "[warn] ") || !strings.Contains(buf.String(), "did not expire (2)") {
		t.Fatalf("missing warning: %q", buf.String())
	}
	if tm.Count() != 0 {
		t.Fatalf("count after close = %d", tm.Count())
	}
	if _, err := tm.Add(1, incr, NewRef(0)); !errors.Is(err, errs.Closed) {
		t.Fatalf("add after close: %v", err)
	}
	if tm.Close() != 0 {
		t.Fatal("second close dropped timers")
	}
}

func TestCloseEmptyIsSilent(t *testing.T) {
	var buf bytes.Buffer
	mlog.UseWriterLogger(&buf, mlog.TraceLevel)
	defer mlog.SetLogger(nil)

	tm, _ := newManualTimer()
	tm.Close()
	if strings.Contains(buf.String(), "[warn]") {
		t.Fatalf("unexpected warning: %q", buf.String())
	}
}

func TestWatchAndWait(t *testing.T) {
	tm, _ := newManualTimer()
	ctx := context.Background()

	if err := WaitAll(ctx, tm); err != nil {
		t.Fatalf("wait on empty timer: %v", err)
	}
	if err := WaitOne(ctx, tm, ""); err != nil {
		t.Fatalf("wait on empty id: %v", err)
	}

	id, _ := tm.Add(10, incr, NewRef(0))
	pending, changed, err := tm.Watch(id)
	if err != nil || !pending {
		t.Fatalf("watch: pending=%v err=%v", pending, err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err = WaitOne(short, tm, id); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("wait without driver: %v", err)
	}

	tm.Remove(id)
	select {
	case <-changed:
	default:
		t.Fatal("remove did not wake watchers")
	}
	if err = WaitOne(ctx, tm, id); err != nil {
		t.Fatal(err)
	}
	if err = WaitAll(ctx, tm); err != nil {
		t.Fatal(err)
	}
}
