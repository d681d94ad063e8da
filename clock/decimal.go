package clock

import (
	"github.com/fixkme/ticktimer/mlog"
	"github.com/shopspring/decimal"
)

const DefaultScale int32 = 6

// Decimal 以秒为单位的十进制时间, 所有比较都在scale位小数精度下进行
type Decimal struct {
	src   Source
	scale int32
}

func NewDecimal(src Source, scale int32) *Decimal {
	if src == nil {
		src = System{}
	}
	if scale < 0 {
		scale = DefaultScale
	}
	return &Decimal{src: src, scale: scale}
}

func (d *Decimal) Source() Source {
	return d.src
}

func (d *Decimal) Scale() int32 {
	return d.scale
}

// SetScale 设置小数位数, 负数被忽略; 返回当前值
func (d *Decimal) SetScale(scale int32) int32 {
	if scale < 0 {
		mlog.Warnf("clock: ignore negative scale %d, keep %d", scale, d.scale)
		return d.scale
	}
	d.scale = scale
	return d.scale
}

// Now 当前时间, 纳秒精度, 不截断
func (d *Decimal) Now() decimal.Decimal {
	return decimal.New(d.src.Now().UnixNano(), -9)
}

// Deadline now+seconds, 截断到scale位小数
func (d *Decimal) Deadline(seconds float64) decimal.Decimal {
	return d.Now().Add(decimal.NewFromFloat(seconds)).Truncate(d.scale)
}

// Compare 两个时间截断到scale位后比较, 返回 -1/0/1
func (d *Decimal) Compare(a, b decimal.Decimal) int {
	return a.Truncate(d.scale).Cmp(b.Truncate(d.scale))
}

// Expired deadline <= now
func (d *Decimal) Expired(deadline, now decimal.Decimal) bool {
	return d.Compare(deadline, now) < 1
}
