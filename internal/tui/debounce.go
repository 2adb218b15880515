package tui

import "time"

// debouncer 简单的时间闸门：距上次 mark 超过 interval 才放行
// 只在 bubbletea 的 Update 中使用，不需要加锁
type debouncer struct {
	interval time.Duration
	last     time.Time
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

// ready 判断当前是否可以执行，不修改状态
func (d *debouncer) ready(now time.Time) bool {
	if d.interval <= 0 || d.last.IsZero() {
		return true
	}
	return now.Sub(d.last) >= d.interval
}

// mark 记录一次执行
func (d *debouncer) mark(now time.Time) { d.last = now }

// allow ready + mark
func (d *debouncer) allow(now time.Time) bool {
	if !d.ready(now) {
		return false
	}
	d.mark(now)
	return true
}
