package sigchan

// Chan 合并型信号：多次 Emit 在被消费前只留下一个信号
// 用于"状态变了，去读快照"这类通知，不携带数据
type Chan struct {
	c chan struct{}
}

// New 创建容量为 1 的信号
func New() *Chan {
	return &Chan{c: make(chan struct{}, 1)}
}

// Emit 非阻塞发送；已有未消费的信号时直接丢弃
func (c *Chan) Emit() {
	select {
	case c.c <- struct{}{}:
	default:
	}
}

// C 用于 select
func (c *Chan) C() <-chan struct{} {
	return c.c
}
