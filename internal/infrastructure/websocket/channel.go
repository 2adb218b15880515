// Package websocket 订单状态推送通道（gorilla/websocket）
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/betbot/orderconsole/internal/domain"
	"github.com/betbot/orderconsole/pkg/logger"
)

// ChannelState 通道状态：connecting -> open -> closing -> closed
type ChannelState int32

const (
	StateConnecting ChannelState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ChannelState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Config 通道配置
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	ReadBufferSize   int
	WriteBufferSize  int
}

// DefaultConfig 返回默认配置
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
}

// Callbacks 通道回调，都在通道自己的 goroutine 上调用
type Callbacks struct {
	// OnUpdate 收到合法的 order_update 消息
	OnUpdate func(ch *Channel, update domain.OrderUpdate)
	// OnClose 通道结束（拨号失败、读错误或主动关闭），每个通道只调用一次
	OnClose func(ch *Channel, err error)
}

// Channel 一条推送连接
// orderID 非空时连接建立后发送订阅握手；为空时是共享通道，接收所有订单的更新
// 不做重连：断开后由上层在下一次对账时决定是否重新打开
type Channel struct {
	orderID string
	cfg     Config
	cb      Callbacks
	log     *logrus.Entry

	state atomic.Int32

	connMu sync.Mutex
	conn   *websocket.Conn

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	doneCh    chan struct{}
}

// Open 创建通道并在后台开始连接，立即返回（状态为 connecting）
func Open(parent context.Context, cfg Config, orderID string, cb Callbacks) *Channel {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	ch := &Channel{
		orderID: orderID,
		cfg:     cfg,
		cb:      cb,
		log:     logger.WithFields(logrus.Fields{"component": "push", "order_id": orderID}),
		ctx:     ctx,
		cancel:  cancel,
		doneCh:  make(chan struct{}),
	}
	ch.state.Store(int32(StateConnecting))
	go ch.run()
	return ch
}

// State 当前状态
func (c *Channel) State() ChannelState {
	return ChannelState(c.state.Load())
}

// Done 通道结束后关闭
func (c *Channel) Done() <-chan struct{} {
	return c.doneCh
}

// Close 主动关闭通道（幂等，不阻塞）
// 只关闭底层连接，不发送 close 帧：调用方是控制台事件循环，不能等网络写
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		for {
			s := c.state.Load()
			if s == int32(StateClosed) || c.state.CompareAndSwap(s, int32(StateClosing)) {
				break
			}
		}
		c.cancel()

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	})
}

func (c *Channel) run() {
	var finalErr error
	defer func() {
		c.state.Store(int32(StateClosed))
		c.cancel()
		close(c.doneCh)
		if c.cb.OnClose != nil {
			c.cb.OnClose(c, finalErr)
		}
	}()

	conn, err := c.dial()
	if err != nil {
		finalErr = err
		c.log.Debugf("连接失败: %v", err)
		return
	}

	c.connMu.Lock()
	if c.State() == StateClosing {
		// Close 在拨号期间被调用
		c.connMu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.connMu.Unlock()

	if c.orderID != "" {
		// 握手写入受超时约束，对端不读时不会一直卡住
		if c.cfg.HandshakeTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
		}
		err = conn.WriteJSON(NewSubscribeMessage(c.orderID))
		_ = conn.SetWriteDeadline(time.Time{})
		if err != nil {
			finalErr = fmt.Errorf("发送订阅握手失败: %w", err)
			_ = conn.Close()
			return
		}
	}
	c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
	c.log.Debug("推送通道已打开")

	finalErr = c.readLoop(conn)
}

func (c *Channel) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		ReadBufferSize:   c.cfg.ReadBufferSize,
		WriteBufferSize:  c.cfg.WriteBufferSize,
	}
	conn, _, err := dialer.DialContext(c.ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("连接 %s 失败: %w", c.cfg.URL, err)
	}
	return conn, nil
}

// readLoop 读取直到连接断开；正常关闭返回 nil
func (c *Channel) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.State() == StateClosing ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			c.log.Debugf("读取错误: %v", err)
			return err
		}

		update, ok := ParseOrderUpdate(data)
		if !ok {
			continue
		}
		if c.cb.OnUpdate != nil {
			c.cb.OnUpdate(c, update)
		}
	}
}
