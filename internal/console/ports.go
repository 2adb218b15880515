package console

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/betbot/orderconsole/internal/domain"
	pushws "github.com/betbot/orderconsole/internal/infrastructure/websocket"
)

// OrderAPI 控制台依赖的 REST 接口（rest.Client 实现）
type OrderAPI interface {
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	CreateAccount(ctx context.Context, userID string) error
	Deposit(ctx context.Context, userID string, amount decimal.Decimal) error
	CreateOrder(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Order, error)
}

// PushChannel 一条已打开（或正在打开）的推送通道
type PushChannel interface {
	State() pushws.ChannelState
	Close()
}

// PushOpener 打开推送通道；orderID 为空表示共享通道
// 回调在通道自己的 goroutine 上执行
type PushOpener interface {
	Open(orderID string, onUpdate func(domain.OrderUpdate), onClose func(error)) PushChannel
}

// SessionStore 记住上次使用的用户 ID
type SessionStore interface {
	LoadUserID() (string, error)
	SaveUserID(userID string) error
}

// WebSocketOpener 基于 gorilla/websocket 的 PushOpener
type WebSocketOpener struct {
	ctx context.Context
	cfg pushws.Config
}

// NewWebSocketOpener ctx 取消时所有通道一起结束
func NewWebSocketOpener(ctx context.Context, cfg pushws.Config) *WebSocketOpener {
	return &WebSocketOpener{ctx: ctx, cfg: cfg}
}

// Open 实现 PushOpener
func (o *WebSocketOpener) Open(orderID string, onUpdate func(domain.OrderUpdate), onClose func(error)) PushChannel {
	return pushws.Open(o.ctx, o.cfg, orderID, pushws.Callbacks{
		OnUpdate: func(_ *pushws.Channel, u domain.OrderUpdate) {
			if onUpdate != nil {
				onUpdate(u)
			}
		},
		OnClose: func(_ *pushws.Channel, err error) {
			if onClose != nil {
				onClose(err)
			}
		},
	})
}
