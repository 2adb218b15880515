package console

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/orderconsole/internal/domain"
)

// NotificationLevel 通知级别
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification 面向用户的短暂通知
type Notification struct {
	ID    uint64
	Level NotificationLevel
	Text  string
	At    time.Time
}

// maxNotifications 快照里保留的最近通知数
const maxNotifications = 20

// State 控制台状态快照（只读副本，可以跨 goroutine 传递）
type State struct {
	UserID        string
	Balance       decimal.Decimal
	BalanceLoaded bool
	Orders        []domain.Order
	Subscriptions []string // 当前持有推送通道的订单 ID（共享模式下为 [""]）
	PushMode      string
	Notifications []Notification
	InFlight      int // 进行中的 REST 请求数

	// 操作成功计数，界面据此清空对应输入框
	DepositsDone uint64
	OrdersDone   uint64
}

// ActiveNotifications 返回 now 时仍在有效期内的通知
func (s State) ActiveNotifications(now time.Time, ttl time.Duration) []Notification {
	out := make([]Notification, 0, len(s.Notifications))
	for _, n := range s.Notifications {
		if now.Sub(n.At) < ttl {
			out = append(out, n)
		}
	}
	return out
}

// FindOrder 按 ID 查找订单
func (s State) FindOrder(id string) (domain.Order, bool) {
	for _, o := range s.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}
