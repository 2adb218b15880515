package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 订单领域模型（服务端所有，客户端只持有最终一致的缓存副本）
type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   int64           `json:"created_at"` // Unix 时间戳（秒）
}

// OrderStatus 订单状态
// 服务端可能返回未知状态，原样透传显示
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "NEW"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusFinished   OrderStatus = "FINISHED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Label 界面显示文案；未知状态原样返回
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusNew:
		return "New"
	case OrderStatusProcessing:
		return "Processing"
	case OrderStatusFinished:
		return "Paid"
	case OrderStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// CreatedTime 创建时间
func (o *Order) CreatedTime() time.Time {
	return time.Unix(o.CreatedAt, 0)
}

// ShortID 截断后的订单 ID（列表展示用）
func (o *Order) ShortID() string {
	if len(o.ID) <= 8 {
		return o.ID + "..."
	}
	return o.ID[:8] + "..."
}

// OrderIDs 返回订单 ID 列表（保持原顺序）
func OrderIDs(orders []Order) []string {
	ids := make([]string, 0, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
	}
	return ids
}
