package domain

// OrderUpdate 推送通道上的订单状态变更事件
type OrderUpdate struct {
	OrderID string
	Status  OrderStatus
	Message string // 可选的附加说明
}

// DefaultUpdateStatus 事件里没有 status 字段时使用的状态
const DefaultUpdateStatus = OrderStatusProcessing
