package websocket

import (
	"bytes"
	"encoding/json"

	"github.com/betbot/orderconsole/internal/domain"
)

// 推送消息类型
const (
	MessageTypeSubscribe   = "subscribe"
	MessageTypeOrderUpdate = "order_update"
)

// SubscribeMessage 连接建立后发送的订阅握手
type SubscribeMessage struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id"`
}

// NewSubscribeMessage 构造订阅握手消息
func NewSubscribeMessage(orderID string) SubscribeMessage {
	return SubscribeMessage{Type: MessageTypeSubscribe, OrderID: orderID}
}

// inboundMessage 入站消息；字段用 RawMessage，类型不对的消息直接丢弃
type inboundMessage struct {
	Type    string          `json:"type"`
	OrderID json.RawMessage `json:"order_id"`
	Status  json.RawMessage `json:"status"`
	Message json.RawMessage `json:"message"`
}

// ParseOrderUpdate 解析入站消息
// 只有 type=order_update 且 order_id 为字符串的 JSON 对象才返回 ok=true
// status 缺失或为 null 时使用 domain.DefaultUpdateStatus，其余取值原样透传
func ParseOrderUpdate(data []byte) (domain.OrderUpdate, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.OrderUpdate{}, false
	}

	var msg inboundMessage
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return domain.OrderUpdate{}, false
	}
	if msg.Type != MessageTypeOrderUpdate {
		return domain.OrderUpdate{}, false
	}

	var orderID string
	rawID := bytes.TrimSpace(msg.OrderID)
	if len(rawID) == 0 || rawID[0] != '"' || json.Unmarshal(rawID, &orderID) != nil {
		return domain.OrderUpdate{}, false
	}

	update := domain.OrderUpdate{
		OrderID: orderID,
		Status:  domain.DefaultUpdateStatus,
	}

	if rawStatus := bytes.TrimSpace(msg.Status); len(rawStatus) > 0 && !bytes.Equal(rawStatus, []byte("null")) {
		var status string
		if json.Unmarshal(rawStatus, &status) != nil {
			// 非字符串按 JSON 原文显示
			status = string(rawStatus)
		}
		update.Status = domain.OrderStatus(status)
	}

	var text string
	if len(msg.Message) > 0 && json.Unmarshal(msg.Message, &text) == nil {
		update.Message = text
	}

	return update, true
}
