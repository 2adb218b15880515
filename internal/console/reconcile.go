package console

import (
	"sort"

	pushws "github.com/betbot/orderconsole/internal/infrastructure/websocket"
)

// ReconcilePlan 一次对账的结果
type ReconcilePlan struct {
	Open  []string // 需要新开通道的订单，按列表顺序
	Close []string // 需要关闭并移除的通道，按 ID 排序
}

// Empty 是否无事可做
func (p ReconcilePlan) Empty() bool {
	return len(p.Open) == 0 && len(p.Close) == 0
}

// PlanReconcile 根据当前跟踪的通道状态和订单列表计算对账动作（纯函数）
//   - 不在列表里的订单，或通道已在关闭/已关闭的，关闭并移除
//   - 列表里没有可用通道的订单，新开通道（包括刚被移除的失效通道）；空 ID 不订阅
func PlanReconcile(tracked map[string]pushws.ChannelState, orderIDs []string) ReconcilePlan {
	active := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		active[id] = struct{}{}
	}

	var plan ReconcilePlan
	for id, state := range tracked {
		_, listed := active[id]
		if !listed || state == pushws.StateClosing || state == pushws.StateClosed {
			plan.Close = append(plan.Close, id)
		}
	}
	sort.Strings(plan.Close)

	closing := make(map[string]struct{}, len(plan.Close))
	for _, id := range plan.Close {
		closing[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		_, has := tracked[id]
		_, removed := closing[id]
		if !has || removed {
			plan.Open = append(plan.Open, id)
		}
	}
	return plan
}
