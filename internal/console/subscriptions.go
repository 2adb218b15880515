package console

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/betbot/orderconsole/internal/domain"
	pushws "github.com/betbot/orderconsole/internal/infrastructure/websocket"
	"github.com/betbot/orderconsole/internal/metrics"
)

// subscriptionSet 推送订阅集合，只在控制台事件循环上调用，无需加锁
type subscriptionSet interface {
	// Sync 订单列表变化后对齐通道
	Sync(orders []domain.Order)
	// Reset 关闭全部通道（切换用户、退出）
	Reset()
	// Closed 通道结束的回报；gen 不匹配时说明已被新通道替换，忽略
	Closed(orderID string, gen uint64)
	// OrderIDs 当前跟踪的订单 ID（排序后）
	OrderIDs() []string
}

// postFunc 把通道事件投递回事件循环
type postFunc func(msg any)

type trackedChannel struct {
	ch  PushChannel
	gen uint64
}

// perOrderSubscriptions 每个可见订单一条通道
type perOrderSubscriptions struct {
	opener   PushOpener
	post     postFunc
	log      *logrus.Entry
	channels map[string]trackedChannel
	gen      uint64
}

func newPerOrderSubscriptions(opener PushOpener, post postFunc, log *logrus.Entry) *perOrderSubscriptions {
	return &perOrderSubscriptions{
		opener:   opener,
		post:     post,
		log:      log,
		channels: make(map[string]trackedChannel),
	}
}

func (s *perOrderSubscriptions) Sync(orders []domain.Order) {
	tracked := make(map[string]pushws.ChannelState, len(s.channels))
	for id, tc := range s.channels {
		tracked[id] = tc.ch.State()
	}

	metrics.ReconcileRuns.Add(1)
	plan := PlanReconcile(tracked, domain.OrderIDs(orders))
	if plan.Empty() {
		return
	}

	for _, id := range plan.Close {
		s.channels[id].ch.Close()
		delete(s.channels, id)
		metrics.ChannelsClosed.Add(1)
	}
	for _, id := range plan.Open {
		s.channels[id] = s.open(id)
	}
	s.log.Debugf("订阅对账: 打开 %d 关闭 %d 当前 %d", len(plan.Open), len(plan.Close), len(s.channels))
}

func (s *perOrderSubscriptions) open(orderID string) trackedChannel {
	s.gen++
	gen := s.gen
	metrics.ChannelsOpened.Add(1)
	ch := s.opener.Open(orderID,
		func(u domain.OrderUpdate) {
			s.post(pushUpdateMsg{update: u})
		},
		func(err error) {
			s.post(pushClosedMsg{orderID: orderID, gen: gen, err: err})
		},
	)
	return trackedChannel{ch: ch, gen: gen}
}

func (s *perOrderSubscriptions) Reset() {
	for id, tc := range s.channels {
		tc.ch.Close()
		delete(s.channels, id)
		metrics.ChannelsClosed.Add(1)
	}
}

func (s *perOrderSubscriptions) Closed(orderID string, gen uint64) {
	tc, ok := s.channels[orderID]
	if !ok || tc.gen != gen {
		return
	}
	delete(s.channels, orderID)
}

func (s *perOrderSubscriptions) OrderIDs() []string {
	ids := make([]string, 0, len(s.channels))
	for id := range s.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// sharedSubscription 所有订单共用一条通道（旧版行为）
type sharedSubscription struct {
	opener PushOpener
	post   postFunc
	log    *logrus.Entry
	ch     PushChannel
	gen    uint64
}

func newSharedSubscription(opener PushOpener, post postFunc, log *logrus.Entry) *sharedSubscription {
	return &sharedSubscription{opener: opener, post: post, log: log}
}

// Sync 共享通道不随订单变化，只保证通道存在
func (s *sharedSubscription) Sync([]domain.Order) {
	if s.ch != nil {
		switch s.ch.State() {
		case pushws.StateConnecting, pushws.StateOpen:
			return
		}
		s.ch.Close()
		metrics.ChannelsClosed.Add(1)
	}
	s.gen++
	gen := s.gen
	metrics.ChannelsOpened.Add(1)
	s.ch = s.opener.Open("",
		func(u domain.OrderUpdate) {
			s.post(pushUpdateMsg{update: u})
		},
		func(err error) {
			s.post(pushClosedMsg{gen: gen, err: err})
		},
	)
	s.log.Debug("共享推送通道已打开")
}

func (s *sharedSubscription) Reset() {
	if s.ch != nil {
		s.ch.Close()
		s.ch = nil
		metrics.ChannelsClosed.Add(1)
	}
}

func (s *sharedSubscription) Closed(_ string, gen uint64) {
	if s.ch != nil && s.gen == gen {
		s.ch = nil
	}
}

func (s *sharedSubscription) OrderIDs() []string {
	if s.ch == nil {
		return []string{}
	}
	return []string{""}
}
