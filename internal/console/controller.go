package console

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/orderconsole/internal/domain"
	"github.com/betbot/orderconsole/internal/metrics"
	"github.com/betbot/orderconsole/pkg/config"
	"github.com/betbot/orderconsole/pkg/logger"
	"github.com/betbot/orderconsole/pkg/sigchan"
)

// inboxSize 事件循环收件箱容量
const inboxSize = 256

// 通知文案
const (
	msgInvalidAmount        = "Enter a valid amount"
	msgInvalidDepositAmount = "Enter a valid deposit amount"
	msgEmptyUserID          = "Enter a user id"
	msgOrderCreated         = "Order created successfully!"
	msgOrderFailed          = "Failed to create order"
	msgAccountCreated       = "Account created successfully!"
	msgAccountFailed        = "Failed to create account"
	msgDepositDone          = "Deposit successful!"
	msgDepositFailed        = "Failed to deposit"
	msgLoadOrdersFailed     = "Failed to load orders"
	msgLoadBalanceFailed    = "Failed to load balance"
)

// Options 控制台依赖
type Options struct {
	API     OrderAPI
	Opener  PushOpener
	Session SessionStore // 可为 nil

	PushMode string // config.PushModePerOrder / config.PushModeShared
	UserID   string // 启动时加载的用户

	Now func() time.Time
	Log *logrus.Entry
}

// Controller 控制台状态的唯一所有者
//
// 所有状态只在 Run 的事件循环里修改；命令、REST 结果、推送事件都以消息形式进入收件箱。
// 外部通过 Snapshot/Changes 读取状态。
type Controller struct {
	api     OrderAPI
	session SessionStore
	now     func() time.Time
	log     *logrus.Entry

	inbox   chan any
	done    chan struct{}
	changes *sigchan.Chan

	snapshot atomic.Pointer[State]
	running  atomic.Bool

	// 以下字段只在事件循环中访问
	ctx    context.Context
	subs   subscriptionSet
	state  State
	noteID uint64
	initID string
}

// New 创建控制台；调用 Run 之前发出的命令会在循环启动后按序处理
func New(opts Options) *Controller {
	c := &Controller{
		api:     opts.API,
		session: opts.Session,
		now:     opts.Now,
		log:     opts.Log,
		inbox:   make(chan any, inboxSize),
		done:    make(chan struct{}),
		changes: sigchan.New(),
		initID:  strings.TrimSpace(opts.UserID),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = logger.WithField("component", "console")
	}

	mode := opts.PushMode
	if mode == "" {
		mode = config.PushModePerOrder
	}
	c.state.PushMode = mode
	if mode == config.PushModeShared {
		c.subs = newSharedSubscription(opts.Opener, c.post, c.log)
	} else {
		c.subs = newPerOrderSubscriptions(opts.Opener, c.post, c.log)
	}

	c.publish()
	return c
}

// Run 运行事件循环直到 ctx 取消；退出时关闭全部推送通道
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("console controller already running")
	}
	c.ctx = ctx
	defer func() {
		c.subs.Reset()
		close(c.done)
		c.publish()
		c.log.Info("控制台已退出，推送通道已全部关闭")
	}()

	if c.initID != "" {
		c.switchUser(c.initID)
		c.publish()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.inbox:
			c.handle(msg)
			c.publish()
		}
	}
}

// Done 事件循环退出后关闭
func (c *Controller) Done() <-chan struct{} { return c.done }

// Snapshot 当前状态快照
func (c *Controller) Snapshot() State {
	return *c.snapshot.Load()
}

// Changes 状态变化信号（合并通知，容量 1）
func (c *Controller) Changes() <-chan struct{} { return c.changes.C() }

// SwitchUser 切换当前用户
func (c *Controller) SwitchUser(userID string) { c.post(switchUserCmd{userID: userID}) }

// CreateAccount 为当前用户创建账户
func (c *Controller) CreateAccount() { c.post(createAccountCmd{}) }

// Deposit 给当前用户充值，raw 为用户输入
func (c *Controller) Deposit(raw string) { c.post(depositCmd{raw: raw}) }

// CreateOrder 创建订单
func (c *Controller) CreateOrder(rawAmount, description string) {
	c.post(createOrderCmd{raw: rawAmount, description: description})
}

// Reload 重新拉取订单列表和余额
func (c *Controller) Reload() { c.post(reloadCmd{}) }

// post 投递消息；循环已退出时丢弃
func (c *Controller) post(msg any) {
	select {
	case c.inbox <- msg:
	case <-c.done:
	}
}

// ===== 消息 =====

type switchUserCmd struct{ userID string }
type createAccountCmd struct{}
type depositCmd struct{ raw string }
type createOrderCmd struct{ raw, description string }
type reloadCmd struct{}

// restDone 包装 REST goroutine 的结果
type restDone struct{ result any }

type ordersLoaded struct {
	userID string
	orders []domain.Order
	err    error
}

type balanceLoaded struct {
	userID  string
	balance decimal.Decimal
	err     error
}

type accountCreated struct {
	userID string
	err    error
}

type deposited struct {
	userID string
	err    error
}

type orderCreated struct {
	userID string
	order  *domain.Order
	err    error
}

type pushUpdateMsg struct {
	update domain.OrderUpdate
}

type pushClosedMsg struct {
	orderID string
	gen     uint64
	err     error
}

// ===== 事件循环 =====

func (c *Controller) handle(msg any) {
	switch m := msg.(type) {
	case switchUserCmd:
		c.switchUser(m.userID)
	case createAccountCmd:
		c.createAccount()
	case depositCmd:
		c.deposit(m.raw)
	case createOrderCmd:
		c.createOrder(m.raw, m.description)
	case reloadCmd:
		if c.requireUser() {
			c.loadOrders()
			c.loadBalance()
		}
	case restDone:
		c.state.InFlight--
		metrics.PendingRequests.Add(-1)
		c.handleResult(m.result)
	case pushUpdateMsg:
		metrics.PushUpdates.Add(1)
		c.onPushUpdate(m.update)
	case pushClosedMsg:
		c.subs.Closed(m.orderID, m.gen)
		if m.err != nil {
			c.log.Debugf("推送通道关闭: order=%s err=%v", m.orderID, m.err)
		}
	default:
		c.log.Warnf("未知消息类型: %T", msg)
	}
}

func (c *Controller) handleResult(result any) {
	switch r := result.(type) {
	case ordersLoaded:
		if c.stale(r.userID, "orders") {
			return
		}
		if r.err != nil {
			metrics.RESTFailures.Add(1)
			c.log.Warnf("加载订单失败: user=%s err=%v", r.userID, r.err)
			c.notify(LevelError, msgLoadOrdersFailed)
			return
		}
		c.setOrders(r.orders)
	case balanceLoaded:
		if c.stale(r.userID, "balance") {
			return
		}
		if r.err != nil {
			metrics.RESTFailures.Add(1)
			c.log.Warnf("加载余额失败: user=%s err=%v", r.userID, r.err)
			c.notify(LevelError, msgLoadBalanceFailed)
			return
		}
		c.state.Balance = r.balance
		c.state.BalanceLoaded = true
	case accountCreated:
		if c.stale(r.userID, "create account") {
			return
		}
		if r.err != nil {
			metrics.RESTFailures.Add(1)
			c.log.Warnf("创建账户失败: user=%s err=%v", r.userID, r.err)
			c.notify(LevelError, msgAccountFailed)
			return
		}
		c.notify(LevelSuccess, msgAccountCreated)
		c.loadBalance()
	case deposited:
		if c.stale(r.userID, "deposit") {
			return
		}
		if r.err != nil {
			metrics.RESTFailures.Add(1)
			c.log.Warnf("充值失败: user=%s err=%v", r.userID, r.err)
			c.notify(LevelError, msgDepositFailed)
			return
		}
		c.notify(LevelSuccess, msgDepositDone)
		c.state.DepositsDone++
		c.loadBalance()
	case orderCreated:
		if c.stale(r.userID, "create order") {
			return
		}
		if r.err != nil {
			metrics.RESTFailures.Add(1)
			c.log.Warnf("创建订单失败: user=%s err=%v", r.userID, r.err)
			c.notify(LevelError, msgOrderFailed)
			return
		}
		c.notify(LevelSuccess, msgOrderCreated)
		c.state.OrdersDone++
		if r.order != nil {
			orders := make([]domain.Order, 0, len(c.state.Orders)+1)
			orders = append(orders, *r.order)
			orders = append(orders, c.state.Orders...)
			c.setOrders(orders)
		} else {
			c.loadOrders()
		}
	}
}

// stale 结果属于已切走的用户时丢弃
func (c *Controller) stale(userID, what string) bool {
	if userID == c.state.UserID {
		return false
	}
	metrics.StaleResults.Add(1)
	c.log.Debugf("丢弃过期结果: %s user=%s current=%s", what, userID, c.state.UserID)
	return true
}

func (c *Controller) requireUser() bool {
	if c.state.UserID == "" {
		c.notify(LevelError, msgEmptyUserID)
		return false
	}
	return true
}

func (c *Controller) switchUser(raw string) {
	userID := strings.TrimSpace(raw)
	if userID == "" {
		c.notify(LevelError, msgEmptyUserID)
		return
	}

	c.subs.Reset()
	c.state.UserID = userID
	c.state.Orders = nil
	c.state.Balance = decimal.Zero
	c.state.BalanceLoaded = false
	c.log.Infof("切换用户: %s", userID)

	if c.session != nil {
		if err := c.session.SaveUserID(userID); err != nil {
			c.log.Warnf("保存会话失败: %v", err)
		}
	}

	c.loadOrders()
	c.loadBalance()
	// 共享通道按用户会话打开，不依赖订单列表
	if c.state.PushMode == config.PushModeShared {
		c.subs.Sync(nil)
	}
}

func (c *Controller) createAccount() {
	if !c.requireUser() {
		return
	}
	userID := c.state.UserID
	c.spawn(func(ctx context.Context) any {
		return accountCreated{userID: userID, err: c.api.CreateAccount(ctx, userID)}
	})
}

func (c *Controller) deposit(raw string) {
	if !c.requireUser() {
		return
	}
	amount, err := ParseAmount(raw)
	if err != nil {
		c.notify(LevelError, msgInvalidDepositAmount)
		return
	}
	userID := c.state.UserID
	c.spawn(func(ctx context.Context) any {
		return deposited{userID: userID, err: c.api.Deposit(ctx, userID, amount)}
	})
}

func (c *Controller) createOrder(raw, description string) {
	if !c.requireUser() {
		return
	}
	amount, err := ParseAmount(raw)
	if err != nil {
		c.notify(LevelError, msgInvalidAmount)
		return
	}
	userID := c.state.UserID
	c.spawn(func(ctx context.Context) any {
		order, err := c.api.CreateOrder(ctx, userID, amount, description)
		return orderCreated{userID: userID, order: order, err: err}
	})
}

func (c *Controller) loadOrders() {
	userID := c.state.UserID
	c.spawn(func(ctx context.Context) any {
		orders, err := c.api.ListOrders(ctx, userID)
		return ordersLoaded{userID: userID, orders: orders, err: err}
	})
}

func (c *Controller) loadBalance() {
	userID := c.state.UserID
	c.spawn(func(ctx context.Context) any {
		balance, err := c.api.GetBalance(ctx, userID)
		return balanceLoaded{userID: userID, balance: balance, err: err}
	})
}

// spawn 在独立 goroutine 中执行 REST 调用，结果回投到收件箱
func (c *Controller) spawn(call func(ctx context.Context) any) {
	c.state.InFlight++
	metrics.PendingRequests.Add(1)
	ctx := c.ctx
	go func() {
		c.post(restDone{result: call(ctx)})
	}()
}

// setOrders 替换订单列表并对账推送通道
func (c *Controller) setOrders(orders []domain.Order) {
	if orders == nil {
		orders = []domain.Order{}
	}
	c.state.Orders = orders
	if c.state.PushMode != config.PushModeShared {
		c.subs.Sync(orders)
	}
}

func (c *Controller) onPushUpdate(u domain.OrderUpdate) {
	text := fmt.Sprintf("Order %s: %s", u.OrderID, u.Status)
	if u.Message != "" {
		text += " - " + u.Message
	}

	if c.state.PushMode == config.PushModeShared {
		if c.state.UserID == "" {
			return
		}
		c.notify(LevelInfo, text)
		c.loadOrders()
		return
	}

	idx := -1
	for i, o := range c.state.Orders {
		if o.ID == u.OrderID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.log.Debugf("忽略未知订单的推送: %s", u.OrderID)
		return
	}

	// 复制后修改，已发布的快照保持不变
	orders := make([]domain.Order, len(c.state.Orders))
	copy(orders, c.state.Orders)
	orders[idx].Status = u.Status
	c.setOrders(orders)

	c.notify(LevelInfo, text)
	c.loadBalance()
}

func (c *Controller) notify(level NotificationLevel, text string) {
	metrics.Notifications.Add(1)
	c.noteID++
	notes := append(c.state.Notifications, Notification{
		ID:    c.noteID,
		Level: level,
		Text:  text,
		At:    c.now(),
	})
	if len(notes) > maxNotifications {
		notes = notes[len(notes)-maxNotifications:]
	}
	// 新切片，避免与已发布快照共享底层数组
	c.state.Notifications = append([]Notification(nil), notes...)
}

// publish 发布快照并发出变化信号
func (c *Controller) publish() {
	s := c.state
	s.Orders = append([]domain.Order(nil), c.state.Orders...)
	s.Notifications = append([]Notification(nil), c.state.Notifications...)
	s.Subscriptions = c.subs.OrderIDs()
	c.snapshot.Store(&s)
	c.changes.Emit()
}
