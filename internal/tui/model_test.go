package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/orderconsole/internal/console"
	"github.com/betbot/orderconsole/internal/domain"
)

type fakeConsole struct {
	state   console.State
	changes chan struct{}

	switched []string
	deposits []string
	orders   [][2]string
	accounts int
	reloads  int
}

func newFakeConsole(s console.State) *fakeConsole {
	return &fakeConsole{state: s, changes: make(chan struct{}, 1)}
}

func (f *fakeConsole) SwitchUser(userID string) { f.switched = append(f.switched, userID) }
func (f *fakeConsole) CreateAccount() { f.accounts++ }
func (f *fakeConsole) Deposit(raw string) { f.deposits = append(f.deposits, raw) }
func (f *fakeConsole) Reload() { f.reloads++ }
func (f *fakeConsole) Snapshot() console.State { return f.state }
func (f *fakeConsole) Changes() <-chan struct{} { return f.changes }
func (f *fakeConsole) CreateOrder(amount, d string) { f.orders = append(f.orders, [2]string{amount, d}) }

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func press(t *testing.T, m Model, key tea.KeyType) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: key})
	return next.(Model)
}

func TestModel_InitialUserFromSnapshot(t *testing.T) {
	c := newFakeConsole(console.State{UserID: "user123", PushMode: "per-order"})
	m := NewModel(c, Options{})
	assert.Equal(t, "user123", m.fields[fieldUser].value())
	assert.Equal(t, fieldUser, m.focus)
}

func TestModel_SwitchUserOnEnter(t *testing.T) {
	c := newFakeConsole(console.State{})
	m := NewModel(c, Options{})
	m = typeText(t, m, "alice")
	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, []string{"alice"}, c.switched)
}

func TestModel_DepositAndCreateOrder(t *testing.T) {
	c := newFakeConsole(console.State{UserID: "alice"})
	m := NewModel(c, Options{})

	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "50")
	m = press(t, m, tea.KeyEnter)
	require.Equal(t, []string{"50"}, c.deposits)

	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "999.99")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "Laptop")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = next.(Model)
	m = typeText(t, m, "Pro")
	m = press(t, m, tea.KeyEnter)
	require.Equal(t, [][2]string{{"999.99", "Laptop Pro"}}, c.orders)

	// 失败时输入保留，成功计数增加后清空
	assert.Equal(t, "50", m.fields[fieldDeposit].value())
	c.state.DepositsDone = 1
	c.state.OrdersDone = 1
	next, cmd := m.Update(stateMsg{})
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.fields[fieldDeposit].value())
	assert.Empty(t, m.fields[fieldAmount].value())
	assert.Empty(t, m.fields[fieldDescription].value())
}

func TestModel_ShiftTabWrapsAndBackspace(t *testing.T) {
	c := newFakeConsole(console.State{})
	m := NewModel(c, Options{})
	m = press(t, m, tea.KeyShiftTab)
	assert.Equal(t, fieldDescription, m.focus)

	m = typeText(t, m, "héllo")
	m = press(t, m, tea.KeyBackspace)
	assert.Equal(t, "héll", m.fields[fieldDescription].value())
	m = press(t, m, tea.KeyCtrlU)
	assert.Empty(t, m.fields[fieldDescription].value())
}

func TestModel_CursorEditingAndCharLimit(t *testing.T) {
	c := newFakeConsole(console.State{UserID: "alice"})
	m := NewModel(c, Options{})
	m = press(t, m, tea.KeyTab)
	m = press(t, m, tea.KeyTab)
	require.Equal(t, fieldAmount, m.focus)
	assert.True(t, m.fields[fieldAmount].input.Focused())
	assert.False(t, m.fields[fieldUser].input.Focused())

	m = typeText(t, m, "15")
	m = press(t, m, tea.KeyLeft)
	m = typeText(t, m, "2")
	assert.Equal(t, "125", m.fields[fieldAmount].value())

	// 超长粘贴截断到上限，而不是整段丢弃
	m = press(t, m, tea.KeyEnd)
	m = press(t, m, tea.KeyCtrlU)
	require.Empty(t, m.fields[fieldAmount].value())
	m = typeText(t, m, strings.Repeat("9", 40))
	assert.Equal(t, strings.Repeat("9", 32), m.fields[fieldAmount].value())
}

func TestModel_ShortcutKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newFakeConsole(console.State{UserID: "alice"})
	m := NewModel(c, Options{Now: func() time.Time { return now }})

	m = press(t, m, tea.KeyCtrlA)
	assert.Equal(t, 1, c.accounts)

	m = press(t, m, tea.KeyCtrlR)
	m = press(t, m, tea.KeyCtrlR)
	assert.Equal(t, 1, c.reloads, "rapid reloads are debounced")
	now = now.Add(time.Second)
	m = press(t, m, tea.KeyCtrlR)
	assert.Equal(t, 2, c.reloads)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_ViewRendersOrdersAndToasts(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newFakeConsole(console.State{
		UserID:        "alice",
		PushMode:      "per-order",
		Balance:       decimal.RequireFromString("150.5"),
		BalanceLoaded: true,
		Orders: []domain.Order{
			{ID: "0123456789abcdef", Amount: decimal.RequireFromString("999.99"), Description: "Laptop", Status: domain.OrderStatusFinished, CreatedAt: now.Unix()},
			{ID: "short", Amount: decimal.NewFromInt(5), Status: "ON_HOLD"},
		},
		Subscriptions: []string{"0123456789abcdef", "short"},
		Notifications: []console.Notification{
			{ID: 1, Level: console.LevelInfo, Text: "old toast", At: now.Add(-time.Minute)},
			{ID: 2, Level: console.LevelSuccess, Text: "Deposit successful!", At: now},
		},
	})
	m := NewModel(c, Options{Now: func() time.Time { return now }, ToastTTL: 5 * time.Second})
	view := m.View()

	assert.Contains(t, view, "150.50")
	assert.Contains(t, view, "01234567...")
	assert.NotContains(t, view, "0123456789abcdef")
	assert.Contains(t, view, "Paid")
	assert.Contains(t, view, "ON_HOLD")
	assert.Contains(t, view, "channels: 2")
	assert.Contains(t, view, "Deposit successful!")
	assert.NotContains(t, view, "old toast")
}

func TestModel_ViewEmpty(t *testing.T) {
	c := newFakeConsole(console.State{})
	view := NewModel(c, Options{}).View()
	assert.Contains(t, view, "No orders")
	assert.Contains(t, view, "--")
}

func TestDebouncer(t *testing.T) {
	d := newDebouncer(time.Second)
	t0 := time.Unix(100, 0)
	assert.True(t, d.allow(t0))
	assert.False(t, d.allow(t0.Add(500*time.Millisecond)))
	assert.True(t, d.allow(t0.Add(time.Second)))
}
