package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/betbot/orderconsole/internal/console"
	"github.com/betbot/orderconsole/internal/domain"
)

const (
	maxToasts      = 5
	reloadInterval = 500 * time.Millisecond
	descWidth      = 24
)

// Console 界面依赖的控制台操作（console.Controller 实现）
type Console interface {
	SwitchUser(userID string)
	CreateAccount()
	Deposit(raw string)
	CreateOrder(rawAmount, description string)
	Reload()
	Snapshot() console.State
	Changes() <-chan struct{}
}

// 输入框顺序即 tab 顺序
const (
	fieldUser = iota
	fieldDeposit
	fieldAmount
	fieldDescription
	fieldCount
)

// Options 界面参数
type Options struct {
	ToastTTL time.Duration
	Now      func() time.Time
}

// Model bubbletea 模型
type Model struct {
	console  Console
	fields   [fieldCount]field
	focus    int
	state    console.State
	toastTTL time.Duration
	now      func() time.Time
	reload   *debouncer
	width    int
}

// stateMsg 控制台状态变化
type stateMsg struct{}

// tickMsg 定时器消息，用于让过期通知消失
type tickMsg time.Time

// NewModel 创建界面模型
func NewModel(c Console, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ToastTTL <= 0 {
		opts.ToastTTL = 5 * time.Second
	}
	m := Model{
		console:  c,
		toastTTL: opts.ToastTTL,
		now:      opts.Now,
		reload:   newDebouncer(reloadInterval),
	}
	m.fields[fieldUser] = newField("User ID", "user123", 64)
	m.fields[fieldDeposit] = newField("Deposit", "100", 32)
	m.fields[fieldAmount] = newField("Amount", "999.99", 32)
	m.fields[fieldDescription] = newField("Description", "Laptop", 128)
	m.fields[fieldUser].input.Focus()
	m.applyState(c.Snapshot())
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.console.Changes()),
		tickCmd(),
		textinput.Blink,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "down":
			cmd := m.setFocus((m.focus + 1) % fieldCount)
			return m, cmd
		case "shift+tab", "up":
			cmd := m.setFocus((m.focus + fieldCount - 1) % fieldCount)
			return m, cmd
		case "ctrl+a":
			m.console.CreateAccount()
			return m, nil
		case "ctrl+r":
			if m.reload.allow(m.now()) {
				m.console.Reload()
			}
			return m, nil
		case "enter":
			m.submit()
			return m, nil
		}

	case stateMsg:
		m.applyState(m.console.Snapshot())
		return m, waitForChange(m.console.Changes())

	case tickMsg:
		return m, tickCmd()
	}

	// 其余按键和光标闪烁交给当前输入框
	var cmd tea.Cmd
	m.fields[m.focus].input, cmd = m.fields[m.focus].input.Update(msg)
	return m, cmd
}

// setFocus 切换焦点输入框
func (m *Model) setFocus(i int) tea.Cmd {
	m.fields[m.focus].input.Blur()
	m.focus = i
	return m.fields[i].input.Focus()
}

// submit 执行当前输入框对应的操作
func (m *Model) submit() {
	switch m.focus {
	case fieldUser:
		m.console.SwitchUser(m.fields[fieldUser].value())
	case fieldDeposit:
		m.console.Deposit(m.fields[fieldDeposit].value())
	case fieldAmount, fieldDescription:
		m.console.CreateOrder(m.fields[fieldAmount].value(), m.fields[fieldDescription].value())
	}
}

// applyState 吸收新快照；操作成功后清空对应输入框
func (m *Model) applyState(s console.State) {
	if s.DepositsDone > m.state.DepositsDone {
		m.fields[fieldDeposit].input.Reset()
	}
	if s.OrdersDone > m.state.OrdersDone {
		m.fields[fieldAmount].input.Reset()
		m.fields[fieldDescription].input.Reset()
	}
	user := &m.fields[fieldUser]
	if s.UserID != m.state.UserID && (m.focus != fieldUser || user.value() == "") {
		user.input.SetValue(s.UserID)
	}
	m.state = s
}

func (m Model) View() string {
	var s strings.Builder

	header := fmt.Sprintf("Order Console | user: %s | push: %s | channels: %d",
		orDash(m.state.UserID), m.state.PushMode, len(m.state.Subscriptions))
	if m.state.InFlight > 0 {
		header += " | loading..."
	}
	s.WriteString(headerStyle.Render(header))
	s.WriteString("\n\n")

	account := m.renderAccount()
	create := m.renderCreate()
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, account, "  ", create))
	s.WriteString("\n\n")

	s.WriteString(m.renderOrders())
	s.WriteString("\n")

	if toasts := m.renderToasts(); toasts != "" {
		s.WriteString("\n")
		s.WriteString(toasts)
	}

	s.WriteString("\n")
	s.WriteString(hintStyle.Render("tab: next field · enter: submit · ctrl+a: create account · ctrl+r: reload · esc: quit"))
	return s.String()
}

func (m Model) panel(focused bool, body string) string {
	if focused {
		return focusedPanelStyle.Render(body)
	}
	return panelStyle.Render(body)
}

func (m Model) renderAccount() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Account"))
	s.WriteString("\n")
	s.WriteString(m.fields[fieldUser].view(m.focus == fieldUser))
	s.WriteString("\n")
	s.WriteString(labelStyle.Render("Balance:") + " " + m.balanceText())
	s.WriteString("\n")
	s.WriteString(m.fields[fieldDeposit].view(m.focus == fieldDeposit))
	return m.panel(m.focus == fieldUser || m.focus == fieldDeposit, s.String())
}

func (m Model) balanceText() string {
	if !m.state.BalanceLoaded {
		return hintStyle.Render("--")
	}
	return balanceStyle.Render(m.state.Balance.StringFixed(2))
}

func (m Model) renderCreate() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Create order"))
	s.WriteString("\n")
	s.WriteString(m.fields[fieldAmount].view(m.focus == fieldAmount))
	s.WriteString("\n")
	s.WriteString(m.fields[fieldDescription].view(m.focus == fieldDescription))
	return m.panel(m.focus == fieldAmount || m.focus == fieldDescription, s.String())
}

func (m Model) renderOrders() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("My orders"))
	s.WriteString("\n")
	if len(m.state.Orders) == 0 {
		s.WriteString(hintStyle.Render("No orders"))
		return panelStyle.Render(s.String())
	}

	s.WriteString(labelStyle.Render(fmt.Sprintf("%-11s  %12s  %-*s  %-10s  %s",
		"ID", "Amount", descWidth, "Description", "Status", "Date")))
	for _, o := range m.state.Orders {
		s.WriteString("\n")
		s.WriteString(renderOrderRow(o))
	}
	return panelStyle.Render(s.String())
}

func renderOrderRow(o domain.Order) string {
	status := fmt.Sprintf("%-10s", o.Status.Label())
	if st, ok := statusStyles[string(o.Status)]; ok {
		status = st.Render(status)
	}
	created := "--"
	if o.CreatedAt > 0 {
		created = o.CreatedTime().Local().Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("%-11s  %12s  %-*s  %s  %s",
		o.ShortID(), o.Amount.String(), descWidth, truncate(o.Description, descWidth), status, created)
}

func (m Model) renderToasts() string {
	active := m.state.ActiveNotifications(m.now(), m.toastTTL)
	if len(active) == 0 {
		return ""
	}
	if len(active) > maxToasts {
		active = active[len(active)-maxToasts:]
	}
	lines := make([]string, 0, len(active))
	for _, n := range active {
		switch n.Level {
		case console.LevelError:
			lines = append(lines, errorStyle.Render("✗ "+n.Text))
		case console.LevelSuccess:
			lines = append(lines, successStyle.Render("✓ "+n.Text))
		default:
			lines = append(lines, infoStyle.Render("• "+n.Text))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// Commands

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return stateMsg{}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "--"
	}
	return s
}
