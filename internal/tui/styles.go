package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	focusedPanelStyle = panelStyle.
				BorderForeground(lipgloss.Color("62"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	focusedLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	balanceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("2")) // 绿色

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")) // 红色
)

// statusStyles 订单状态着色
var statusStyles = map[string]lipgloss.Style{
	"NEW":        lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	"PROCESSING": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	"FINISHED":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	"CANCELLED":  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
}
