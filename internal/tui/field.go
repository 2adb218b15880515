package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
)

// field 带标签的单行输入框
type field struct {
	label string
	input textinput.Model
}

func newField(label, placeholder string, limit int) field {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 20
	in.PlaceholderStyle = hintStyle
	return field{label: label, input: in}
}

func (f *field) value() string { return f.input.Value() }

func (f *field) view(focused bool) string {
	label := labelStyle.Render(f.label + ":")
	if focused {
		label = focusedLabelStyle.Render(f.label + ":")
	}
	return label + " " + f.input.View()
}
