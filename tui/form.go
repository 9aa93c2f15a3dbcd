package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formField struct {
	label       string
	placeholder string
	secret      bool
	limit       int
}

// form is a vertical stack of text inputs with an optional trailing choice
// row, used by the login, signup and create-venue screens.
type form struct {
	labels []string
	inputs []textinput.Model

	choiceLabel string
	choices     []string
	choice      int

	focus int
	err   string
}

func newForm(fields ...formField) form {
	f := form{}
	for _, field := range fields {
		in := textinput.New()
		in.Placeholder = field.placeholder
		in.Prompt = "> "
		in.CharLimit = 256
		if field.limit > 0 {
			in.CharLimit = field.limit
		}
		if field.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.labels = append(f.labels, field.label)
		f.inputs = append(f.inputs, in)
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func (f form) withChoice(label string, choices ...string) form {
	f.choiceLabel = label
	f.choices = choices
	return f
}

func (f form) fieldCount() int {
	n := len(f.inputs)
	if len(f.choices) > 0 {
		n++
	}
	return n
}

func (f form) onChoice() bool {
	return len(f.choices) > 0 && f.focus == len(f.inputs)
}

func (f form) onLast() bool {
	return f.focus == f.fieldCount()-1
}

func (f *form) setFocus(i int) tea.Cmd {
	count := f.fieldCount()
	if count == 0 {
		return nil
	}
	i = ((i % count) + count) % count
	f.focus = i
	var cmd tea.Cmd
	for idx := range f.inputs {
		if idx == i {
			cmd = f.inputs[idx].Focus()
			continue
		}
		f.inputs[idx].Blur()
	}
	return cmd
}

func (f *form) next() tea.Cmd { return f.setFocus(f.focus + 1) }
func (f *form) prev() tea.Cmd { return f.setFocus(f.focus - 1) }

func (f *form) cycleChoice(delta int) {
	if len(f.choices) == 0 {
		return
	}
	n := len(f.choices)
	f.choice = ((f.choice+delta)%n + n) % n
}

func (f form) selectedChoice() string {
	if len(f.choices) == 0 {
		return ""
	}
	return f.choices[f.choice]
}

// update forwards msg to the focused input.
func (f *form) update(msg tea.Msg) tea.Cmd {
	if f.focus < 0 || f.focus >= len(f.inputs) {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f form) value(i int) string {
	if i < 0 || i >= len(f.inputs) {
		return ""
	}
	return f.inputs[i].Value()
}

func (f *form) setValue(i int, value string) {
	if i < 0 || i >= len(f.inputs) {
		return
	}
	f.inputs[i].SetValue(value)
}

func (f *form) reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
	}
	f.choice = 0
	f.err = ""
	f.setFocus(0)
}

func (f form) view(title string, submitLabel string) string {
	label := lipgloss.NewStyle().Bold(true)
	rows := []string{lipgloss.NewStyle().Bold(true).Underline(true).Render(title), ""}
	for i, in := range f.inputs {
		rows = append(rows, label.Render(f.labels[i]), in.View(), "")
	}
	if len(f.choices) > 0 {
		rows = append(rows, label.Render(f.choiceLabel), f.choiceView(), "")
	}
	if f.err != "" {
		rows = append(rows, lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(f.err), "")
	}
	rows = append(rows, hint("enter on the last field to "+submitLabel))
	return strings.Join(rows, "\n")
}

func (f form) choiceView() string {
	active := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("63")).
		Padding(0, 1)
	inactive := lipgloss.NewStyle().Padding(0, 1).Faint(true)
	chips := make([]string, 0, len(f.choices))
	for i, choice := range f.choices {
		if i == f.choice {
			chips = append(chips, active.Render(choice))
		} else {
			chips = append(chips, inactive.Render(choice))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, chips...)
	if f.onChoice() {
		return "> " + row
	}
	return "  " + row
}
