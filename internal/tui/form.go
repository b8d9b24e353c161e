package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type field struct {
	label string
	input textinput.Model
}

// form is a column of text inputs with one focused field.
type form struct {
	title  string
	submit string
	fields []field
	focus  int
}

type fieldSpec struct {
	label       string
	placeholder string
	secret      bool
}

func newForm(title, submit string, specs ...fieldSpec) *form {
	f := &form{title: title, submit: submit}
	for _, s := range specs {
		ti := textinput.New()
		ti.Placeholder = s.placeholder
		ti.CharLimit = 512
		ti.Width = 48
		if s.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.fields = append(f.fields, field{label: s.label, input: ti})
	}
	return f
}

func (f *form) Focus() tea.Cmd {
	for i := range f.fields {
		f.fields[i].input.Blur()
	}
	return f.fields[f.focus].input.Focus()
}

func (f *form) Blur() {
	for i := range f.fields {
		f.fields[i].input.Blur()
	}
}

func (f *form) Next() tea.Cmd {
	f.focus = (f.focus + 1) % len(f.fields)
	return f.Focus()
}

func (f *form) Prev() tea.Cmd {
	f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
	return f.Focus()
}

// OnLast reports whether the focused field is the last one.
func (f *form) OnLast() bool {
	return f.focus == len(f.fields)-1
}

func (f *form) Value(i int) string {
	return strings.TrimSpace(f.fields[i].input.Value())
}

// Raw returns the field without trimming, for passwords.
func (f *form) Raw(i int) string {
	return f.fields[i].input.Value()
}

func (f *form) Reset() {
	for i := range f.fields {
		f.fields[i].input.SetValue("")
	}
	f.focus = 0
}

func (f *form) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}
