package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/taskdash/internal/ui/keys"
	"github.com/tgienger/taskdash/internal/ui/styles"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

type field struct {
	label string
	input textinput.Model
}

func newField(label, placeholder string, secret bool) field {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 200
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return field{label: label, input: in}
}

// form is a column of inputs followed by a submit button. focusIdx ==
// len(fields) means the button has focus.
type form struct {
	title    string
	button   string
	hint     string
	fields   []field
	focusIdx int
	styles   *styles.Styles
	keys     keys.KeyMap
}

func newForm(s *styles.Styles, title, button, hint string, fields ...field) form {
	return form{
		title:  title,
		button: button,
		hint:   hint,
		fields: fields,
		styles: s,
		keys:   keys.DefaultKeyMap(),
	}
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.fields[i].input.Value())
}

func (f *form) reset() {
	for i := range f.fields {
		f.fields[i].input.Reset()
	}
	f.focusIdx = 0
	f.updateFocus()
}

func (f *form) updateFocus() {
	for i := range f.fields {
		f.fields[i].input.Blur()
	}
	if f.focusIdx < len(f.fields) {
		f.fields[f.focusIdx].input.Focus()
	}
}

// update handles a key press and reports whether the form was submitted
func (f *form) update(msg tea.KeyMsg) (bool, tea.Cmd) {
	n := len(f.fields) + 1

	switch {
	case key.Matches(msg, f.keys.Submit):
		return true, nil

	case key.Matches(msg, f.keys.ShiftTab):
		f.focusIdx = (f.focusIdx + n - 1) % n
		f.updateFocus()
		return false, nil

	case key.Matches(msg, f.keys.Tab):
		f.focusIdx = (f.focusIdx + 1) % n
		f.updateFocus()
		return false, nil

	case key.Matches(msg, f.keys.Enter):
		if f.focusIdx == len(f.fields) {
			return true, nil
		}
		f.focusIdx++
		f.updateFocus()
		return false, nil
	}

	if f.focusIdx >= len(f.fields) {
		return false, nil
	}
	var cmd tea.Cmd
	f.fields[f.focusIdx].input, cmd = f.fields[f.focusIdx].input.Update(msg)
	return false, cmd
}

func (f *form) view(width, height int, notice, errText string) string {
	s := f.styles
	contentWidth := styles.ContentWidth(width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	rows := []string{s.Title.Render(f.title), ""}
	if notice != "" {
		rows = append(rows, s.TitleMuted.Render(notice), "")
	}

	for i, fl := range f.fields {
		style := s.Input
		if i == f.focusIdx {
			style = s.InputFocused
		}
		rows = append(rows, fl.label+":", style.Width(inputWidth).Render(fl.input.View()), "")
	}

	btnStyle := s.Button
	if f.focusIdx == len(f.fields) {
		btnStyle = s.ButtonFocused
	}
	rows = append(rows, btnStyle.Render(" "+f.button+" "))

	if errText != "" {
		rows = append(rows, "", s.ErrorText.Render(errText))
	}
	rows = append(rows, "", s.TitleMuted.Render(f.hint))

	content := lipgloss.JoinVertical(lipgloss.Left, rows...)

	// Center within content width, then center that in terminal
	centered := lipgloss.Place(contentWidth, height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, width, height)
}
