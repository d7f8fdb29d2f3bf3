package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/tgienger/taskdash/internal/db"
	"github.com/tgienger/taskdash/internal/models"
	"github.com/tgienger/taskdash/internal/tasks"
	"github.com/tgienger/taskdash/internal/ui/keys"
	"github.com/tgienger/taskdash/internal/ui/styles"
)

// Section identifies one of the two task lists on the dashboard
type Section int

const (
	SectionAssignedToMe Section = iota
	SectionAssignedByMe
)

const deadlineFormat = "Jan 2, 2006"

// generation tags each dashboard so results addressed to a closed one are dropped
var generation atomic.Uint64

// DashboardView shows the tasks assigned to and by the signed-in user
type DashboardView struct {
	svc    *tasks.Service
	styles *styles.Styles
	keys   keys.KeyMap
	log    *log.Logger

	narrowWidth int
	width       int
	height      int

	// Lifetime of in-flight backend calls
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64

	focus   Section
	cursor  [2]int
	scrollY [2]int

	loaded  bool
	pending map[string]bool // task IDs with a call in flight
	spinner spinner.Model

	// Delete confirmation
	confirmingDelete bool
	deleteTargetID   string
	deleteTargetName string

	showHelpPopup bool
	notice        string
	err           string
}

// NewDashboardView creates a dashboard over svc. Layout switches to cards
// when the content width drops below narrowWidth.
func NewDashboardView(svc *tasks.Service, narrowWidth int, logger *log.Logger) *DashboardView {
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Current.Secondary)

	return &DashboardView{
		svc:         svc,
		styles:      styles.NewStyles(),
		keys:        keys.DefaultKeyMap(),
		log:         logger,
		narrowWidth: narrowWidth,
		ctx:         ctx,
		cancel:      cancel,
		gen:         generation.Add(1),
		pending:     map[string]bool{},
		spinner:     sp,
	}
}

type refreshedMsg struct {
	gen uint64
	err error
}

type markedDoneMsg struct {
	gen    uint64
	id     string
	status models.Status
	err    error
}

type removedMsg struct {
	gen uint64
	id  string
	err error
}

func (v *DashboardView) Init() tea.Cmd {
	return tea.Batch(v.refresh(), v.spinner.Tick)
}

// Close cancels every call still in flight. Their results will not touch
// the store.
func (v *DashboardView) Close() {
	v.cancel()
}

func (v *DashboardView) refresh() tea.Cmd {
	ctx, gen, svc := v.ctx, v.gen, v.svc
	return func() tea.Msg {
		return refreshedMsg{gen: gen, err: svc.Refresh(ctx)}
	}
}

func (v *DashboardView) markDone(id string) tea.Cmd {
	v.pending[id] = true
	ctx, gen, svc := v.ctx, v.gen, v.svc
	return func() tea.Msg {
		status, err := svc.MarkDone(ctx, id)
		return markedDoneMsg{gen: gen, id: id, status: status, err: err}
	}
}

func (v *DashboardView) removeTask(id string) tea.Cmd {
	v.pending[id] = true
	ctx, gen, svc := v.ctx, v.gen, v.svc
	return func() tea.Msg {
		return removedMsg{gen: gen, id: id, err: svc.RemoveTask(ctx, id)}
	}
}

// Update handles messages
func (v *DashboardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ensureVisible()
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case refreshedMsg:
		if msg.gen != v.gen {
			return v, nil
		}
		v.loaded = true
		v.clampCursors()
		return v, v.handleRefreshErr(msg.err)

	case markedDoneMsg:
		if msg.gen != v.gen {
			return v, nil
		}
		delete(v.pending, msg.id)
		switch {
		case msg.err == nil:
			v.setNotice(fmt.Sprintf("Marked as %s", msg.status))
		case errors.Is(msg.err, tasks.ErrAlreadyCompleted):
			v.setNotice("Task is already " + string(msg.status))
		case errors.Is(msg.err, db.ErrForbidden):
			v.setError("Only the assignee can complete this task")
		default:
			v.setError("Could not mark task as done: " + msg.err.Error())
		}
		return v, nil

	case removedMsg:
		if msg.gen != v.gen {
			return v, nil
		}
		delete(v.pending, msg.id)
		switch {
		case msg.err == nil:
			v.setNotice("Task removed")
			v.clampCursors()
		case errors.Is(msg.err, db.ErrForbidden):
			v.setError("Only the assigner can remove this task")
		default:
			v.setError("Could not remove task: " + msg.err.Error())
		}
		return v, nil

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *DashboardView) handleRefreshErr(err error) tea.Cmd {
	switch {
	case err == nil:
		v.err = ""
	case errors.Is(err, db.ErrInvalidToken):
		return func() tea.Msg { return SessionExpired{} }
	case errors.Is(err, tasks.ErrNoIdentity):
		v.setError("Not signed in")
	case errors.Is(err, context.Canceled):
	default:
		v.setError("Could not load tasks: " + err.Error())
	}
	return nil
}

func (v *DashboardView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		v.Close()
		return v, tea.Quit

	case key.Matches(msg, v.keys.Logout):
		v.Close()
		return v, func() tea.Msg { return LoggedOut{} }

	case key.Matches(msg, v.keys.Back):
		v.notice, v.err = "", ""
		return v, nil

	case key.Matches(msg, v.keys.Tab), key.Matches(msg, v.keys.ShiftTab):
		v.focus = 1 - v.focus
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.cursor[v.focus] > 0 {
			v.cursor[v.focus]--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor[v.focus] < len(v.list(v.focus))-1 {
			v.cursor[v.focus]++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Done):
		task, ok := v.selected()
		if !ok || v.focus != SectionAssignedToMe || v.pending[task.ID] {
			return v, nil
		}
		if !tasks.CanMarkDone(task) {
			v.setNotice("Task is already " + string(task.Status))
			return v, nil
		}
		return v, v.markDone(task.ID)

	case key.Matches(msg, v.keys.Delete):
		task, ok := v.selected()
		if !ok || v.pending[task.ID] || !tasks.CanRemove(task, v.email()) {
			return v, nil
		}
		v.confirmingDelete = true
		v.deleteTargetID = task.ID
		v.deleteTargetName = task.Content
		return v, nil

	case key.Matches(msg, v.keys.Refresh):
		return v, v.refresh()

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil
	}

	return v, nil
}

func (v *DashboardView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		return v, v.removeTask(v.deleteTargetID)
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *DashboardView) setNotice(s string) {
	v.notice, v.err = s, ""
}

func (v *DashboardView) setError(s string) {
	v.notice, v.err = "", s
}

func (v *DashboardView) email() string {
	if u := v.svc.Store().User(); u != nil {
		return u.Email
	}
	return ""
}

func (v *DashboardView) list(sec Section) []models.Task {
	views := v.svc.Store().Views()
	if sec == SectionAssignedByMe {
		return views.AssignedByMe
	}
	return views.AssignedToMe
}

func (v *DashboardView) selected() (models.Task, bool) {
	list := v.list(v.focus)
	i := v.cursor[v.focus]
	if i < 0 || i >= len(list) {
		return models.Task{}, false
	}
	return list[i], true
}

func (v *DashboardView) clampCursors() {
	for _, sec := range []Section{SectionAssignedToMe, SectionAssignedByMe} {
		n := len(v.list(sec))
		if v.cursor[sec] >= n {
			v.cursor[sec] = max(0, n-1)
		}
	}
	v.ensureVisible()
}

func (v *DashboardView) narrow() bool {
	return styles.ContentWidth(v.width) < v.narrowWidth
}

// visibleRows is how many tasks fit in each section
func (v *DashboardView) visibleRows() int {
	// title, sections, status line and help take about 14 lines
	available := max(v.height-14, 2) / 2
	perItem := 1
	if v.narrow() {
		perItem = 3
	}
	return max(available/perItem, 1)
}

func (v *DashboardView) ensureVisible() {
	visible := v.visibleRows()
	for _, sec := range []Section{SectionAssignedToMe, SectionAssignedByMe} {
		c := v.cursor[sec]
		if c < v.scrollY[sec] {
			v.scrollY[sec] = c
		} else if c >= v.scrollY[sec]+visible {
			v.scrollY[sec] = c - visible + 1
		}
	}
}

// View renders the view
func (v *DashboardView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if !v.loaded {
		return v.styles.TitleMuted.Render(v.spinner.View() + " Loading tasks...")
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n")
	b.WriteString(v.renderSection(SectionAssignedToMe))
	b.WriteString("\n")
	b.WriteString(v.renderSection(SectionAssignedByMe))
	b.WriteString("\n\n")
	b.WriteString(v.renderStatus())
	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *DashboardView) renderHeader() string {
	s := v.styles
	title := s.Title.Render("Task Dashboard")
	if email := v.email(); email != "" {
		title += "  " + s.TitleMuted.Render(email)
	}
	return title
}

func (v *DashboardView) renderSection(sec Section) string {
	s := v.styles
	list := v.list(sec)

	label := "Tasks Assigned to Me"
	empty := "No tasks assigned to you."
	if sec == SectionAssignedByMe {
		label = "Tasks Assigned by Me"
		empty = "You have not assigned any tasks."
	}

	titleStyle := s.Section
	if v.focus == sec {
		titleStyle = s.SectionFocus
	}
	title := titleStyle.Render(fmt.Sprintf("%s (%d)", label, len(list)))

	if len(list) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, s.TitleMuted.Render("  "+empty))
	}

	start := min(v.scrollY[sec], len(list)-1)
	end := min(start+v.visibleRows(), len(list))

	var body string
	if v.narrow() {
		body = v.renderCards(sec, list, start, end)
	} else {
		body = v.renderTable(sec, list, start, end)
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

// counterpart is the other party of a task from the section's point of view
func counterpart(sec Section, t models.Task) string {
	if sec == SectionAssignedByMe {
		return t.AssignedTo
	}
	return t.AssignedBy
}

func (v *DashboardView) actionHints(sec Section, t models.Task) string {
	if v.pending[t.ID] {
		return v.spinner.View() + " working"
	}
	var hints []string
	if sec == SectionAssignedToMe && tasks.CanMarkDone(t) {
		hints = append(hints, "m done")
	}
	if tasks.CanRemove(t, v.email()) {
		hints = append(hints, "d remove")
	}
	return strings.Join(hints, " · ")
}

func (v *DashboardView) renderTable(sec Section, list []models.Task, start, end int) string {
	s := v.styles
	width := styles.ContentWidth(v.width) - 2
	selected := v.cursor[sec] - start
	focused := v.focus == sec

	other := "Assigned By"
	if sec == SectionAssignedByMe {
		other = "Assigned To"
	}

	rows := make([][]string, 0, end-start)
	for _, t := range list[start:end] {
		rows = append(rows, []string{
			truncate(t.Content, 40),
			counterpart(sec, t),
			t.Deadline.Local().Format(deadlineFormat),
			s.Badge(t.Status),
			v.actionHints(sec, t),
		})
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.TableBorder).
		Headers("Task", other, "Deadline", "Status", "Actions").
		Rows(rows...).
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return s.TableHeader
			case focused && row == selected:
				return s.TableSelected
			}
			return s.TableCell
		})

	return tbl.Render()
}

func (v *DashboardView) renderCards(sec Section, list []models.Task, start, end int) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	prefix := "by "
	if sec == SectionAssignedByMe {
		prefix = "to "
	}

	var items []string
	for i := start; i < end; i++ {
		t := list[i]
		meta := []string{
			prefix + counterpart(sec, t),
			"due " + t.Deadline.Local().Format(deadlineFormat),
			s.Badge(t.Status),
		}
		if hints := v.actionHints(sec, t); hints != "" {
			meta = append(meta, hints)
		}

		style := s.ListItem
		if v.focus == sec && i == v.cursor[sec] {
			style = s.ListSelected
		}
		item := lipgloss.JoinVertical(lipgloss.Left,
			style.Width(width).Render(t.Content),
			style.Width(width).Render(strings.Join(meta, "  ")),
		)
		items = append(items, item+"\n")
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *DashboardView) renderStatus() string {
	switch {
	case v.err != "":
		return v.styles.ErrorText.Render(v.err)
	case v.notice != "":
		return v.styles.StatusBar.Render(v.notice)
	case len(v.pending) > 0:
		return v.styles.StatusBar.Render(v.spinner.View() + " saving...")
	}
	return ""
}

// helpLine renders bindings as "key desc" pairs from their help text
func (v *DashboardView) helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, v.styles.HelpKey.Render(h.Key)+" "+v.styles.HelpDesc.Render(h.Desc))
	}
	return v.styles.Help.Render(strings.Join(parts, " • "))
}

func (v *DashboardView) renderHelp() string {
	k := v.keys
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.helpLine(k.Help)
	}
	return v.helpLine(k.Tab, k.Done, k.Delete, k.Refresh, k.Logout, k.Quit)
}

func (v *DashboardView) renderHelpPopup() string {
	s := v.styles
	k := v.keys
	contentWidth := styles.ContentWidth(v.width)

	rows := []string{s.Title.Render("Keyboard Shortcuts"), ""}
	for _, b := range []key.Binding{k.Tab, k.Up, k.Down, k.Done, k.Delete, k.Refresh, k.Logout, k.Quit} {
		h := b.Help()
		rows = append(rows, s.HelpKey.Width(8).Render(h.Key)+s.HelpDesc.Render(h.Desc))
	}
	rows = append(rows, "", s.TitleMuted.Render("Press any key to close"))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *DashboardView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Remove Task?"),
		"",
		s.TitleMuted.Render(truncate(v.deleteTargetName, 50)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
