// internal/tui/board.go
//
// The standup board: type a sentence, see how it was interpreted, then save
// or cancel. Requests run as tea.Cmds; their results come back as messages.

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scrumbot/internal/common/errors"
	"scrumbot/internal/common/logger"
	"scrumbot/internal/intake"
	"scrumbot/internal/models"
	"scrumbot/internal/store"
)

type submitDoneMsg struct{ err error }

type confirmDoneMsg struct{ err error }

type sessionMsg struct{ state store.State }

type sessionClosedMsg struct{}

type subscribedMsg struct{ updates <-chan store.State }

type sidebarMsg struct {
	state store.State
	err   error
}

// BoardOption customizes NewBoard.
type BoardOption func(*Board)

// WithSession shows the sidebar and user from s and lets ctrl+b toggle it.
func WithSession(s store.Store) BoardOption {
	return func(b *Board) { b.session = s }
}

func WithLogger(l logger.Logger) BoardOption {
	return func(b *Board) { b.logger = l }
}

// Board is the bubbletea model of the standup page.
type Board struct {
	ctx     context.Context
	flow    *intake.Flow
	session store.Store
	logger  logger.Logger

	input   textarea.Model
	spinner spinner.Model

	pending  bool
	sess     store.State
	updates  <-chan store.State
	sessErr  string
	route    string
	width    int
	quitting bool
}

func NewBoard(ctx context.Context, flow *intake.Flow, opts ...BoardOption) *Board {
	ta := textarea.New()
	ta.Placeholder = "Type your daily standup here..."
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.SetWidth(72)
	ta.SetHeight(4)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	b := &Board{
		ctx:     ctx,
		flow:    flow,
		input:   ta,
		spinner: sp,
		width:   80,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.NewNoOpLogger()
	}
	return b
}

// Route is the dashboard route chosen with a navigation action, or "".
func (b *Board) Route() string {
	return b.route
}

func (b *Board) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if b.session != nil {
		cmds = append(cmds, b.subscribe())
	}
	return tea.Batch(cmds...)
}

func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.input.SetWidth(max(20, b.mainWidth()-4))
		return b, nil

	case tea.KeyMsg:
		return b.handleKey(msg)

	case spinner.TickMsg:
		if !b.pending {
			return b, nil
		}
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		return b, cmd

	case submitDoneMsg:
		b.pending = false
		if msg.err == nil && b.flow.Snapshot().State == intake.StateInterpreted {
			b.input.Blur()
		}
		b.logResult("submit", msg.err)
		return b, nil

	case confirmDoneMsg:
		b.pending = false
		b.logResult("confirm", msg.err)
		return b, nil

	case sessionMsg:
		b.sess = msg.state
		b.sessErr = ""
		return b, b.listen()

	case subscribedMsg:
		b.updates = msg.updates
		return b, b.listen()

	case sessionClosedMsg:
		b.updates = nil
		return b, nil

	case sidebarMsg:
		if msg.err != nil {
			b.sessErr = errors.UserMessage(msg.err)
			return b, nil
		}
		b.sess = msg.state
		b.sessErr = ""
		return b, nil
	}

	if b.input.Focused() {
		var cmd tea.Cmd
		b.input, cmd = b.input.Update(msg)
		return b, cmd
	}
	return b, nil
}

func (b *Board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		b.quitting = true
		return b, tea.Quit
	}
	if b.pending {
		return b, nil
	}

	switch key {
	case "ctrl+s":
		return b.submit()
	case "ctrl+b":
		return b, b.toggleSidebar()
	case "esc":
		b.flow.Reset()
		return b, b.input.Focus()
	}

	if b.input.Focused() {
		var cmd tea.Cmd
		b.input, cmd = b.input.Update(msg)
		return b, cmd
	}

	actions := b.flow.Actions()
	switch key {
	case "y":
		if _, ok := intake.Find(actions, intake.ActionAccept); ok {
			return b.confirm(true)
		}
	case "n":
		if _, ok := intake.Find(actions, intake.ActionDecline); ok {
			return b.confirm(false)
		}
	case "v", "enter":
		if a, ok := intake.Find(actions, intake.ActionNavigate); ok {
			b.route = a.Route
			b.quitting = true
			return b, tea.Quit
		}
	case "e", "i":
		return b, b.input.Focus()
	case "q":
		b.quitting = true
		return b, tea.Quit
	}
	return b, nil
}

func (b *Board) submit() (tea.Model, tea.Cmd) {
	sentence := b.input.Value()
	if strings.TrimSpace(sentence) == "" {
		// Sets the inline message without a request.
		_, err := b.flow.Submit(b.ctx, sentence)
		b.logResult("submit", err)
		return b, nil
	}
	b.pending = true
	ctx, flow := b.ctx, b.flow
	return b, tea.Batch(b.spinner.Tick, func() tea.Msg {
		_, err := flow.Submit(ctx, sentence)
		return submitDoneMsg{err: err}
	})
}

func (b *Board) confirm(accept bool) (tea.Model, tea.Cmd) {
	if !accept {
		_, err := b.flow.Confirm(b.ctx, false)
		b.logResult("decline", err)
		return b, nil
	}
	b.pending = true
	ctx, flow := b.ctx, b.flow
	return b, tea.Batch(b.spinner.Tick, func() tea.Msg {
		_, err := flow.Confirm(ctx, true)
		return confirmDoneMsg{err: err}
	})
}

func (b *Board) toggleSidebar() tea.Cmd {
	if b.session == nil {
		b.sess.SidebarOpen = !b.sess.SidebarOpen
		return nil
	}
	ctx, s := b.ctx, b.session
	return func() tea.Msg {
		state, err := s.ToggleSidebar(ctx)
		return sidebarMsg{state: state, err: err}
	}
}

func (b *Board) subscribe() tea.Cmd {
	ctx, s := b.ctx, b.session
	return func() tea.Msg {
		updates, err := s.Subscribe(ctx)
		if err != nil {
			return sidebarMsg{err: err}
		}
		return subscribedMsg{updates: updates}
	}
}

func (b *Board) listen() tea.Cmd {
	updates := b.updates
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		state, ok := <-updates
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionMsg{state: state}
	}
}

func (b *Board) logResult(op string, err error) {
	if err == nil || intake.IsSuperseded(err) {
		return
	}
	b.logger.Debug("Board operation failed", map[string]interface{}{
		"op":    op,
		"code":  string(errors.CodeOf(err)),
		"error": err,
	})
}

func (b *Board) mainWidth() int {
	if b.sess.SidebarOpen {
		return b.width - 26
	}
	return b.width
}

func (b *Board) View() string {
	if b.quitting {
		return ""
	}
	main := b.renderMain()
	if !b.sess.SidebarOpen {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, b.renderSidebar(), main)
}

func (b *Board) renderSidebar() string {
	lines := []string{titleStyle.Render("scrumbot"), ""}
	lines = append(lines, "Standups", "Sprints", "Reports", "Teams", "")
	if b.sess.LoggedIn && b.sess.User != nil {
		lines = append(lines, fmt.Sprintf("%s (#%d)", b.sess.User.Name, b.sess.User.EmployeeID))
	} else {
		lines = append(lines, hintStyle.Render("Not logged in"))
	}
	if b.sessErr != "" {
		lines = append(lines, errorStyle.Render(b.sessErr))
	}
	return sidebarStyle.Render(strings.Join(lines, "\n"))
}

func (b *Board) renderMain() string {
	snap := b.flow.Snapshot()

	var sections []string
	sections = append(sections,
		titleStyle.Render("Daily Standup Board"),
		subtitleStyle.Render("Track, log, and analyze your daily standup updates effortlessly."),
		"",
		b.input.View(),
	)

	if b.pending {
		sections = append(sections, b.spinner.View()+" Processing...")
	}
	if snap.Message != "" {
		sections = append(sections, errorStyle.Render(snap.Message))
	}

	switch {
	case snap.State == intake.StateSaved && snap.Outcome != nil && snap.Outcome.Record != nil:
		sections = append(sections, b.renderSaved(snap.Outcome.Record))
	case snap.State == intake.StateCancelled:
		sections = append(sections, warnStyle.Render(intake.MsgNotSaved))
	case snap.Result != nil && !snap.Busy:
		sections = append(sections, b.renderResult(snap.Result))
	}

	sections = append(sections, b.renderActions(), hintStyle.Render(b.footer()))
	return lipgloss.NewStyle().Width(max(20, b.mainWidth())).Render(strings.Join(sections, "\n"))
}

func (b *Board) renderResult(r *models.InterpretationResult) string {
	lines := []string{
		labelStyle.Render("Assistant Response"),
		labelStyle.Render("Intent:") + " " + r.Intent.String(),
	}
	if len(r.Entities) > 0 {
		lines = append(lines, labelStyle.Render("Entities:"))
		for _, k := range r.EntityKeys() {
			lines = append(lines, fmt.Sprintf("  %s: %s", k, r.Entities[k]))
		}
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (b *Board) renderSaved(rec *models.StandupRecord) string {
	lines := []string{
		successStyle.Render(intake.MsgSaved),
		labelStyle.Render("ID:") + " " + rec.StandupID.String(),
		labelStyle.Render("Intent:") + " " + rec.Intent.String(),
	}
	if len(rec.Entities) > 0 {
		lines = append(lines, labelStyle.Render("Entities:")+" "+models.FormatEntities(rec.Entities))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (b *Board) renderActions() string {
	if b.pending {
		return ""
	}
	var parts []string
	for _, a := range b.flow.Actions() {
		switch a.Kind {
		case intake.ActionAccept:
			parts = append(parts, "[y] "+a.Label)
		case intake.ActionDecline:
			parts = append(parts, "[n] "+a.Label)
		case intake.ActionNavigate:
			parts = append(parts, "[v] "+a.Label)
		case intake.ActionRephrase:
			parts = append(parts, warnStyle.Render(a.Label))
		}
	}
	return strings.Join(parts, "   ")
}

func (b *Board) footer() string {
	if b.input.Focused() {
		return "ctrl+s submit • ctrl+b sidebar • ctrl+c quit"
	}
	return "esc edit • ctrl+s resubmit • ctrl+b sidebar • q quit"
}
