package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"texpatch/internal/app"
	"texpatch/internal/llm"
	"texpatch/internal/suggestion"
	"texpatch/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	borderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// --- Messages ---
type proposalMsg struct {
	s   *suggestion.Suggestion
	err error
}

type fallbackMsg struct {
	id   int
	resp *llm.FallbackResponse
	err  error
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

// --- Model ---
type state int

const (
	stateLoading state = iota
	stateReview
	stateFallback
	stateDone
)

type Model struct {
	app      *app.App
	coord    *suggestion.Coordinator
	spinner  spinner.Model
	viewport viewport.Model
	state    state
	final    string
	err      error
	width    int
	height   int
	ready    bool
}

func New(a *app.App) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		app:     a,
		coord:   a.Coordinator(),
		spinner: s,
		state:   stateLoading,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadProposal)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case proposalMsg:
		return m.handleProposal(msg)

	case fallbackMsg:
		// A reply for a suggestion that is no longer waiting is dropped
		// inside the coordinator; re-render whatever state remains.
		m.coord.CompleteFallback(msg.id, msg.resp, msg.err)
		if m.coord.State() == suggestion.StateAwaitingDecision {
			m.state = stateReview
			m.setPreview()
		}
		return m, nil

	case errorMsg:
		m.err = msg.err
		m.state = stateDone
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state == stateLoading || m.state == stateFallback {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.state == stateReview {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "r":
		if !m.coord.State().Terminal() && m.coord.State() != suggestion.StateIdle {
			_ = m.coord.Reject()
			m.final = warnStyle.Render("Suggestion rejected. Document unchanged.")
		}
		m.state = stateDone
		return m, tea.Quit

	case "a", "enter":
		if m.state != stateReview || !m.coord.CanApply() {
			return m, nil
		}
		return m.apply()
	}

	if m.state == stateReview {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleProposal(msg proposalMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		m.state = stateDone
		return m, tea.Quit
	}

	switch m.coord.State() {
	case suggestion.StateInvalid:
		m.final = errorStyle.Render("Proposal rejected: " + msg.s.ValidationError)
		m.state = stateDone
		return m, tea.Quit
	case suggestion.StateSimulationFailed:
		m.final = errorStyle.Render("Suggestion cannot be applied: " + msg.s.Diagnostic)
		m.state = stateDone
		return m, tea.Quit
	}

	m.state = stateReview
	m.setPreview()
	return m, nil
}

// apply resolves the Apply decision. A diff failure enters the fallback
// round-trip instead of finishing.
func (m Model) apply() (tea.Model, tea.Cmd) {
	state, err := m.coord.Apply()
	if err != nil {
		m.err = err
		m.state = stateDone
		return m, tea.Quit
	}

	switch state {
	case suggestion.StateApplied:
		if err := m.app.SaveApplied(); err != nil {
			m.err = err
			m.state = stateDone
			return m, tea.Quit
		}
		m.final = successStyle.Render(fmt.Sprintf("Suggestion applied (%s mode).", m.coord.Active().Mode))
		m.state = stateDone
		return m, tea.Quit

	case suggestion.StateFallbackRequested:
		m.state = stateFallback
		return m, tea.Batch(m.spinner.Tick, m.requestFallback())

	default:
		m.final = errorStyle.Render("Apply failed: " + m.coord.Active().Diagnostic)
		m.state = stateDone
		return m, tea.Quit
	}
}

// requestFallback starts the asynchronous rewrite request. The identity
// token travels with the response so a late reply cannot touch a newer
// suggestion.
func (m Model) requestFallback() tea.Cmd {
	ctx, id, conversation, modelID, err := m.coord.BeginFallback(context.Background())
	if err != nil {
		return func() tea.Msg { return errorMsg{err} }
	}
	client := m.coord.Client()
	return func() tea.Msg {
		resp, reqErr := client.RequestSearchReplace(ctx, conversation, modelID)
		return fallbackMsg{id: id, resp: resp, err: reqErr}
	}
}

func (m Model) loadProposal() tea.Msg {
	p, err := m.app.LoadProposal()
	if err != nil {
		return proposalMsg{err: err}
	}
	s, err := m.coord.Propose(p)
	return proposalMsg{s: s, err: err}
}

func (m *Model) setPreview() {
	m.resizeViewport()
	m.viewport.SetContent(m.coord.Active().Preview)
	m.viewport.GotoTop()
}

func (m *Model) resizeViewport() {
	if m.width == 0 {
		return
	}
	headerHeight := lipgloss.Height(m.renderHeader())
	footerHeight := 2
	h := m.height - headerHeight - footerHeight
	if h < 3 {
		h = 3
	}
	if !m.ready {
		m.viewport = viewport.New(m.width-4, h)
		m.ready = true
	} else {
		m.viewport.Width = m.width - 4
		m.viewport.Height = h
	}
}

func (m Model) View() string {
	switch m.state {
	case stateLoading:
		return fmt.Sprintf("%s Reading proposal...", m.spinner.View())
	case stateFallback:
		return fmt.Sprintf("%s Diff failed to apply; requesting a search/replace rewrite...", m.spinner.View())
	case stateReview:
		return m.renderReview()
	case stateDone:
		if m.err != nil {
			return errorStyle.Render("Error: "+m.err.Error()) + "\n"
		}
		return m.final + "\n"
	default:
		return ""
	}
}

func (m Model) renderReview() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if m.ready {
		b.WriteString(borderStyle.Render(m.viewport.View()))
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	return reviewHeader(m.coord.Active(), m.coord.FallbackError())
}

func reviewHeader(s *suggestion.Suggestion, fallbackErr string) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Suggestion preview (%s mode)", modeLabel(s.Mode))))
	b.WriteString("\n")
	if s.Explanation != "" {
		b.WriteString(faintStyle.Render(s.Explanation))
		b.WriteString("\n")
	}
	if fallbackErr != "" {
		b.WriteString(errorStyle.Render("Fallback request failed: " + fallbackErr))
		b.WriteString("\n")
	}
	if s.Preview == "" && s.Diagnostic != "" {
		b.WriteString(errorStyle.Render("Simulation failed: " + s.Diagnostic))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFooter() string {
	if m.coord.CanApply() {
		return faintStyle.Render("a apply · r reject · q quit · ↑/↓ scroll")
	}
	return faintStyle.Render("r reject · q quit")
}

func modeLabel(mode model.Mode) string {
	switch mode {
	case model.ModeDiff:
		return "diff"
	case model.ModeSearchReplace:
		return "search/replace"
	default:
		return "full document"
	}
}
