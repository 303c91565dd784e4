package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/reinhart/sqlagent/internal/assistant"
)

// --- Palette & Styles ---

var (
	colorText    = lipgloss.Color("#cdd6f4") // Main text
	colorSubtext = lipgloss.Color("#9399b2") // Dimmed text
	colorInput   = lipgloss.Color("#f5e0dc")
	colorUser    = lipgloss.Color("#89b4fa") // Blue (User)
	colorAgent   = lipgloss.Color("#a6e3a1") // Green (Agent)
	colorPrompt  = lipgloss.Color("#94e2d5") // Teal
	colorSpinner = lipgloss.Color("#cba6f7") // Purple
	colorBorder  = lipgloss.Color("#45475a") // Soft gray-blue border
	colorActive  = lipgloss.Color("#f9e2af") // Yellow focus

	styleBase = lipgloss.NewStyle().Foreground(colorText)

	styleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	styleFocusBorder = styleBorder.
				BorderForeground(colorActive)

	styleUserHeader = lipgloss.NewStyle().
			Foreground(colorUser).
			Bold(true).
			MarginTop(1)

	styleAgentHeader = lipgloss.NewStyle().
				Foreground(colorAgent).
				Bold(true).
				MarginTop(1)

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f38ba8")). // Red
			Bold(true)

	styleStatus = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Italic(true)
)

const (
	agentName    = "SQLAgent"
	askTimeout   = 180 * time.Second
	statusWindow = 3
)

// Asker is the part of the agent the UI talks to
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
	Updates() <-chan assistant.StatusUpdate
}

// isExit reports whether input asks to leave the session
func isExit(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), "exit")
}

type State int

const (
	StateReady State = iota
	StateThinking
)

type Model struct {
	agent         Asker
	textarea      textarea.Model
	viewport      viewport.Model
	spinner       spinner.Model
	state         State
	statusHistory []string
	transcript    string

	// Layout
	width  int
	height int
}

// newInput builds the question box. It is recreated after every question
// so the textarea does not keep its scroll position.
func newInput(width int) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question about the data, or type exit..."
	ta.Focus()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Prompt = ""      // The prompt is drawn outside the textarea
	ta.CharLimit = 1000 // Prevent massive inputs

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle() // No extra bg
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorSubtext)
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(colorPrompt)
	ta.FocusedStyle.Text = lipgloss.NewStyle().Foreground(colorInput)

	if width > 4 {
		ta.SetWidth(width - 4)
	}
	return ta
}

func NewModel(agent Asker) Model {
	welcome := styleAgentHeader.Render(agentName) + "\n" +
		styleBase.Render("Welcome! Ask me anything about the database.")
	vp := viewport.New(80, 20)
	vp.SetContent(welcome)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorSpinner)

	return Model{
		agent:         agent,
		textarea:      newInput(0),
		viewport:      vp,
		spinner:       s,
		state:         StateReady,
		statusHistory: []string{},
		transcript:    welcome,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

type agentMsg struct {
	response string
	err      error
}

type statusMsg struct {
	msg string
}

func listenForUpdates(sub <-chan assistant.StatusUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-sub
		if !ok {
			return nil
		}
		return statusMsg{msg: update.Message}
	}
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()

		resp, err := m.agent.Ask(ctx, question)
		return agentMsg{response: resp, err: err}
	}
}

// appendView adds rendered text below the conversation and scrolls to it
func (m *Model) appendView(text string) {
	m.transcript += text
	m.viewport.SetContent(m.transcript)
	m.viewport.GotoBottom()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Borders + status line + input box
		viewportHeight := max(msg.Height-7, 5)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = viewportHeight
		m.textarea.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if msg.Alt || m.state != StateReady {
				break
			}
			question := m.textarea.Value()
			if strings.TrimSpace(question) == "" {
				break
			}
			if isExit(question) {
				return m, tea.Quit
			}

			m.appendView("\n" + styleUserHeader.Render("You") + "\n" + styleBase.Render(question) + "\n")
			m.state = StateThinking
			m.statusHistory = []string{"Analysing request..."}
			m.textarea = newInput(m.width)

			// The Enter key must not reach the fresh textarea
			return m, tea.Batch(listenForUpdates(m.agent.Updates()), m.ask(question))
		}

	case statusMsg:
		m.statusHistory = append(m.statusHistory, msg.msg)
		if len(m.statusHistory) > statusWindow {
			m.statusHistory = m.statusHistory[len(m.statusHistory)-statusWindow:]
		}
		if m.state == StateThinking {
			cmds = append(cmds, listenForUpdates(m.agent.Updates()))
		}

	case agentMsg:
		m.state = StateReady

		body := RenderMarkdown(msg.response, m.viewport.Width-2)
		if msg.err != nil {
			body = styleError.Render(fmt.Sprintf("Error: %v", msg.err))
		}
		separator := lipgloss.NewStyle().Foreground(colorBorder).Render(strings.Repeat("─", m.width/2))
		m.appendView(styleAgentHeader.Render(agentName) + "\n" + body + "\n\n" + separator + "\n")

		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		m.textarea.Focus()

		// Skip the normal update flow so the scroll position sticks
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.state == StateThinking {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	// Stale key events are ignored while a question is running
	if m.state == StateReady {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	chatView := styleBorder.Width(m.width - 2).Height(m.viewport.Height + 2).Render(m.viewport.View())

	var statusStr string
	if m.state == StateThinking {
		fullStatus := strings.Join(m.statusHistory, "  ➜  ")
		statusStr = fmt.Sprintf(" %s %s", m.spinner.View(), styleStatus.Render(fullStatus))
	} else {
		statusStr = styleStatus.Render(" Ready.")
	}
	statusView := lipgloss.NewStyle().Width(m.width).PaddingLeft(1).Render(statusStr)

	prompt := lipgloss.NewStyle().Foreground(colorPrompt).Render("❯ ")
	inputContent := lipgloss.JoinHorizontal(lipgloss.Top, prompt, m.textarea.View())
	inputView := styleFocusBorder.Width(m.width - 2).Render(inputContent)

	return lipgloss.JoinVertical(lipgloss.Left,
		chatView,
		statusView,
		inputView,
	)
}
