// Package tui is the terminal chat front end.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"carmatch/internal/model"
	"carmatch/internal/service"
)

// ChatPort is the TUI-facing subset of the dialogue service.
type ChatPort interface {
	Handle(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
	Reset(ctx context.Context, sessionID string) (*model.ChatResponse, error)
}

// replyMsg carries the outcome of one dialogue call.
type replyMsg struct {
	resp *model.ChatResponse
	err  error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	port      ChatPort
	sessionID string
	input     textinput.Model
	viewport  viewport.Model
	lines     []string
	status    string
	busy      bool
	ready     bool
}

// New creates a chat model bound to one session.
func New(port ChatPort, sessionID string) Model {
	ti := textinput.New()
	ti.Prompt = "คุณ> "
	ti.Placeholder = "พิมพ์ข้อความแล้วกด Enter (เริ่มใหม่ เพื่อเริ่มต้นใหม่)"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		port:      port,
		sessionID: sessionID,
		input:     ti,
		viewport:  viewport.New(0, 0),
		status:    "กำลังเริ่มต้น...",
		busy:      true,
	}
}

// Init starts the cursor blink and opens the conversation.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.reset())
}

func (m Model) reset() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.port.Reset(context.Background(), m.sessionID)
		return replyMsg{resp: resp, err: err}
	}
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.port.Handle(context.Background(), model.ChatRequest{SessionID: m.sessionID, Message: text})
		return replyMsg{resp: resp, err: err}
	}
}

// Update handles key, resize and reply events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		// header, status and the input line
		reserved := 3 + ih
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil

	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "ผิดพลาด: " + msg.err.Error()
			return m, nil
		}
		m.lines = append(m.lines, RenderResponse(msg.resp))
		m.status = "โหมด: " + msg.resp.Mode
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			m.lines = append(m.lines, userStyle.Render("คุณ: ")+text)
			m.busy = true
			m.status = "กำลังคิด..."
			m.refresh()
			return m, m.send(text)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n\n"))
	m.viewport.GotoBottom()
}

// View renders the transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("carmatch")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

// RenderResponse formats one reply as plain terminal text.
func RenderResponse(resp *model.ChatResponse) string {
	var b strings.Builder
	b.WriteString(botStyle.Render("ระบบ: "))
	b.WriteString(resp.Reply)
	for _, s := range resp.Results {
		fmt.Fprintf(&b, "\n\n%s  %s บาท\n   %s | %s | %s | %s | %s",
			titleStyle.Render(fmt.Sprintf("%d. %s", s.Rank, s.Name)),
			service.PriceText(float64(s.Price)),
			s.EngineText, s.HPText, s.FuelText, s.GearsText, s.DriveText)
		if s.Explanation != "" {
			b.WriteString("\n   " + s.Explanation)
		}
	}
	if resp.Next != "" {
		b.WriteString("\n" + resp.Next)
	}
	return b.String()
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
