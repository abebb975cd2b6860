// Package tui is the interactive chat client. It renders the running
// transcript, answers questions asynchronously and keeps a session cost
// ledger visible in the status line.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/midiacode/contentchat/internal/chat"
	"github.com/midiacode/contentchat/internal/pricing"
)

// AnswerFunc produces the answer for one question. The TUI does not care
// which chat variant is behind it.
type AnswerFunc func(ctx context.Context, question string) (chat.Answer, error)

type entry struct {
	question string
	answer   chat.Answer
	err      error
}

type answerMsg entry

// Model is the Bubble Tea model for the chat client.
type Model struct {
	answer   AnswerFunc
	ledger   *pricing.Ledger
	input    textinput.Model
	viewport viewport.Model
	entries  []entry
	status   string
	ready    bool
	waiting  bool
	title    string
}

// New creates a new chat model. The ledger accumulates the session total
// across questions.
func New(answer AnswerFunc, ledger *pricing.Ledger, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Digite sua pergunta e pressione Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if title == "" {
		title = "Midiacode Chat"
	}
	return Model{
		answer:   answer,
		ledger:   ledger,
		input:    ti,
		viewport: vp,
		status:   "Pronto. Faça uma pergunta.",
		title:    title,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case answerMsg:
		m.waiting = false
		m.entries = append(m.entries, entry(msg))
		if msg.err != nil {
			m.status = "Erro: " + msg.err.Error()
		} else {
			m.ledger.Add(msg.answer.Total())
			m.status = fmt.Sprintf("Custo da pergunta: US$ %.6f | Sessão: US$ %.6f",
				msg.answer.Total(), m.ledger.Total())
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.input.SetValue("")
				m.waiting = true
				m.status = "Gerando resposta..."
				return m, m.askCmd(q)
			}
		case "up":
			m.viewport.LineUp(3)
			return m, nil
		case "down":
			m.viewport.LineDown(3)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// askCmd answers the question off the event loop so the UI stays responsive.
func (m Model) askCmd(question string) tea.Cmd {
	answer := m.answer
	return func() tea.Msg {
		got, err := answer(context.Background(), question)
		return answerMsg{question: question, answer: got, err: err}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Carregando..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(m.title)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return "Nenhuma pergunta ainda."
	}
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("Você: " + e.question))
		b.WriteString("\n")
		if e.err != nil {
			b.WriteString(errorStyle.Render("Erro: " + e.err.Error()))
			continue
		}
		b.WriteString(e.answer.Text)
		b.WriteString("\n")
		b.WriteString(costStyle.Render(fmt.Sprintf("custo: US$ %.6f (índice US$ %.6f, resposta US$ %.6f)",
			e.answer.Total(), e.answer.BuildCost, e.answer.AnswerCost)))
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	costStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
