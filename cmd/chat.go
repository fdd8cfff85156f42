package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/survivalbot/internal/config"
	"github.com/Yates-Labs/survivalbot/internal/orchestrator"
	"github.com/Yates-Labs/survivalbot/internal/server"
)

const refreshCommand = "/refresh"

var errNoKnowledge = errors.New("context is not loaded yet, try /refresh")

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive survival chatbot",
	Long: `Start the interactive survival chatbot.

The survival world is fetched once at start. Type a question and press enter;
type /refresh to fetch the world again. Scroll a long answer with pgup/pgdown.
Press esc or ctrl+c to quit.

Required environment variables:
  GROQ_API_KEY       - API key for the chat-completion endpoint; the shell
                       does not start without it (llm.provider "openai")
  OPENAI_API_KEY     - only when embedding.provider is "openai"

Logs are written to logging.file when it is set and discarded otherwise.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, closeLog, err := getChatLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	pipeline, err := orchestrator.NewPipeline(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Close()

	p := tea.NewProgram(newChatModel(ctx, pipeline))
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

// getChatLogger keeps the terminal clean: logs go to logging.file or nowhere.
func getChatLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if cfg.Logging.File == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	ll := slog.LevelInfo
	_ = ll.UnmarshalText([]byte(cfg.Logging.Level))
	log := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: ll}))
	return log, func() { _ = f.Close() }, nil
}

// Dracula color scheme.
var (
	Comment = lipgloss.Color("#6272a4")
	Cyan    = lipgloss.Color("#8be9fd")
	Green   = lipgloss.Color("#50fa7b")
	Pink    = lipgloss.Color("#ff79c6")
	Purple  = lipgloss.Color("#bd93f9")
	Red     = lipgloss.Color("#ff5555")
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(Comment).Italic(true)
	labelStyle    = lipgloss.NewStyle().Foreground(Pink).Bold(true).MarginTop(1)
	responseStyle = lipgloss.NewStyle().Foreground(Cyan).Padding(0, 1)
	warningStyle  = lipgloss.NewStyle().Foreground(Red)
	statusStyle   = lipgloss.NewStyle().Foreground(Green)
)

type knowledgeMsg struct {
	knowledge *orchestrator.Knowledge
	err       error
}

type answerMsg struct {
	result *orchestrator.Result
	err    error
}

type chatModel struct {
	ctx   context.Context
	asker server.Asker

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	knowledge *orchestrator.Knowledge
	warnings  []string
	busy      bool
	status    string
	response  string
	failed    bool
	width     int
}

func newChatModel(ctx context.Context, asker server.Asker) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Enter your question"
	ti.Prompt = "┃ "
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Pink)

	return chatModel{
		ctx:      ctx,
		asker:    asker,
		input:    ti,
		viewport: viewport.New(80, 15),
		spinner:  sp,
		busy:     true,
		status:   "Fetching the survival world...",
		width:    80,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.load(),
	)
}

func (m chatModel) load() tea.Cmd {
	return func() tea.Msg {
		k, err := m.asker.LoadContext(m.ctx)
		return knowledgeMsg{knowledge: k, err: err}
	}
}

func (m chatModel) ask(query string) tea.Cmd {
	k := m.knowledge
	return func() tea.Msg {
		if k == nil {
			return answerMsg{err: errNoKnowledge}
		}
		res, err := m.asker.Ask(m.ctx, k, query, 0)
		return answerMsg{result: res, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case knowledgeMsg:
		m.busy = false
		m.status = ""
		if msg.err != nil {
			m.warnings = []string{"Error loading context: " + msg.err.Error()}
			return m, nil
		}
		m.knowledge = msg.knowledge
		m.warnings = msg.knowledge.Snapshot.WarningMessages()
		m.status = fmt.Sprintf("Loaded %d context sentences.", len(msg.knowledge.Contexts))
		return m, nil
	case answerMsg:
		m.busy = false
		m.status = ""
		switch {
		case msg.err != nil:
			m.response = "Error generating response: " + msg.err.Error()
			m.failed = true
		case msg.result.Answer != nil:
			m.response = msg.result.Answer.Text
			m.failed = msg.result.Answer.Failed
		}
		m.setResponse()
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 4
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-10-len(m.warnings), 3)
		m.setResponse()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "enter":
			v := strings.TrimSpace(m.input.Value())
			if v == "" || m.busy {
				// Don't send empty messages.
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			if v == refreshCommand {
				m.status = "Fetching the survival world..."
				return m, m.load()
			}
			m.status = "Thinking..."
			return m, m.ask(v)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *chatModel) setResponse() {
	if m.response == "" {
		m.viewport.SetContent("")
		return
	}
	style := responseStyle
	if m.failed {
		style = style.Foreground(Red)
	}
	m.viewport.SetContent(style.Render(wordwrap.String(m.response, max(m.width-4, 20))))
	m.viewport.GotoTop()
}

func (m chatModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Survival Chatbot"))
	sb.WriteString("\n")
	sb.WriteString(subtitleStyle.Render("Ask me anything about survival!"))
	sb.WriteString("\n\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")

	if m.busy {
		sb.WriteString(m.spinner.View() + " " + m.status + "\n")
	} else if m.status != "" {
		sb.WriteString(statusStyle.Render(m.status) + "\n")
	}
	for _, w := range m.warnings {
		sb.WriteString(warningStyle.Render("! "+w) + "\n")
	}

	if m.response != "" {
		sb.WriteString(labelStyle.Render("Chatbot Response:"))
		sb.WriteString("\n")
		sb.WriteString(m.viewport.View())
		sb.WriteString("\n")
	}
	return sb.String()
}
