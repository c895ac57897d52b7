package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/progression"
)

const (
	BotName         = "Infamy"
	PlaceHolderText = "Type a message or >>guide ..."
	metaWidth       = 32
	inputHeight     = 3
)

// chatLine is one rendered line of the conversation. Lines with a non-zero
// expiresAt disappear once it passes.
type chatLine struct {
	speaker   string
	text      string
	bot       bool
	failed    bool
	expiresAt time.Time
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int

	lines     []chatLine
	character *CharacterResponse
	charErr   error
	status    string
}

type eventMsg SSEEvent

type streamClosedMsg struct {
	err error
}

type sentMsg struct {
	err error
}

type characterMsg struct {
	character *CharacterResponse
	err       error
}

type expireTickMsg time.Time

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	fadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")) // grey

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(inputHeight)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:       cfg,
		client:       client,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: viewport.New(metaWidth, 20),
		status:       "Connecting...",
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.refreshCharacter(), expireTick())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		chatWidth := max(msg.Width-metaWidth-2, 20)
		vpHeight := max(msg.Height-inputHeight-3, 5)
		m.chatViewport.Width = chatWidth
		m.chatViewport.Height = vpHeight
		m.metaViewport.Height = vpHeight
		m.textarea.SetWidth(msg.Width - 2)
		m.ready = true
		m.renderChat()
		m.renderMeta()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if input == "/quit" {
				return m, tea.Quit
			}
			return m, m.send(input)
		}

	case eventMsg:
		m.applyEvent(SSEEvent(msg))
		m.renderChat()
		if msg.Type == "narration" {
			return m, m.refreshCharacter()
		}
		return m, nil

	case streamClosedMsg:
		m.status = "Event stream closed: " + msg.err.Error()
		return m, nil

	case sentMsg:
		if msg.err != nil {
			m.lines = append(m.lines, chatLine{speaker: "error", text: msg.err.Error(), failed: true})
			m.renderChat()
		}
		return m, nil

	case characterMsg:
		m.character, m.charErr = msg.character, msg.err
		m.renderMeta()
		return m, nil

	case expireTickMsg:
		if m.prune(time.Time(msg)) {
			m.renderChat()
		}
		return m, expireTick()
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *ConsoleUI) applyEvent(ev SSEEvent) {
	switch ev.Type {
	case "connected":
		m.status = fmt.Sprintf("Connected to %s as %s", m.config.ConversationID, m.config.ParticipantID)
	case "message":
		author, _ := ev.Data["author_id"].(string)
		content, _ := ev.Data["content"].(string)
		m.lines = append(m.lines, chatLine{speaker: author, text: content})
	case "narration":
		text, _ := ev.Data["text"].(string)
		line := chatLine{speaker: BotName, text: text, bot: true}
		if ttl, ok := ev.Data["ttl_seconds"].(float64); ok && ttl > 0 {
			line.expiresAt = time.Now().Add(time.Duration(ttl) * time.Second)
		}
		m.lines = append(m.lines, line)
	}
}

// prune drops expired lines and reports whether any were removed.
func (m *ConsoleUI) prune(now time.Time) bool {
	kept := m.lines[:0]
	for _, l := range m.lines {
		if l.expiresAt.IsZero() || now.Before(l.expiresAt) {
			kept = append(kept, l)
		}
	}
	removed := len(kept) != len(m.lines)
	m.lines = kept
	return removed
}

func (m *ConsoleUI) renderChat() {
	if !m.ready {
		return
	}
	width := max(m.chatViewport.Width-4, 10)
	var b strings.Builder
	b.WriteString(titleStyle.Render("INFAMY") + "  " + promptStyle.Render(m.status) + "\n\n")
	for _, l := range m.lines {
		text := wordwrap.String(l.text, width)
		switch {
		case l.failed:
			b.WriteString(errorStyle.Render(text))
		case l.bot && !l.expiresAt.IsZero():
			b.WriteString(speakerStyle.Render(l.speaker) + "\n" + fadingStyle.Render(text))
		case l.bot:
			b.WriteString(speakerStyle.Render(l.speaker) + "\n" + narratorStyle.Render(text))
		default:
			b.WriteString(userStyle.Render(l.speaker+": ") + text)
		}
		b.WriteString("\n\n")
	}
	m.chatViewport.SetContent(b.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) renderMeta() {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CHARACTER") + "\n\n")
	switch {
	case errors.Is(m.charErr, errNotRegistered):
		b.WriteString("Not registered.\nType >>register\n")
	case m.charErr != nil:
		b.WriteString(errorStyle.Render(wordwrap.String(m.charErr.Error(), metaWidth-2)) + "\n")
	case m.character != nil:
		c := m.character
		fmt.Fprintf(&b, "%s\n%s\n\n", c.ID, c.Class)
		fmt.Fprintf(&b, "Level %d\n%d/%d xp\n\n", c.Level, c.Experience, c.Level*progression.LevelStep)
		fmt.Fprintf(&b, "Balance: %d$\n", c.Currency)
		fmt.Fprintf(&b, "Duels: %dW %dL\n\n", c.Duels.Wins, c.Duels.Losses)
		equipped := "Nothing"
		if it, ok := c.Equipped(); ok {
			equipped = it.Name
		}
		fmt.Fprintf(&b, "Equipped:\n%s\n\n", equipped)
		b.WriteString("Skills:\n")
		for _, mastery := range c.Masteries {
			fmt.Fprintf(&b, "• %s %d\n", mastery.Skill, mastery.Level)
		}
	default:
		b.WriteString("Loading...\n")
	}
	m.metaViewport.SetContent(b.String())
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Initializing..."
	}
	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		chatPanelStyle.Render(m.chatViewport.View()),
		metaPanelStyle.Render(m.metaViewport.View()))
	return panels + "\n" + m.textarea.View()
}

func (m ConsoleUI) send(content string) tea.Cmd {
	return func() tea.Msg {
		return sentMsg{err: sendMessage(m.client, m.config.APIBaseURL, chat.MessageRequest{
			ConversationID: m.config.ConversationID,
			AuthorID:       m.config.ParticipantID,
			Content:        content,
		})}
	}
}

func (m ConsoleUI) refreshCharacter() tea.Cmd {
	return func() tea.Msg {
		c, err := getCharacter(m.client, m.config.APIBaseURL, m.config.ParticipantID)
		return characterMsg{character: c, err: err}
	}
}

func expireTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return expireTickMsg(t)
	})
}
