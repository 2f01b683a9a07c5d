// Package display provides the terminal renderer using Bubble Tea.
//
// The [UI] type keeps a status bar (mood, stars, XP, chest, flame, mic)
// and an input prompt at the bottom of the terminal. Tiger speech and
// other output is printed above the rendered area via Program.Println,
// so concurrent writes never garble the display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/session"
	"github.com/hammamikhairi/vocalpal/internal/shop"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	starStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	xpStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#bbf7d0"))

	flameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fdba74"))

	micOnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5")).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle colours the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fdba74"))

	tigerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

const promptText = "you> "

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may call
// [UI.Show], [UI.Println] and read from [UI.InputChan] once
// [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool
}

// NewUI creates the display. Call Run to start.
func NewUI() *UI {
	return &UI{
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Show pushes a session state to the status bar. New bubble text is
// printed as tiger speech. Safe to use as a session observer.
func (u *UI) Show(st session.State) {
	if u.program != nil && !u.done.Load() {
		u.program.Send(stateMsg(st))
	}
}

// Println prints a line above the prompt. Thread-safe. Before the program
// starts it falls back to fmt.Println.
func (u *UI) Println(a ...any) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// InputChan returns completed input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// ── Styled print helpers ─────────────────────────────────────────

// PrintTiger prints a line spoken by the tiger.
func (u *UI) PrintTiger(text string) {
	u.Println(tigerLine(text))
}

// PrintHint prints a dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintVoice prints a recognised utterance.
func (u *UI) PrintVoice(text string) {
	u.Println(secondaryStyle.Render("[voice] ") + primaryStyle.Render(text))
}

// PrintShop prints the catalog with prices and ownership.
func (u *UI) PrintShop(v shop.View) {
	u.Println(RenderShop(v))
}

// PrintHelp lists the prompt commands.
func (u *UI) PrintHelp() {
	for _, l := range helpLines {
		u.PrintHint(l)
	}
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	ti := textinput.New()
	// Plain-text prompt: styled prompts break textinput's width math.
	ti.Prompt = promptText
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Placeholder = "say something to your tiger, or /help"
	ti.Focus()
	ti.CharLimit = 300
	ti.Width = 60

	m := model{
		input:   ti,
		inputCh: u.inputCh,
		readyCh: u.readyCh,
	}

	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	state   session.State
	hasSt   bool
	width   int
}

type stateMsg session.State

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		signalReady(m.readyCh),
		tea.SetWindowTitle("VocalPal"),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) == "" {
				return m, nil
			}
			m.inputCh <- v
			return m, tea.Println(promptStyle.Render("you") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(v))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(promptText) {
			m.input.Width = msg.Width - len(promptText)
		}
		return m, nil

	case stateMsg:
		st := session.State(msg)
		var cmds []tea.Cmd
		if st.Bubble != "" && (!m.hasSt || st.Bubble != m.state.Bubble) {
			cmds = append(cmds, tea.Println(tigerLine(st.Bubble)))
		}
		if !m.hasSt || st.Stars != m.state.Stars || st.Level != m.state.Level {
			cmds = append(cmds, tea.SetWindowTitle(fmt.Sprintf("VocalPal · %d stars · level %d", st.Stars, st.Level)))
		}
		m.state, m.hasSt = st, true
		if len(cmds) == 0 {
			return m, nil
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	if m.hasSt {
		b.WriteString(RenderStatus(m.state, m.width))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

// ── Rendering ────────────────────────────────────────────────────

var moodFaces = map[domain.Mood]string{
	domain.MoodIdle:     "(=^.^=)",
	domain.MoodSpeaking: "(=^o^=)",
	domain.MoodHappy:    "(=^w^=)",
	domain.MoodWave:     "(=^.^=)/",
}

var chestIcons = map[domain.ChestState]string{
	domain.ChestClosed:  "[chest]",
	domain.ChestCracked: "[chest!]",
	domain.ChestOpen:    "[CHEST!!]",
}

// RenderStatus renders the status bar for st at the given width.
func RenderStatus(st session.State, width int) string {
	parts := []string{
		labelStyle.Render(moodFaces[st.Mood] + " " + st.Mood.String()),
		starStyle.Render(fmt.Sprintf("★ %d", st.Stars)),
		xpStyle.Render(fmt.Sprintf("XP %d/%d  Lv %d", st.XP, domain.XPPerLevel, st.Level)),
		labelStyle.Render(chestIcons[st.Chest]),
		flameStyle.Render(fmt.Sprintf("flame %.1fx", st.Flame)),
	}
	for _, ev := range st.Rewards {
		parts = append(parts, starStyle.Render(fmt.Sprintf("+%d %s", ev.Amount, ev.Kind)))
	}
	if st.Listening {
		parts = append(parts, micOnStyle.Render("● listening"))
	}
	if st.SyncPending {
		parts = append(parts, pendingStyle.Render("saving later"))
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "
	if width <= 0 {
		width = 80
	}
	return barBg.Width(width).Render(content)
}

// RenderShop lists the catalog for the prompt.
func RenderShop(v shop.View) string {
	var b strings.Builder
	b.WriteString(starStyle.Render(fmt.Sprintf("  Tiger shop  (you have ★ %d)", v.Stars)))
	for _, l := range v.Items {
		status := fmt.Sprintf("★ %d", l.Cost)
		switch {
		case l.Equipped:
			status = "wearing"
		case l.Unlocked && l.Type == shop.ItemStory:
			status = "yours"
		case l.Unlocked:
			status = "owned"
		}
		b.WriteByte('\n')
		b.WriteString(primaryStyle.Render(fmt.Sprintf("  %-14s %-28s %-8s", l.ID, l.Name, status)))
		b.WriteString(secondaryStyle.Render(l.Description))
	}
	return b.String()
}

func tigerLine(text string) string {
	return tigerStyle.Render("  tiger: " + text)
}

// ── Commands ─────────────────────────────────────────────────────

// CommandKind is what a prompt line asks for.
type CommandKind int

const (
	CmdSay CommandKind = iota
	CmdMic
	CmdShop
	CmdBuy
	CmdWear
	CmdHelp
	CmdQuit
	CmdUnknown
)

// Command is a parsed prompt line.
type Command struct {
	Kind CommandKind
	Arg  string
}

var helpLines = []string{
	"Type anything to talk to your tiger.",
	"/mic         start or stop listening",
	"/shop        see what stars can buy",
	"/buy <id>    unlock an item",
	"/wear <id>   put an item on or take it off",
	"/quit        say goodbye",
}

// ParseCommand maps a prompt line to a command. Lines that do not start
// with "/" are things said to the tiger.
func ParseCommand(line string) Command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CmdSay, Arg: line}
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "mic", "m":
		return Command{Kind: CmdMic}
	case "shop", "s":
		return Command{Kind: CmdShop}
	case "buy", "unlock":
		if arg == "" {
			return Command{Kind: CmdUnknown, Arg: line}
		}
		return Command{Kind: CmdBuy, Arg: strings.ToLower(arg)}
	case "wear", "equip":
		if arg == "" {
			return Command{Kind: CmdUnknown, Arg: line}
		}
		return Command{Kind: CmdWear, Arg: strings.ToLower(arg)}
	case "help", "h", "?":
		return Command{Kind: CmdHelp}
	case "quit", "q", "exit", "bye":
		return Command{Kind: CmdQuit}
	default:
		return Command{Kind: CmdUnknown, Arg: line}
	}
}
