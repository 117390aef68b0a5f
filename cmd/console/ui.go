package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/drifter/internal/campaign"
	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/daylog"
	"github.com/jwebster45206/drifter/pkg/state"
	"github.com/muesli/reflow/wordwrap"
)

const introText = `The DRIFTER is sixty days out from Earth with a skeleton crew and failing systems. Every day the ship's log records what happened aboard. Keep them alive until the end of the voyage.`

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	api       *APIClient
	gameState *state.GameState
	signals   *state.Signals
	showIntro bool

	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	width    int
	height   int

	advancing bool
	status    string
	err       error
}

type advanceMsg struct {
	result *campaign.Result
	err    error
}

type savedMsg struct {
	gameState *state.GameState
	err       error
}

type introMsg struct {
	gameState *state.GameState
	err       error
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // teal
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // red
			Bold(true)

	glowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	deadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")). // dark grey
			Strikethrough(true)

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// NewConsoleUI creates the model. latest, when set, is the log that was just
// produced and is used to highlight the first screen.
func NewConsoleUI(api *APIClient, gs *state.GameState, latest *daylog.DayLog) ConsoleUI {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	vp := viewport.New(80, 20)

	m := ConsoleUI{
		api:       api,
		gameState: gs,
		showIntro: !gs.HasSeenIntro,
		viewport:  vp,
		spinner:   sp,
		status:    "Press n to begin the next day",
	}
	if latest != nil {
		m.status = fmt.Sprintf("Day %d logged", latest.Day)
	}
	return m
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showIntro {
		return m.markIntro()
	}
	return nil
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - headerHeight(m.gameState) - 6
		if m.viewport.Height < 3 {
			m.viewport.Height = 3
		}
		m.ready = true
		m.refreshLog()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "n":
			if m.advancing {
				m.status = "Simulation already in progress"
				return m, nil
			}
			if m.gameState.IsComplete() {
				m.status = "The voyage is over"
				return m, nil
			}
			m.advancing = true
			m.err = nil
			m.status = fmt.Sprintf("Simulating day %d...", m.gameState.CurrentDay+1)
			return m, tea.Batch(m.spinner.Tick, m.advance())
		case "s":
			if m.advancing {
				m.status = "Wait for the day to finish before saving"
				return m, nil
			}
			m.status = "Saving..."
			return m, m.save()
		case "y":
			latest, ok := m.gameState.LatestLog()
			if !ok {
				m.status = "Nothing to copy yet"
				return m, nil
			}
			if err := clipboard.WriteAll(plainDayLog(latest, m.gameState.Characters)); err != nil {
				m.err = fmt.Errorf("clipboard: %w", err)
				return m, nil
			}
			m.status = fmt.Sprintf("Day %d copied to clipboard", latest.Day)
			return m, nil
		}

	case advanceMsg:
		m.advancing = false
		if msg.err != nil {
			var apiErr *APIError
			if errors.As(msg.err, &apiErr) && apiErr.Status == http.StatusConflict {
				m.status = "Ship is busy: " + apiErr.Message
				break
			}
			m.err = msg.err
			m.status = ""
			break
		}
		m.gameState = msg.result.GameState
		m.signals = &msg.result.Signals
		m.status = fmt.Sprintf("Day %d logged", msg.result.Log.Day)
		if msg.result.Log.Fallback {
			m.status += " (communications degraded)"
		}
		m.refreshLog()

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			break
		}
		m.gameState = msg.gameState
		m.status = "Voyage saved"

	case introMsg:
		if msg.err == nil && msg.gameState != nil {
			m.gameState.HasSeenIntro = true
		}

	case spinner.TickMsg:
		if m.advancing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)
	return m, tea.Batch(cmds...)
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(renderHeader(m.gameState, m.signals) + "\n")
	b.WriteString(panelStyle.Render(m.viewport.View()) + "\n")

	switch {
	case m.advancing:
		b.WriteString(m.spinner.View() + " " + loadingStyle.Render(m.status))
	case m.err != nil:
		b.WriteString(dangerStyle.Render("Error: " + m.err.Error()))
	default:
		b.WriteString(m.status)
	}
	b.WriteString("\n" + helpStyle.Render("n: next day • s: save • y: copy log • q: quit"))
	return b.String()
}

// refreshLog re-renders the whole voyage for the current width.
func (m *ConsoleUI) refreshLog() {
	width := m.viewport.Width - 4
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	if m.showIntro {
		content.WriteString(titleStyle.Render("DRIFTER") + "\n")
		content.WriteString(wordwrap.String(introText, width) + "\n\n")
	}
	for _, l := range m.gameState.History {
		content.WriteString(formatDayLog(l, m.gameState.Characters, width) + "\n")
	}
	if e := m.gameState.Ending; e != nil {
		content.WriteString(titleStyle.Render(strings.ToUpper(string(e.Outcome))+": "+e.Title) + "\n")
		content.WriteString(wordwrap.String(e.Description, width) + "\n")
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

func headerHeight(gs *state.GameState) int {
	return 3 + len(gs.Characters)
}

func renderHeader(gs *state.GameState, signals *state.Signals) string {
	var b strings.Builder
	title := fmt.Sprintf("DRIFTER  day %d/%d  %s", gs.CurrentDay, daylog.CampaignLength, gs.Nickname)
	b.WriteString(titleStyle.Render(title))
	if signals != nil && signals.Crisis != nil {
		b.WriteString("  " + dangerStyle.Render("⚠ "+signals.Crisis.Label))
	}
	if signals != nil && signals.Glow {
		b.WriteString("  " + glowStyle.Render("✦"))
	}
	b.WriteString("\n" + renderGauges(gs) + "\n")
	b.WriteString(renderCrew(gs.Characters))
	return b.String()
}

func renderGauges(gs *state.GameState) string {
	r := gs.Resources
	return fmt.Sprintf("O2 %3.0f%%  FOOD %3.0f%%  H2O %3.0f%%  FUEL %3.0f%%  HULL %5.1f%%  MOOD %3.0f",
		r.Oxygen, r.Food, r.Water, r.Fuel, gs.Integrity, gs.Mood)
}

func renderCrew(roster crew.Roster) string {
	lines := make([]string, 0, len(roster))
	for _, c := range roster {
		if c.IsDead {
			line := fmt.Sprintf("%s (%s)", c.Name, c.MBTI)
			if c.DeathDay != nil {
				line += fmt.Sprintf(" died day %d", *c.DeathDay)
			}
			lines = append(lines, deadStyle.Render(line))
			continue
		}
		line := fmt.Sprintf("%s (%s)", c.Name, c.MBTI)
		if len(c.Skills) > 0 {
			skills := make([]string, 0, len(c.Skills))
			for _, s := range c.Skills {
				skills = append(skills, fmt.Sprintf("%s %d", s.Name, s.Level))
			}
			line += " · " + strings.Join(skills, ", ")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func characterName(roster crew.Roster, id string) string {
	if i := roster.Index(id); i >= 0 {
		return roster[i].Name
	}
	return id
}

// formatDayLog renders one day for the log viewport.
func formatDayLog(l daylog.DayLog, roster crew.Roster, width int) string {
	var b strings.Builder
	header := fmt.Sprintf("Day %d", l.Day)
	b.WriteString(dayStyle.Render(header))
	if l.IsDanger {
		label := l.DangerType
		if label == "" {
			label = state.UnknownThreat
		}
		b.WriteString("  " + dangerStyle.Render(strings.ToUpper(label)))
	}
	b.WriteString("\n")

	for _, e := range l.Events {
		b.WriteString(wordwrap.String(fmt.Sprintf("[%s] %s", e.Time, e.Text), width) + "\n")
	}
	for _, d := range l.Dialogues {
		name := characterName(roster, d.CharacterID)
		b.WriteString(speakerStyle.Render(name+":") + " " + wordwrap.String(d.Text, width-len(name)-2) + "\n")
	}
	for _, u := range l.StatusUpdates {
		status := fmt.Sprintf("%s is %s", characterName(roster, u.CharacterID), u.Status)
		if u.IsDead {
			status = dangerStyle.Render(characterName(roster, u.CharacterID) + " did not survive")
		}
		b.WriteString("  " + status + "\n")
	}
	for _, s := range l.SkillUnlocks {
		b.WriteString("  " + glowStyle.Render(fmt.Sprintf("%s learned %s", characterName(roster, s.CharacterID), s.SkillName)) + "\n")
	}
	if opt, ok := l.Choice.Selected(); ok {
		b.WriteString(wordwrap.String(fmt.Sprintf("Choice: %s -> %s (%s)", l.Choice.Scenario, opt.Text, opt.Result), width) + "\n")
	}
	return b.String()
}

// plainDayLog is the unstyled text copied to the clipboard.
func plainDayLog(l daylog.DayLog, roster crew.Roster) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DRIFTER log, day %d\n", l.Day)
	for _, e := range l.Events {
		fmt.Fprintf(&b, "[%s] %s\n", e.Time, e.Text)
	}
	for _, d := range l.Dialogues {
		fmt.Fprintf(&b, "%s: %s\n", characterName(roster, d.CharacterID), d.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m ConsoleUI) advance() tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		result, err := m.api.Advance(context.Background(), id)
		return advanceMsg{result: result, err: err}
	}
}

func (m ConsoleUI) save() tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		gs, err := m.api.Save(context.Background(), id)
		return savedMsg{gameState: gs, err: err}
	}
}

func (m ConsoleUI) markIntro() tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		gs, err := m.api.MarkIntroSeen(context.Background(), id)
		return introMsg{gameState: gs, err: err}
	}
}
