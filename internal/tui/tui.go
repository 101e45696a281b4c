package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/narrator"
	"github.com/tatianab/mahes-quest/internal/progression"
	"github.com/tatianab/mahes-quest/internal/session"
)

type setupStep int

const (
	stepName setupStep = iota
	stepAvatar
	stepDifficulty
)

type model struct {
	ctx          context.Context
	sess         *session.Session
	narr         *narrator.Narrator
	textInput    textinput.Model
	viewport     viewport.Model
	gameLog      string
	width        int
	height       int
	step         setupStep
	draft        models.Player
	confirmReset bool
	timerID      int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#1F5F8B")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FD1AE")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true).
			Underline(true)
)

func NewModel(ctx context.Context, sess *session.Session, narr *narrator.Narrator) model {
	ti := textinput.New()
	ti.Placeholder = "Type a command..."
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 40

	m := model{
		ctx:       ctx,
		sess:      sess,
		narr:      narr,
		textInput: ti,
		viewport:  viewport.New(80, 20),
	}
	m.appendScreen()
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

type tickMsg struct {
	id int
}

type epilogueMsg struct {
	text string
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			line := m.textInput.Value()
			if line == "" && m.sess.Phase() != session.PhaseSetup {
				return m, nil
			}
			m.textInput.Reset()
			m.appendLine(userStyle.Width(m.logWidth()).Render("> " + line))
			cmd = m.handle(line)
			m.refresh()
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 6
		m.refresh()

	case tickMsg:
		if msg.id != m.timerID {
			return m, nil
		}
		cmd = m.tick()
		m.refresh()
		return m, cmd

	case epilogueMsg:
		m.appendLine(gameStyle.Italic(true).Width(m.logWidth()).Render(msg.text))
		m.refresh()
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m model) View() string {
	mainView := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		m.renderState(),
	)

	help := helpStyle.Render(m.helpLine())

	s := lipgloss.JoinVertical(lipgloss.Left,
		mainView,
		"\n"+m.textInput.View(),
		"\n"+help,
	)
	return "\n" + s + "\n"
}

// handle runs one line of input against the session.
func (m *model) handle(line string) tea.Cmd {
	if m.sess.Phase() == session.PhaseSetup {
		return m.handleSetup(line)
	}
	command, err := ParseCommand(line)
	if err != nil {
		m.appendError(fmt.Errorf("%w. Type 'help' for the list of commands", err))
		return nil
	}
	if command.Verb != VerbYes && command.Verb != VerbReset {
		m.confirmReset = false
	}

	before := m.sess.Phase()
	switch command.Verb {
	case VerbQuit:
		return tea.Quit
	case VerbHelp:
		m.appendLine(helpStyle.Render(commandHelp))
		return nil
	case VerbReset:
		if err := m.sess.ResetData(m.ctx, false); errors.Is(err, session.ErrConfirmationRequired) {
			m.confirmReset = true
			m.appendLine(errorStyle.Render("This deletes your saved journey and the leaderboard. Type 'yes' to confirm or 'no' to cancel."))
		}
		return nil
	case VerbYes:
		if !m.confirmReset {
			m.appendError(errors.New("there is nothing to confirm"))
			return nil
		}
		m.confirmReset = false
		err = m.sess.ResetData(m.ctx, true)
		m.step = stepName
	case VerbNo:
		if m.confirmReset {
			m.confirmReset = false
			m.appendLine(noticeStyle.Render("Reset cancelled."))
		}
		return nil
	case VerbStart:
		err = m.sess.Start(m.ctx)
	case VerbBoard:
		err = m.sess.ShowLeaderboard(m.ctx)
	case VerbClose:
		err = m.sess.CloseLeaderboard(m.ctx)
	case VerbRegion:
		region, convErr := strconv.Atoi(command.Arg)
		if convErr != nil {
			m.appendError(fmt.Errorf("choose a region by number, for example 'region 1'"))
			return nil
		}
		err = m.sess.SelectRegion(m.ctx, region)
	case VerbAnswer:
		err = m.sess.SubmitAnswer(m.ctx, command.Arg)
	case VerbHint:
		var hint string
		hint, err = m.sess.UseHint(m.ctx)
		if err == nil {
			m.appendLine(noticeStyle.Render("Hint: ") + gameStyle.Render(hint))
		}
	case VerbContinue:
		err = m.sess.Continue(m.ctx)
	case VerbSave:
		err = m.sess.SaveRun(m.ctx)
	case VerbAgain:
		err = m.sess.PlayAgain(m.ctx)
		m.step = stepName
	}
	if err != nil {
		m.appendError(err)
		return nil
	}
	return m.afterIntent(before)
}

func (m *model) handleSetup(line string) tea.Cmd {
	if strings.TrimSpace(line) == "/quit" {
		return tea.Quit
	}
	switch m.step {
	case stepName:
		p := models.Player{Name: line, Avatar: models.Avatars[0], Difficulty: models.DifficultyAdventure}.Normalize()
		if err := p.Validate(); err != nil {
			m.appendError(err)
			return nil
		}
		m.draft.Name = p.Name
		m.step = stepAvatar
	case stepAvatar:
		avatar, err := ParseAvatar(line)
		if err != nil {
			m.appendError(err)
			return nil
		}
		m.draft.Avatar = avatar
		m.step = stepDifficulty
	case stepDifficulty:
		difficulty, err := ParseDifficulty(line)
		if err != nil {
			m.appendError(err)
			return nil
		}
		m.draft.Difficulty = difficulty
		before := m.sess.Phase()
		err = m.sess.SubmitProfile(m.ctx, m.draft)
		m.step = stepName
		m.draft = models.Player{}
		if err != nil {
			m.appendError(err)
			m.appendScreen()
			return nil
		}
		return m.afterIntent(before)
	}
	m.appendScreen()
	return nil
}

// afterIntent reports what the last intent changed and schedules follow-ups.
func (m *model) afterIntent(before session.Phase) tea.Cmd {
	v := m.sess.View()
	for _, n := range v.Notices {
		m.appendLine(noticeStyle.Render("* " + n.Message))
	}
	if v.SaveError != "" {
		m.appendError(fmt.Errorf("progress could not be saved: %s", v.SaveError))
	}
	if v.Phase == before && v.Phase != session.PhaseMap {
		return nil
	}
	m.appendScreen()

	switch v.Phase {
	case session.PhaseChallenge:
		if v.Challenge.TimeLimit > 0 {
			m.timerID++
			return tick(m.timerID)
		}
	case session.PhaseEnding:
		if m.narr.Enabled() {
			return m.narrate(v.State, v.Ending.Ending)
		}
	}
	return nil
}

func (m *model) tick() tea.Cmd {
	m.sess.Tick(m.ctx)
	v := m.sess.View()
	switch {
	case v.Phase == session.PhaseFeedback:
		m.appendScreen()
		return nil
	case v.Phase != session.PhaseChallenge:
		return nil
	case v.Challenge.Expired:
		if m.sess.Policy() == session.TimeoutBlock {
			m.appendLine(errorStyle.Render("Time's up! This challenge is closed for now. Type 'continue' to return to the map."))
		} else {
			m.appendLine(errorStyle.Render("Time's up! You can still answer, but the moment has passed."))
		}
		return nil
	}
	return tick(m.timerID)
}

func tick(id int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{id: id}
	})
}

func (m *model) narrate(state models.GameState, ending models.Ending) tea.Cmd {
	ctx, narr := m.ctx, m.narr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		return epilogueMsg{text: narr.Epilogue(ctx, state, ending)}
	}
}

func (m *model) appendScreen() {
	m.appendLine(m.renderScreen(m.sess.View()))
}

func (m *model) appendLine(s string) {
	if m.gameLog != "" {
		m.gameLog += "\n\n"
	}
	m.gameLog += s
}

func (m *model) appendError(err error) {
	m.appendLine(errorStyle.Width(m.logWidth()).Render("! " + err.Error()))
}

func (m *model) refresh() {
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.70)
}

func (m model) renderScreen(v session.View) string {
	w := m.logWidth()
	var b strings.Builder
	switch v.Phase {
	case session.PhaseLanding:
		b.WriteString(titleStyle.Render("MAHES ADVENTURE") + "\n\n")
		b.WriteString(gameStyle.Width(w).Render("Cross four regions, answer their challenges and gather the fragments of the Crown of Mahes and the light blue Sash. Your choices shape your karma, and your karma shapes your ending."))
		b.WriteString("\n\n" + helpStyle.Render("Type 'start' to begin, 'board' for the leaderboard or 'reset' to wipe saved data."))
	case session.PhaseSetup:
		b.WriteString(m.setupPrompt())
	case session.PhaseMap:
		b.WriteString(titleStyle.Render("THE MAP") + "\n\n")
		b.WriteString(gameStyle.Width(w).Render(formatRegions(v.Regions)))
		b.WriteString("\n\n" + helpStyle.Render("Type a region number to travel, or 'board' for the leaderboard."))
	case session.PhaseChallenge:
		c := v.Challenge
		b.WriteString(titleStyle.Render(strings.ToUpper(c.Title)) + "\n\n")
		if c.Scenario != "" {
			b.WriteString(gameStyle.Width(w).Render(strings.TrimSpace(c.Scenario)) + "\n\n")
		}
		b.WriteString(gameStyle.Bold(true).Width(w).Render(c.Question) + "\n")
		for _, o := range c.Options {
			b.WriteString(gameStyle.Width(w).Render(fmt.Sprintf("  %s) %s", o.ID, o.Text)) + "\n")
		}
		if c.TimeLimit > 0 {
			b.WriteString("\n" + helpStyle.Render(fmt.Sprintf("You have %d seconds.", c.TimeLimit)))
		}
		b.WriteString("\n" + helpStyle.Render(fmt.Sprintf("Type a letter to answer, or 'hint' (%d left for this challenge).", c.HintsLeft)))
	case session.PhaseFeedback:
		f := v.Feedback
		switch {
		case f.TimedOut:
			b.WriteString(errorStyle.Render("TIME'S UP") + "\n\n")
		case f.Correct:
			b.WriteString(noticeStyle.Render("WELL CHOSEN") + "\n\n")
		default:
			b.WriteString(titleStyle.Render("THE PATH TAKEN") + "\n\n")
		}
		b.WriteString(gameStyle.Width(w).Render(f.Effect.Feedback) + "\n\n")
		b.WriteString(gameStyle.Render(formatEffect(f.Effect)))
		b.WriteString("\n\n" + helpStyle.Render("Type 'continue' to go on."))
	case session.PhaseEnding:
		e := v.Ending
		text := narrator.Describe(e.Ending)
		b.WriteString(titleStyle.Render(strings.ToUpper(text.Title)) + "\n\n")
		b.WriteString(gameStyle.Width(w).Render(text.Description) + "\n\n")
		b.WriteString(gameStyle.Render(fmt.Sprintf("Score %s  Karma %d  Time %s  Hints used %d",
			formatNumber(e.Stats.Score), e.Stats.Karma, narrator.FormatPlayTime(e.Stats.PlayTime), e.Stats.HintsUsed)) + "\n")
		b.WriteString(gameStyle.Render(formatFragments(e.Fragments)))
		b.WriteString("\n\n" + helpStyle.Render("Type 'save' to record your run, 'board' for the leaderboard or 'again' for a new journey."))
	case session.PhaseLeaderboard:
		b.WriteString(titleStyle.Render("LEADERBOARD") + "\n\n")
		b.WriteString(gameStyle.Render(formatLeaderboard(v.Leaderboard)))
		b.WriteString("\n\n" + helpStyle.Render("Type 'close' to go back."))
	}
	return b.String()
}

func (m model) setupPrompt() string {
	switch m.step {
	case stepAvatar:
		var opts []string
		for i, a := range models.Avatars {
			opts = append(opts, fmt.Sprintf("%d) %s", i+1, a))
		}
		return "Choose your avatar: " + strings.Join(opts, "  ") + "\n" + helpStyle.Render("Press enter for avatar1.")
	case stepDifficulty:
		return "Choose your difficulty:\n" +
			"  1) casual     5 hints, more time\n" +
			"  2) adventure  3 hints\n" +
			"  3) legendary  1 hint, less time\n" +
			helpStyle.Render("Press enter for adventure.")
	default:
		return titleStyle.Render("A NEW ADVENTURER") + "\n\nWhat is your name? (3-15 letters, digits, spaces or underscores)"
	}
}

func (m model) renderState() string {
	v := m.sess.View()
	if !v.State.HasProfile() {
		return ""
	}
	st := v.State

	player := titleStyle.Render("PLAYER") + "\n" +
		fmt.Sprintf("%s\n%s, %s\n\n", st.Player.Name, st.Player.Avatar, st.Player.Difficulty)

	stats := titleStyle.Render("STATS") + "\n" +
		fmt.Sprintf("Score: %s\nKarma: %d/%d\nHints: %d\n",
			formatNumber(st.Stats.Score), st.Stats.Karma, progression.MaxKarma, st.Inventory.Hints)
	if v.Challenge != nil && v.Challenge.TimeLimit > 0 {
		stats += fmt.Sprintf("Time left: %ds\n", v.Challenge.TimeLeft)
	}
	stats += "\n"

	fragments := titleStyle.Render("FRAGMENTS") + "\n" +
		"Crown " + track(st.Inventory.Fragments.Crown) + "\n" +
		"Sash  " + track(st.Inventory.Fragments.Sash) + "\n"

	content := player + stats + fragments

	stateWidth := int(float64(m.width) * 0.27)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(content)
}

func track(slots []bool) string {
	var b strings.Builder
	for _, got := range slots {
		if got {
			b.WriteString("■")
		} else {
			b.WriteString("□")
		}
	}
	return b.String()
}

func (m model) renderLog() string {
	return m.gameLog
}

func (m model) helpLine() string {
	if m.sess.Phase() == session.PhaseSetup {
		return "Answer the prompt above. /quit to leave."
	}
	return "Commands: start, board, 1-4, a-d, hint, continue, save, again, reset, close, help, /quit"
}

const commandHelp = `start            begin or resume your journey
board            show the leaderboard
1-4, region N    travel to a region
a, b, c, d       answer the current challenge
hint             spend a hint on the current challenge
continue         move on after feedback
save             record a finished run on the leaderboard
again            start a new journey after the ending
close            leave the leaderboard
reset            delete saved data (asks for confirmation)
/quit            leave the game`

func Run(ctx context.Context, sess *session.Session, narr *narrator.Narrator) error {
	p := tea.NewProgram(NewModel(ctx, sess, narr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
