// Package tui provides a terminal user interface for jianpu2midi
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/james-see/jianpu2midi/pkg/converter"
)

// Ink-on-rice-paper color scheme
var (
	inkRed    = lipgloss.Color("#C8102E")
	jadeGreen = lipgloss.Color("#00A86B")
	paperGray = lipgloss.Color("#D8D2C4")
	darkGray  = lipgloss.Color("#2B2B2B")
	goldLeaf  = lipgloss.Color("#D4AF37")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(goldLeaf).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(paperGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(goldLeaf).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(jadeGreen).
			PaddingTop(1)

	warningStyle = lipgloss.NewStyle().
			Foreground(goldLeaf)

	errorStyle = lipgloss.NewStyle().
			Foreground(inkRed).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(jadeGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(inkRed).
			Padding(1, 2)
)

// maxListed caps the warnings and problems shown on the result screen
const maxListed = 8

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// Action is what a menu item does with the picked file
type Action int

const (
	ActionConvert Action = iota
	ActionValidate
	ActionInspect
	ActionExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title        string
	Description  string
	Action       Action
	AllowedTypes []string
}

var notationTypes = []string{".jianpu", ".nmn", ".txt"}

var menuItems = []MenuItem{
	{Title: "JIANPU → MIDI", Description: "Convert a jianpu score to a Standard MIDI File", Action: ActionConvert, AllowedTypes: notationTypes},
	{Title: "VALIDATE", Description: "Check a jianpu score and list every problem", Action: ActionValidate, AllowedTypes: notationTypes},
	{Title: "INSPECT MIDI", Description: "Summarize the tracks of a MIDI file", Action: ActionInspect, AllowedTypes: []string{".mid", ".midi"}},
	{Title: "Exit", Description: "Exit the application", Action: ActionExit},
}

// Model represents the TUI model
type Model struct {
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	opts         converter.Options
	selectedFile string
	action       MenuItem
	outcome      outcome
	width        int
	height       int
}

// outcome is what the result screen shows
type outcome struct {
	outputFile string
	lines      []string
	warnings   []string
	problems   []string
	err        error
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg outcome

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(opts converter.Options) Model {
	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = notationTypes
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(jadeGreen)

	return Model{
		state:      StateMenu,
		menuIndex:  0,
		filePicker: fp,
		spinner:    s,
		opts:       opts,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		// Check for escape/quit keys first
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		// Pass all other messages to the file picker
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		// Check if file was selected
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.perform())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.outcome = outcome(msg)
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		item := menuItems[m.menuIndex]
		if item.Action == ActionExit {
			return m, tea.Quit
		}
		m.action = item
		m.state = StateFilePicker
		m.filePicker.AllowedTypes = item.AllowedTypes
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.outcome = outcome{}
		m.selectedFile = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) perform() tea.Cmd {
	action, path, opts := m.action.Action, m.selectedFile, m.opts
	return func() tea.Msg {
		return conversionDoneMsg(run(action, path, opts))
	}
}

// run executes an action on a file. It never panics on bad input; failures
// end up in the outcome.
func run(action Action, path string, opts converter.Options) outcome {
	conv := converter.New(opts)
	log := logrus.WithFields(logrus.Fields{"file": path, "action": action})

	switch action {
	case ActionConvert:
		result, err := conv.ConvertFile(path, "")
		if err != nil {
			log.WithError(err).Warn("conversion failed")
			return outcome{err: err, problems: problemLines(converter.Problems(err))}
		}
		out := outcome{outputFile: converter.OutputPath(path)}
		for _, w := range result.Warnings {
			out.warnings = append(out.warnings, w.String())
		}
		for _, t := range result.Tracks {
			on, _, lyrics := t.Counts()
			out.lines = append(out.lines, fmt.Sprintf("track %d: %d notes, %d lyrics", t.Index, on, lyrics))
		}
		return out

	case ActionValidate:
		data, err := os.ReadFile(path)
		if err != nil {
			return outcome{err: err}
		}
		report := conv.Validate(string(data))
		out := outcome{
			warnings: report.Warnings,
			problems: problemLines(report.Problems),
			lines:    []string{fmt.Sprintf("%d tracks, %d notes", report.Tracks, report.Notes)},
		}
		if !report.Valid {
			out.err = fmt.Errorf("%d problems found", len(report.Problems))
		}
		return out

	case ActionInspect:
		f, err := os.Open(path)
		if err != nil {
			return outcome{err: err}
		}
		defer func() { _ = f.Close() }()

		summary, err := converter.InspectReader(f)
		if err != nil {
			return outcome{err: err}
		}
		out := outcome{lines: []string{
			fmt.Sprintf("%.1f BPM, %s, %d ticks per beat", summary.BPM, summary.TimeSignature, summary.TicksPerBeat),
		}}
		for i, t := range summary.Tracks {
			name := t.Name
			if name == "" {
				name = "-"
			}
			out.lines = append(out.lines, fmt.Sprintf("%d %-12s ch %2d  prog %3d  %d notes  %d lyrics",
				i, name, t.Channel, t.Program, t.NoteOns, len(t.Lyrics)))
		}
		return out
	}
	return outcome{err: fmt.Errorf("unknown action %d", action)}
}

func problemLines(problems []converter.Problem) []string {
	lines := make([]string, 0, len(problems))
	for _, p := range problems {
		switch {
		case p.Token != "":
			lines = append(lines, fmt.Sprintf("line %d [%s] %q: %s", p.Line, p.Category, p.Token, p.Message))
		case p.Line > 0:
			lines = append(lines, fmt.Sprintf("line %d [%s]: %s", p.Line, p.Category, p.Message))
		default:
			lines = append(lines, fmt.Sprintf("[%s] %s", p.Category, p.Message))
		}
	}
	return lines
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	// Header
	header := asciiLogo()
	s.WriteString(header)
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(jadeGreen).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s FILE ", strings.Join(m.action.AllowedTypes, " "))))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Processing %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render("  " + m.action.Title))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder
	o := m.outcome

	if o.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s failed: %s", m.action.Title, firstLine(o.err.Error()))))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Done!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s", filepath.Base(m.selectedFile)))
		if o.outputFile != "" {
			s.WriteString(fmt.Sprintf("\nOutput: %s", filepath.Base(o.outputFile)))
		}
	}

	for _, line := range o.lines {
		s.WriteString("\n" + line)
	}
	writeList(&s, o.problems, errorStyle)
	writeList(&s, o.warnings, warningStyle)

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func writeList(s *strings.Builder, items []string, style lipgloss.Style) {
	if len(items) == 0 {
		return
	}
	s.WriteString("\n")
	for i, item := range items {
		if i == maxListed {
			s.WriteString("\n" + style.Render(fmt.Sprintf("  ... and %d more", len(items)-maxListed)))
			break
		}
		s.WriteString("\n" + style.Render("  "+item))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func asciiLogo() string {
	logo := `
       _ _                         ___           _     _ _
      (_|_) __ _ _ __  _ __  _   _|_  )_ __ ___ (_) __| (_)
      | | |/ _' | '_ \| '_ \| | | |/ /| '_ ' _ \| |/ _' | |
      | | | (_| | | | | |_) | |_| /___| | | | | | | (_| | |
     _/ |_|\__,_|_| |_| .__/ \__,_|   |_| |_| |_|_|\__,_|_|
    |__/              |_|
`
	return lipgloss.NewStyle().Foreground(inkRed).Render(logo)
}

// Run starts the TUI application
func Run(opts converter.Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
