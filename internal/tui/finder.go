// internal/tui/finder.go
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"repo-notion-sync/internal/discovery"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// SearchRunner performs the I/O behind the discovery flow.
type SearchRunner interface {
	Search(ctx context.Context, p discovery.Params) ([]string, error)
	SaveCSV(dir, query string, urls []string) (string, error)
	SaveList(path string, urls []string) error
}

var actions = []string{"Find new repositories", "Exit"}

type searchDoneMsg discovery.SearchFinished

type listSavedMsg struct {
	path string
	err  error
}

// FinderModel renders a discovery.Machine in the terminal.
type FinderModel struct {
	ctx      context.Context
	machine  *discovery.Machine
	runner   SearchRunner
	outDir   string
	listPath string

	cursor int
	input  textinput.Model
	status string
}

// NewFinderModel creates the model. CSV results go to outDir and the
// optional URL list to listPath.
func NewFinderModel(ctx context.Context, machine *discovery.Machine, runner SearchRunner, outDir, listPath string) FinderModel {
	input := textinput.New()
	input.CharLimit = 256
	input.Width = 60

	return FinderModel{
		ctx:      ctx,
		machine:  machine,
		runner:   runner,
		outDir:   outDir,
		listPath: listPath,
		input:    input,
	}
}

func (m FinderModel) Init() tea.Cmd {
	return nil
}

// Machine exposes the underlying state machine.
func (m FinderModel) Machine() *discovery.Machine { return m.machine }

func (m FinderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case searchDoneMsg:
		m.handle(discovery.SearchFinished(msg))
		if msg.Err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Search failed: %v", msg.Err))
		} else {
			m.status = successStyle.Render(fmt.Sprintf("Saved %d unique URLs to %s", len(msg.URLs), msg.CSVPath))
		}
		return m, nil

	case listSavedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Could not write %s: %v", msg.path, msg.err))
		} else {
			m.status = successStyle.Render("Saved URLs to " + msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.updateKey(msg)
	}

	if m.machine.State() == discovery.ConfigureSearch {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m FinderModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.machine.State() {
	case discovery.SelectAction:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(actions)-1 {
				m.cursor++
			}
		case "q":
			return m.runEffect(m.handle(discovery.ChooseExit{}))
		case "enter":
			if m.cursor == 0 {
				m.status = ""
				m.handle(discovery.ChooseSearch{})
				m.resetInput()
				return m, textinput.Blink
			}
			return m.runEffect(m.handle(discovery.ChooseExit{}))
		}
		return m, nil

	case discovery.ConfigureSearch:
		switch msg.String() {
		case "esc":
			m.handle(discovery.CancelSearch{})
			return m, nil
		case "enter":
			eff := m.handle(discovery.SubmitField{Value: m.input.Value()})
			if m.machine.Err() == nil {
				m.resetInput()
			}
			return m.runEffect(eff)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case discovery.ConfirmSave:
		switch msg.String() {
		case "y", "Y":
			return m.runEffect(m.handle(discovery.ConfirmSaveList{Save: true}))
		case "n", "N", "enter", "esc":
			return m.runEffect(m.handle(discovery.ConfirmSaveList{Save: false}))
		}
	}
	return m, nil
}

// handle feeds ev to the machine. Input errors stay on the machine and are
// shown by View.
func (m *FinderModel) handle(ev discovery.Event) discovery.Effect {
	eff, _ := m.machine.Handle(ev)
	return eff
}

func (m FinderModel) runEffect(eff discovery.Effect) (tea.Model, tea.Cmd) {
	switch eff {
	case discovery.EffectQuit:
		return m, tea.Quit
	case discovery.EffectSearch:
		return m, m.searchCmd(m.machine.Params())
	case discovery.EffectSaveList:
		urls, _ := m.machine.Results()
		return m, m.saveListCmd(urls)
	}
	return m, nil
}

func (m FinderModel) searchCmd(p discovery.Params) tea.Cmd {
	return func() tea.Msg {
		urls, err := m.runner.Search(m.ctx, p)
		if err != nil {
			return searchDoneMsg{URLs: urls, Err: err}
		}
		path, err := m.runner.SaveCSV(m.outDir, p.Query, urls)
		return searchDoneMsg{URLs: urls, CSVPath: path, Err: err}
	}
}

func (m FinderModel) saveListCmd(urls []string) tea.Cmd {
	return func() tea.Msg {
		return listSavedMsg{path: m.listPath, err: m.runner.SaveList(m.listPath, urls)}
	}
}

func (m *FinderModel) resetInput() {
	m.input.Reset()
	if f, ok := m.machine.Field(); ok {
		m.input.Placeholder = f.Default
	}
	m.input.Focus()
}

func (m FinderModel) View() string {
	var b strings.Builder

	switch m.machine.State() {
	case discovery.SelectAction:
		b.WriteString(titleStyle.Render("What do you want to do?") + "\n\n")
		for i, a := range actions {
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("> "+a) + "\n")
			} else {
				b.WriteString("  " + a + "\n")
			}
		}

	case discovery.ConfigureSearch:
		f, _ := m.machine.Field()
		prompt := f.Prompt
		if f.Default != "" {
			prompt = fmt.Sprintf("%s (default is %s)", f.Prompt, f.Default)
		}
		b.WriteString(titleStyle.Render(prompt) + "\n\n" + m.input.View() + "\n")

	case discovery.Searching:
		p := m.machine.Params()
		b.WriteString(fmt.Sprintf("Searching %q across up to %d pages...\n", p.SearchQuery(), p.MaxPages))

	case discovery.ConfirmSave:
		b.WriteString(titleStyle.Render(fmt.Sprintf("Save the URLs as %s? This replaces the existing file. (y/N)", m.listPath)) + "\n")

	case discovery.Done:
		return "Goodbye!\n"
	}

	if err := m.machine.Err(); err != nil {
		b.WriteString("\n" + errorStyle.Render(err.Error()) + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("enter: confirm • esc: back • ctrl+c: quit") + "\n")
	return b.String()
}
