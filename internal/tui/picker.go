// internal/tui/picker.go
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"repo-notion-sync/internal/notion"
)

// DatabaseChoice is the outcome of a DatabasePicker session. Exactly one of
// ID and CreateName is set unless Cancelled.
type DatabaseChoice struct {
	ID           string
	CreateName   string
	UpdateSchema bool
	Cancelled    bool
}

type pickerStage int

const (
	stageList pickerStage = iota
	stageName
	stageConfirm
)

// DatabasePicker lets the user pick an existing Notion database or name a new one.
type DatabasePicker struct {
	databases []notion.Database
	cursor    int
	stage     pickerStage
	input     textinput.Model
	choice    DatabaseChoice
	done      bool
}

// NewDatabasePicker lists databases followed by a "Create a new database" entry.
func NewDatabasePicker(databases []notion.Database) DatabasePicker {
	input := textinput.New()
	input.Placeholder = "Curated repositories"
	input.CharLimit = 100
	input.Width = 40

	return DatabasePicker{databases: databases, input: input}
}

// Choice returns the selection once the program has quit.
func (m DatabasePicker) Choice() DatabaseChoice { return m.choice }

func (m DatabasePicker) Init() tea.Cmd {
	return nil
}

func (m DatabasePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.stage == stageName {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if keyMsg.String() == "ctrl+c" {
		return m.finish(DatabaseChoice{Cancelled: true})
	}

	switch m.stage {
	case stageList:
		switch keyMsg.String() {
		case "q", "esc":
			return m.finish(DatabaseChoice{Cancelled: true})
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.databases) {
				m.cursor++
			}
		case "enter":
			if m.cursor == len(m.databases) {
				m.stage = stageName
				m.input.Focus()
				return m, textinput.Blink
			}
			m.stage = stageConfirm
		}
		return m, nil

	case stageName:
		switch keyMsg.String() {
		case "esc":
			m.stage = stageList
			m.input.Reset()
			return m, nil
		case "enter":
			name := strings.TrimSpace(m.input.Value())
			if name == "" {
				return m, nil
			}
			return m.finish(DatabaseChoice{CreateName: name, UpdateSchema: true})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case stageConfirm:
		id := m.databases[m.cursor].ID
		switch keyMsg.String() {
		case "y", "Y":
			return m.finish(DatabaseChoice{ID: id, UpdateSchema: true})
		case "n", "N":
			return m.finish(DatabaseChoice{ID: id})
		case "esc":
			m.stage = stageList
		}
	}
	return m, nil
}

func (m DatabasePicker) finish(c DatabaseChoice) (tea.Model, tea.Cmd) {
	m.choice = c
	m.done = true
	return m, tea.Quit
}

func (m DatabasePicker) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	switch m.stage {
	case stageList:
		b.WriteString(titleStyle.Render("Please select a database:") + "\n\n")
		for i := 0; i <= len(m.databases); i++ {
			label := "Create a new database"
			if i < len(m.databases) {
				label = fmt.Sprintf("%d. %s", i+1, m.databases[i].Title)
			}
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("> "+label) + "\n")
			} else {
				b.WriteString("  " + label + "\n")
			}
		}
	case stageName:
		b.WriteString(titleStyle.Render("Enter the name of the new database:") + "\n\n" + m.input.View() + "\n")
	case stageConfirm:
		b.WriteString(fmt.Sprintf("The schema of %q will be updated. This will not delete existing properties.\n", m.databases[m.cursor].Title))
		b.WriteString(titleStyle.Render("Do you want to proceed? (y/n)") + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("enter: confirm • esc: back • ctrl+c: quit") + "\n")
	return b.String()
}
