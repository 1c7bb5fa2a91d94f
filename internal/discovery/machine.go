// internal/discovery/machine.go
package discovery

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// State is a step of the interactive discovery flow.
type State int

const (
	SelectAction State = iota
	ConfigureSearch
	Searching
	ConfirmSave
	Done
)

func (s State) String() string {
	switch s {
	case SelectAction:
		return "select-action"
	case ConfigureSearch:
		return "configure-search"
	case Searching:
		return "searching"
	case ConfirmSave:
		return "confirm-save"
	case Done:
		return "done"
	}
	return "unknown"
}

// Event is an input to the Machine.
type Event interface{ event() }

type (
	// ChooseSearch starts configuring a new search.
	ChooseSearch struct{}
	// ChooseExit ends the session.
	ChooseExit struct{}
	// SubmitField answers the current prompt. An empty value takes the
	// default and ClearValue leaves the field empty.
	SubmitField struct{ Value string }
	// SearchFinished reports the outcome of the search requested by EffectSearch.
	SearchFinished struct {
		URLs    []string
		CSVPath string
		Err     error
	}
	// CancelSearch abandons the search form and returns to the menu.
	CancelSearch struct{}
	// ConfirmSaveList answers whether to also write the plain URL list.
	ConfirmSaveList struct{ Save bool }
)

func (ChooseSearch) event()    {}
func (ChooseExit) event()      {}
func (SubmitField) event()     {}
func (SearchFinished) event()  {}
func (CancelSearch) event()    {}
func (ConfirmSaveList) event() {}

// Effect tells the driver what side effect a transition asks for.
type Effect int

const (
	EffectNone Effect = iota
	EffectSearch
	EffectSaveList
	EffectQuit
)

// Field is one prompt of the search form.
type Field struct {
	Key     string
	Prompt  string
	Default string
}

// ClearValue answers a prompt with an empty value instead of its default.
const ClearValue = "-"

const (
	fieldQuery      = "query"
	fieldStars      = "stars"
	fieldForks      = "forks"
	fieldLastCommit = "last_commit"
	fieldLanguage   = "language"
	fieldMaxPages   = "max_pages"
)

// Machine drives the discovery flow. It performs no I/O; the caller feeds
// it events and carries out the returned effects.
type Machine struct {
	state    State
	fields   []Field
	index    int
	params   Params
	urls     []string
	csvPath  string
	err      error
	searches int
}

// NewMachine builds a machine whose prompts default to the values in defaults.
func NewMachine(defaults Params) *Machine {
	return &Machine{
		state: SelectAction,
		fields: []Field{
			{Key: fieldQuery, Prompt: "Packages to search for (for example 'openai' or 'openai,numpy')"},
			{Key: fieldStars, Prompt: "Star count", Default: strconv.Itoa(defaults.Stars)},
			{Key: fieldForks, Prompt: "Fork count", Default: strconv.Itoa(defaults.Forks)},
			{Key: fieldLastCommit, Prompt: "Last commit (YYYY-MM-DD, - for any)", Default: defaults.LastCommit},
			{Key: fieldLanguage, Prompt: "Language (- for any)", Default: defaults.Language},
			{Key: fieldMaxPages, Prompt: "Maximum number of pages to fetch", Default: strconv.Itoa(defaults.MaxPages)},
		},
	}
}

// State returns the current step of the flow.
func (m *Machine) State() State { return m.state }

// Field returns the prompt awaiting an answer while configuring a search.
func (m *Machine) Field() (Field, bool) {
	if m.state != ConfigureSearch {
		return Field{}, false
	}
	return m.fields[m.index], true
}

// Params returns the parameters collected for the current search.
func (m *Machine) Params() Params { return m.params }

// Results returns the URLs and CSV path of the last finished search.
func (m *Machine) Results() ([]string, string) { return m.urls, m.csvPath }

// Err returns the last input or search error, cleared by the next valid event.
func (m *Machine) Err() error { return m.err }

// Searches counts the searches completed in this session.
func (m *Machine) Searches() int { return m.searches }

// Handle applies ev. Invalid input leaves the state unchanged and is both
// returned and kept in Err.
func (m *Machine) Handle(ev Event) (Effect, error) {
	switch m.state {
	case SelectAction:
		switch ev.(type) {
		case ChooseSearch:
			m.state = ConfigureSearch
			m.index = 0
			m.params = Params{}
			m.err = nil
			return EffectNone, nil
		case ChooseExit:
			m.state = Done
			return EffectQuit, nil
		}

	case ConfigureSearch:
		switch ev := ev.(type) {
		case SubmitField:
			return m.submit(ev.Value)
		case CancelSearch:
			m.state = SelectAction
			m.err = nil
			return EffectNone, nil
		}

	case Searching:
		if done, ok := ev.(SearchFinished); ok {
			m.urls, m.csvPath = done.URLs, done.CSVPath
			if done.Err != nil {
				m.err = done.Err
				m.state = SelectAction
				return EffectNone, nil
			}
			m.searches++
			m.state = ConfirmSave
			return EffectNone, nil
		}

	case ConfirmSave:
		if confirm, ok := ev.(ConfirmSaveList); ok {
			m.state = SelectAction
			if confirm.Save {
				return EffectSaveList, nil
			}
			return EffectNone, nil
		}
	}

	err := fmt.Errorf("unexpected %T in state %s", ev, m.state)
	m.err = err
	return EffectNone, err
}

func (m *Machine) submit(raw string) (Effect, error) {
	field := m.fields[m.index]
	value := strings.TrimSpace(raw)
	switch value {
	case "":
		value = field.Default
	case ClearValue:
		value = ""
	}

	if err := m.apply(field.Key, value); err != nil {
		m.err = err
		return EffectNone, err
	}
	m.err = nil

	m.index++
	if m.index < len(m.fields) {
		return EffectNone, nil
	}
	m.state = Searching
	return EffectSearch, nil
}

func (m *Machine) apply(key, value string) error {
	switch key {
	case fieldQuery:
		if value == "" {
			return fmt.Errorf("a search query is required")
		}
		m.params.Query = value
	case fieldStars:
		n, err := nonNegative(value)
		if err != nil {
			return fmt.Errorf("star count: %w", err)
		}
		m.params.Stars = n
	case fieldForks:
		n, err := nonNegative(value)
		if err != nil {
			return fmt.Errorf("fork count: %w", err)
		}
		m.params.Forks = n
	case fieldLastCommit:
		if value != "" {
			if _, err := time.Parse(time.DateOnly, value); err != nil {
				return fmt.Errorf("last commit must be YYYY-MM-DD, got %q", value)
			}
		}
		m.params.LastCommit = value
	case fieldLanguage:
		m.params.Language = value
	case fieldMaxPages:
		n, err := nonNegative(value)
		if err != nil || n == 0 {
			return fmt.Errorf("maximum pages must be a positive integer, got %q", value)
		}
		m.params.MaxPages = n
	}
	return nil
}

func nonNegative(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("expected a non-negative integer, got %q", s)
	}
	return n, nil
}
