// Package tui provides the BubbleTea bank picker.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/keyclack/internal/model"
)

// VolumeStep is how much +/- change the volume.
const VolumeStep = 0.05

const statusRefresh = time.Second

// Backend is what the picker controls, normally the daemon over D-Bus.
type Backend interface {
	ListBanks() ([]string, error)
	Status() (model.Status, error)
	SelectBank(name string) error
	Preview(index int) error
	SetVolume(volume float64) error
	SetMuted(muted bool) error
}

// Model is the bank picker model.
type Model struct {
	backend Backend

	list     list.Model
	help     help.Model
	keys     KeyMap
	showHelp bool

	status model.Status
	width  int
	height int
	ready  bool

	statusMsg string
	statusErr bool
}

type bankItem struct {
	name   string
	active bool
	status model.Status
}

func (i bankItem) Title() string {
	if i.active {
		return "● " + i.name
	}
	return "  " + i.name
}

func (i bankItem) Description() string {
	if !i.active {
		return "  press enter to use"
	}
	desc := fmt.Sprintf("  %d samples", i.status.Loaded)
	if i.status.PartialLoad() {
		desc = fmt.Sprintf("  %d of %d samples loaded", i.status.Loaded, i.status.Requested)
	}
	return desc
}

func (i bankItem) FilterValue() string {
	return i.name
}

// New creates the picker.
func New(backend Backend) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Sound Banks"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		backend: backend,
		list:    l,
		help:    help.New(),
		keys:    DefaultKeyMap(),
	}
}

// Init loads the bank list and starts the status refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadBanks, m.tickStatus())
}

type banksMsg struct {
	names  []string
	status model.Status
	err    error
}

type statusUpdateMsg struct {
	status model.Status
	err    error
}

type tickMsg struct{}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type actionResultMsg struct {
	text string
	err  error
}

func (m Model) loadBanks() tea.Msg {
	names, err := m.backend.ListBanks()
	if err != nil {
		return banksMsg{err: err}
	}
	st, err := m.backend.Status()
	return banksMsg{names: names, status: st, err: err}
}

func (m Model) fetchStatus() tea.Msg {
	st, err := m.backend.Status()
	return statusUpdateMsg{status: st, err: err}
}

func (m Model) tickStatus() tea.Cmd {
	return tea.Tick(statusRefresh, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.list.SetSize(msg.Width, msg.Height-4)
		m.help.Width = msg.Width
		return m, nil

	case banksMsg:
		if msg.err != nil {
			return m, statusCmd("Failed to load banks: "+msg.err.Error(), true)
		}
		m.status = msg.status
		m.list.SetItems(m.buildItems(msg.names))
		m.selectActive()
		return m, nil

	case statusUpdateMsg:
		if msg.err != nil {
			return m, nil
		}
		changed := msg.status.Bank != m.status.Bank || msg.status.Loaded != m.status.Loaded
		m.status = msg.status
		if changed {
			m.list.SetItems(m.buildItems(m.bankNames()))
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchStatus, m.tickStatus())

	case actionResultMsg:
		if msg.err != nil {
			return m, statusCmd(msg.err.Error(), true)
		}
		return m, tea.Batch(statusCmd(msg.text, false), m.fetchStatus)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Select):
		name, ok := m.selectedName()
		if !ok {
			return m, nil
		}
		return m, m.action("Using "+name, func() error { return m.backend.SelectBank(name) })

	case key.Matches(msg, m.keys.Preview):
		index := m.list.Index()
		return m, m.action("", func() error { return m.backend.Preview(index) })

	case key.Matches(msg, m.keys.VolumeUp):
		return m.changeVolume(VolumeStep)

	case key.Matches(msg, m.keys.VolumeDown):
		return m.changeVolume(-VolumeStep)

	case key.Matches(msg, m.keys.Mute):
		muted := !m.status.Muted
		m.status.Muted = muted
		text := "Unmuted"
		if muted {
			text = "Muted"
		}
		return m, m.action(text, func() error { return m.backend.SetMuted(muted) })

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadBanks
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) changeVolume(delta float64) (tea.Model, tea.Cmd) {
	v := min(max(m.status.Volume+delta, 0), 1)
	// Snap to the step grid so repeated presses land on round values.
	v = float64(int(v/VolumeStep+0.5)) * VolumeStep
	m.status.Volume = v
	text := fmt.Sprintf("Volume %d%%", int(v*100+0.5))
	return m, m.action(text, func() error { return m.backend.SetVolume(v) })
}

func (m Model) action(text string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{text: text, err: fn()}
	}
}

func statusCmd(text string, isErr bool) tea.Cmd {
	if text == "" {
		return nil
	}
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

func (m Model) buildItems(names []string) []list.Item {
	items := make([]list.Item, len(names))
	for i, name := range names {
		items[i] = bankItem{name: name, active: name == m.status.Bank, status: m.status}
	}
	return items
}

func (m Model) bankNames() []string {
	items := m.list.Items()
	names := make([]string, 0, len(items))
	for _, it := range items {
		if bi, ok := it.(bankItem); ok {
			names = append(names, bi.name)
		}
	}
	return names
}

func (m *Model) selectActive() {
	for i, it := range m.list.Items() {
		if bi, ok := it.(bankItem); ok && bi.active {
			m.list.Select(i)
			return
		}
	}
}

func (m Model) selectedName() (string, bool) {
	bi, ok := m.list.SelectedItem().(bankItem)
	return bi.name, ok
}

// View renders the picker.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	s := m.list.View() + "\n"
	s += m.statusLine()
	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			style = style.Foreground(lipgloss.Color("9"))
		}
		s += "  " + style.Render(m.statusMsg)
	}
	s += "\n" + m.help.View(m.keys)
	return s
}

func (m Model) statusLine() string {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	vol := fmt.Sprintf("%d%%", int(m.status.Volume*100+0.5))
	if m.status.Muted {
		vol += " (muted)"
	}
	s := label.Render("volume ") + value.Render(vol)
	if !m.status.Enabled {
		s += label.Render("  disabled")
	} else if m.status.State != "" {
		s += label.Render("  ") + value.Render(m.status.State)
	}
	if !m.status.OutputAvailable && m.status.State != "" {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("  no audio output")
	}
	if !m.status.LastActivity.IsZero() {
		s += label.Render("  last key " + humanize.Time(m.status.LastActivity))
	}
	return s
}

// Run starts the picker on the terminal.
func Run(backend Backend) error {
	p := tea.NewProgram(New(backend), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
