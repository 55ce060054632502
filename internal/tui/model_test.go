package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/keyclack/internal/model"
)

type fakeBackend struct {
	banks    []string
	status   model.Status
	selected []string
	previews []int
	volumes  []float64
	mutes    []bool
	err      error
}

func (f *fakeBackend) ListBanks() ([]string, error)  { return f.banks, f.err }
func (f *fakeBackend) Status() (model.Status, error) { return f.status, nil }

func (f *fakeBackend) SelectBank(name string) error {
	f.selected = append(f.selected, name)
	return f.err
}

func (f *fakeBackend) Preview(index int) error {
	f.previews = append(f.previews, index)
	return nil
}

func (f *fakeBackend) SetVolume(v float64) error {
	f.volumes = append(f.volumes, v)
	return nil
}

func (f *fakeBackend) SetMuted(m bool) error {
	f.mutes = append(f.mutes, m)
	return nil
}

func newTestModel(t *testing.T, b *fakeBackend) Model {
	t.Helper()
	var m tea.Model = New(b)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = m.Update(m.(Model).loadBanks())
	return m.(Model)
}

func press(t *testing.T, m Model, keys string) (Model, tea.Msg) {
	t.Helper()
	var msg tea.KeyMsg
	switch keys {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	next, cmd := m.Update(msg)
	var out tea.Msg
	if cmd != nil {
		out = cmd()
	}
	return next.(Model), out
}

func TestModel_LoadsAndSelectsActiveBank(t *testing.T) {
	b := &fakeBackend{
		banks:  []string{"classic", "typewriter"},
		status: model.Status{Bank: "typewriter", Loaded: 4, Requested: 4, Volume: 0.7, Enabled: true, State: "ready", OutputAvailable: true},
	}
	m := newTestModel(t, b)

	name, ok := m.selectedName()
	require.True(t, ok)
	assert.Equal(t, "typewriter", name)
	assert.Contains(t, m.View(), "typewriter")
	assert.Contains(t, m.View(), "70%")
}

func TestModel_SelectBank(t *testing.T) {
	b := &fakeBackend{banks: []string{"classic", "typewriter"}, status: model.Status{Bank: "classic"}}
	m := newTestModel(t, b)

	m, _ = press(t, m, "down")
	m, out := press(t, m, "enter")
	assert.Equal(t, []string{"typewriter"}, b.selected)

	res, ok := out.(actionResultMsg)
	require.True(t, ok)
	assert.NoError(t, res.err)
	assert.Equal(t, "Using typewriter", res.text)

	next, _ := m.Update(res)
	m = next.(Model)
	next, _ = m.Update(statusMsg{text: res.text})
	assert.Contains(t, next.(Model).View(), "Using typewriter")
}

func TestModel_SelectBankError(t *testing.T) {
	b := &fakeBackend{banks: []string{"classic"}}
	m := newTestModel(t, b)
	b.err = errors.New("bank not found")

	m, out := press(t, m, "enter")
	_, cmd := m.Update(out)
	require.NotNil(t, cmd)
	st, ok := cmd().(statusMsg)
	require.True(t, ok)
	assert.True(t, st.isErr)
	assert.Equal(t, "bank not found", st.text)
}

func TestModel_PreviewUsesHighlightedIndex(t *testing.T) {
	b := &fakeBackend{banks: []string{"a", "b", "c"}, status: model.Status{Bank: "a"}}
	m := newTestModel(t, b)

	m, _ = press(t, m, "down")
	m, _ = press(t, m, "down")
	_, _ = press(t, m, "p")
	assert.Equal(t, []int{2}, b.previews)
}

func TestModel_Volume(t *testing.T) {
	b := &fakeBackend{banks: []string{"classic"}, status: model.Status{Bank: "classic", Volume: 0.7}}
	m := newTestModel(t, b)

	m, _ = press(t, m, "+")
	m, _ = press(t, m, "+")
	m, _ = press(t, m, "-")
	require.Len(t, b.volumes, 3)
	assert.InDelta(t, 0.75, b.volumes[0], 1e-9)
	assert.InDelta(t, 0.80, b.volumes[1], 1e-9)
	assert.InDelta(t, 0.75, b.volumes[2], 1e-9)

	for range 30 {
		m, _ = press(t, m, "+")
	}
	assert.InDelta(t, 1.0, b.volumes[len(b.volumes)-1], 1e-9)
}

func TestModel_Mute(t *testing.T) {
	b := &fakeBackend{banks: []string{"classic"}}
	m := newTestModel(t, b)

	m, out := press(t, m, "m")
	assert.Equal(t, "Muted", out.(actionResultMsg).text)
	_, out = press(t, m, "m")
	assert.Equal(t, "Unmuted", out.(actionResultMsg).text)
	assert.Equal(t, []bool{true, false}, b.mutes)
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	_, out := press(t, m, "q")
	assert.Equal(t, tea.Quit(), out)
}

func TestModel_StatusRefreshRebuildsList(t *testing.T) {
	b := &fakeBackend{banks: []string{"classic", "typewriter"}, status: model.Status{Bank: "classic"}}
	m := newTestModel(t, b)

	next, _ := m.Update(statusUpdateMsg{status: model.Status{Bank: "typewriter", Loaded: 3, Requested: 4}})
	m = next.(Model)

	items := m.list.Items()
	require.Len(t, items, 2)
	assert.False(t, items[0].(bankItem).active)
	assert.True(t, items[1].(bankItem).active)
	assert.Contains(t, items[1].(bankItem).Description(), "3 of 4")
}
