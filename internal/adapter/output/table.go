package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/keyclack/internal/model"
)

// TableFormatter renders bordered tables for a terminal.
type TableFormatter struct {
	header lipgloss.Style
	cell   lipgloss.Style
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
		cell:   lipgloss.NewStyle().Padding(0, 1),
	}
}

// FormatBanks writes one row per bank. The active bank is starred.
func (f *TableFormatter) FormatBanks(w io.Writer, banks []BankInfo) error {
	rows := make([][]string, 0, len(banks))
	for _, b := range banks {
		name := b.Name
		if b.Active {
			name = "* " + name
		}
		title := b.DisplayName
		if title == "" {
			title = b.Name
		}
		rows = append(rows, []string{
			name,
			title,
			b.Source,
			strconv.Itoa(b.Files),
			strconv.Itoa(b.MappedKeys),
			humanize.Bytes(uint64(max(b.Bytes, 0))),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "TITLE", "SOURCE", "FILES", "MAPPED", "SIZE").
		Rows(rows...).
		StyleFunc(f.style)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// FormatStatus writes a two column field/value table.
func (f *TableFormatter) FormatStatus(w io.Writer, s model.Status) error {
	vol := fmt.Sprintf("%d%%", percent(s.Volume))
	if s.Muted {
		vol += " (muted)"
	}
	last := "never"
	if !s.LastActivity.IsZero() {
		last = humanize.Time(s.LastActivity)
	}
	rows := [][]string{
		{"enabled", strconv.FormatBool(s.Enabled)},
		{"state", s.State},
		{"bank", s.Bank},
		{"samples", fmt.Sprintf("%d/%d", s.Loaded, s.Requested)},
		{"volume", vol},
		{"output", availability(s.OutputAvailable)},
		{"voices", fmt.Sprintf("%d/%d", s.ActiveVoices, s.Polyphony)},
		{"keys", humanize.Comma(int64(s.Triggered))},
		{"dropped", humanize.Comma(int64(s.Dropped))},
		{"last key", last},
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FIELD", "VALUE").
		Rows(rows...).
		StyleFunc(f.style)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func (f *TableFormatter) style(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return f.header
	}
	return f.cell
}
