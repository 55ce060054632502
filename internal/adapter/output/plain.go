package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/keyclack/internal/model"
)

// PlainFormatter writes one bank name per line, suited to dmenu-style
// pickers, and status as key: value lines.
type PlainFormatter struct{}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter() *PlainFormatter {
	return &PlainFormatter{}
}

// FormatBanks writes bank names, one per line.
func (f *PlainFormatter) FormatBanks(w io.Writer, banks []BankInfo) error {
	for _, b := range banks {
		if _, err := fmt.Fprintln(w, b.Name); err != nil {
			return err
		}
	}
	return nil
}

// FormatStatus writes status fields as key: value lines.
func (f *PlainFormatter) FormatStatus(w io.Writer, s model.Status) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "enabled: %t\n", s.Enabled)
	fmt.Fprintf(&sb, "state: %s\n", s.State)
	fmt.Fprintf(&sb, "bank: %s\n", s.Bank)
	fmt.Fprintf(&sb, "samples: %d/%d\n", s.Loaded, s.Requested)
	fmt.Fprintf(&sb, "volume: %d%%\n", percent(s.Volume))
	fmt.Fprintf(&sb, "muted: %t\n", s.Muted)
	fmt.Fprintf(&sb, "output: %s\n", availability(s.OutputAvailable))
	fmt.Fprintf(&sb, "voices: %d/%d\n", s.ActiveVoices, s.Polyphony)
	fmt.Fprintf(&sb, "keys: %s\n", humanize.Comma(int64(s.Triggered)))
	if s.Dropped > 0 {
		fmt.Fprintf(&sb, "dropped: %s\n", humanize.Comma(int64(s.Dropped)))
	}
	if !s.LastActivity.IsZero() {
		fmt.Fprintf(&sb, "last key: %s\n", humanize.Time(s.LastActivity))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func percent(v float64) int {
	return int(v*100 + 0.5)
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}
