package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/keyclack/internal/model"
)

// JSONFormatter writes indented JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// FormatBanks writes banks as a JSON array.
func (f *JSONFormatter) FormatBanks(w io.Writer, banks []BankInfo) error {
	if banks == nil {
		banks = []BankInfo{}
	}
	return f.encode(w, banks)
}

// FormatStatus writes status as a JSON object.
func (f *JSONFormatter) FormatStatus(w io.Writer, status model.Status) error {
	return f.encode(w, status)
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
