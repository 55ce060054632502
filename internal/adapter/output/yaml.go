package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/keyclack/internal/model"
)

// YAMLFormatter writes YAML documents.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// FormatBanks writes banks as a YAML sequence.
func (f *YAMLFormatter) FormatBanks(w io.Writer, banks []BankInfo) error {
	return f.encode(w, banks)
}

// FormatStatus writes status as a YAML mapping.
func (f *YAMLFormatter) FormatStatus(w io.Writer, status model.Status) error {
	return f.encode(w, status)
}

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
