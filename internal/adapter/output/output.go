// Package output provides the CLI output formatters for banks and status.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/keyclack/internal/model"
)

// BankInfo describes a bank for listing.
type BankInfo struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Source      string `json:"source" yaml:"source"`
	Files       int    `json:"files" yaml:"files"`
	NonUnique   int    `json:"non_unique_count" yaml:"non_unique_count"`
	MappedKeys  int    `json:"mapped_keys" yaml:"mapped_keys"`
	Bytes       int64  `json:"bytes" yaml:"bytes"`
	Active      bool   `json:"active,omitempty" yaml:"active,omitempty"`
}

// Formatter writes banks and status in one output format.
type Formatter interface {
	FormatBanks(w io.Writer, banks []BankInfo) error
	FormatStatus(w io.Writer, status model.Status) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatTable FormatType = "table"
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
)

// Formats lists every supported format.
var Formats = []FormatType{FormatTable, FormatPlain, FormatJSON, FormatYAML}

// NewFormatter creates a formatter for the named format.
func NewFormatter(format string) (Formatter, error) {
	switch FormatType(strings.ToLower(format)) {
	case FormatTable, "":
		return NewTableFormatter(), nil
	case FormatPlain:
		return NewPlainFormatter(), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML, "yml":
		return NewYAMLFormatter(), nil
	}
	return nil, fmt.Errorf("unknown format %q, must be one of: %v", format, Formats)
}
