package core

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/keyclack/internal/bank"
)

// FilterOptions specifies criteria for filtering banks.
type FilterOptions struct {
	Source string // "bundled", "user" or empty for any
	Search string // Substring of name or display name
	Limit  int    // Maximum results (0=unlimited)
}

// Filter filters banks based on the provided options.
func Filter(entries []bank.Entry, opts FilterOptions) []bank.Entry {
	result := make([]bank.Entry, 0, len(entries))

	for _, e := range Search(entries, opts.Search) {
		if opts.Source != "" && e.Source != opts.Source {
			continue
		}
		result = append(result, e)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result
}

// ParseSource validates a --source value.
func ParseSource(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "any":
		return "", nil
	case bank.SourceBundled, "builtin":
		return bank.SourceBundled, nil
	case bank.SourceUser:
		return bank.SourceUser, nil
	default:
		return "", fmt.Errorf("invalid bank source %q (bundled, user, all)", s)
	}
}
