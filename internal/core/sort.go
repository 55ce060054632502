package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/keyclack/internal/bank"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByName   SortField = "name"
	SortBySource SortField = "source"
	SortByFiles  SortField = "files"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions keeps catalog order by name.
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByName,
		Order: SortAsc,
	}
}

// Sort sorts banks in place. Ties keep their catalog order.
func Sort(entries []bank.Entry, opts SortOptions) {
	if len(entries) == 0 {
		return
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if opts.Order == SortDesc {
			a, b = b, a
		}

		switch opts.Field {
		case SortBySource:
			return a.Source < b.Source
		case SortByFiles:
			return len(a.Bank.Files) < len(b.Bank.Files)
		default:
			return strings.ToLower(a.Bank.Name) < strings.ToLower(b.Bank.Name)
		}
	})
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name", "n":
		return SortByName, nil
	case "source", "s":
		return SortBySource, nil
	case "files", "samples", "f":
		return SortByFiles, nil
	default:
		return "", fmt.Errorf("invalid sort field %q (name, source, files)", s)
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending", "a":
		return SortAsc, nil
	case "desc", "descending", "d":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("invalid sort order %q (asc, desc)", s)
	}
}
