// Package core provides filtering, sorting, and lookup logic for bank lists.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/keyclack/internal/bank"
)

// LookupByName finds a bank by exact name.
// Returns nil if not found.
func LookupByName(entries []bank.Entry, name string) *bank.Entry {
	for i := range entries {
		if entries[i].Bank.Name == name {
			return &entries[i]
		}
	}
	return nil
}

// LookupByIndex finds a bank by its index (1-based for user-friendliness).
// Returns nil if index is out of bounds.
func LookupByIndex(entries []bank.Entry, index int) *bank.Entry {
	idx := index - 1
	if idx < 0 || idx >= len(entries) {
		return nil
	}
	return &entries[idx]
}

// Resolve turns what a user typed into a bank. It tries, in order, an exact
// name, a 1-based list index, a case-insensitive name, and a unique name
// prefix.
func Resolve(entries []bank.Entry, query string) (*bank.Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty bank name: %w", bank.ErrNotFound)
	}
	if e := LookupByName(entries, query); e != nil {
		return e, nil
	}
	if n, err := strconv.Atoi(query); err == nil {
		if e := LookupByIndex(entries, n); e != nil {
			return e, nil
		}
		return nil, fmt.Errorf("no bank at index %d: %w", n, bank.ErrNotFound)
	}

	lower := strings.ToLower(query)
	var matches []*bank.Entry
	for i := range entries {
		name := strings.ToLower(entries[i].Bank.Name)
		if name == lower {
			return &entries[i], nil
		}
		if strings.HasPrefix(name, lower) {
			matches = append(matches, &entries[i])
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%q: %w", query, bank.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Bank.Name
	}
	return nil, fmt.Errorf("%q is ambiguous: %s", query, strings.Join(names, ", "))
}

// Search finds banks matching a term in name or display name.
// Case-insensitive substring match.
func Search(entries []bank.Entry, term string) []bank.Entry {
	if term == "" {
		return entries
	}

	term = strings.ToLower(term)
	var result []bank.Entry

	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Bank.Name), term) ||
			strings.Contains(strings.ToLower(e.Bank.DisplayName), term) {
			result = append(result, e)
		}
	}

	return result
}
