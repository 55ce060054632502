package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/keyclack/internal/bank"
	"github.com/jmylchreest/keyclack/internal/model"
)

func entry(name, display, source string, files int) bank.Entry {
	names := make([]string, files)
	for i := range names {
		names[i] = name + ".wav"
	}
	return bank.Entry{
		Bank:   &model.SoundBank{Name: name, DisplayName: display, Files: names},
		Source: source,
	}
}

func testEntries() []bank.Entry {
	return []bank.Entry{
		entry("classic", "Classic", bank.SourceBundled, 5),
		entry("typewriter", "Typewriter", bank.SourceBundled, 3),
		entry("topre", "Topre Realforce", bank.SourceUser, 8),
		entry("blue", "Cherry MX Blue", bank.SourceUser, 5),
	}
}

func TestLookupByName(t *testing.T) {
	entries := testEntries()

	t.Run("found", func(t *testing.T) {
		result := LookupByName(entries, "topre")
		require.NotNil(t, result)
		assert.Equal(t, "Topre Realforce", result.Bank.DisplayName)
	})

	t.Run("not found", func(t *testing.T) {
		assert.Nil(t, LookupByName(entries, "Topre"))
	})

	t.Run("empty slice", func(t *testing.T) {
		assert.Nil(t, LookupByName(nil, "classic"))
	})
}

func TestLookupByIndex(t *testing.T) {
	entries := testEntries()

	tests := []struct {
		index int
		want  string
	}{
		{1, "classic"},
		{4, "blue"},
		{0, ""},
		{-1, ""},
		{5, ""},
	}

	for _, tt := range tests {
		result := LookupByIndex(entries, tt.index)
		if tt.want == "" {
			assert.Nil(t, result, "index %d", tt.index)
			continue
		}
		require.NotNil(t, result, "index %d", tt.index)
		assert.Equal(t, tt.want, result.Bank.Name)
	}
}

func TestResolve(t *testing.T) {
	entries := testEntries()

	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{"exact", "typewriter", "typewriter", false},
		{"index", "3", "topre", false},
		{"index out of range", "9", "", true},
		{"case insensitive", "CLASSIC", "classic", false},
		{"unique prefix", "ty", "typewriter", false},
		{"ambiguous prefix", "t", "", true},
		{"unknown", "alps", "", true},
		{"empty", "  ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Resolve(entries, tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Bank.Name)
		})
	}
}

func TestResolve_NotFoundIsWrapped(t *testing.T) {
	_, err := Resolve(testEntries(), "alps")
	assert.ErrorIs(t, err, bank.ErrNotFound)
}

func TestSearch(t *testing.T) {
	entries := testEntries()

	assert.Len(t, Search(entries, ""), 4)
	assert.Len(t, Search(entries, "cherry"), 1)
	assert.Len(t, Search(entries, "REALFORCE"), 1)
	assert.Empty(t, Search(entries, "alps"))
}

func TestFilter(t *testing.T) {
	entries := testEntries()

	t.Run("by source", func(t *testing.T) {
		result := Filter(entries, FilterOptions{Source: bank.SourceUser})
		require.Len(t, result, 2)
		assert.Equal(t, "topre", result[0].Bank.Name)
		assert.Equal(t, "blue", result[1].Bank.Name)
	})

	t.Run("search and limit", func(t *testing.T) {
		result := Filter(entries, FilterOptions{Search: "e", Limit: 2})
		assert.Len(t, result, 2)
	})

	t.Run("no options", func(t *testing.T) {
		assert.Len(t, Filter(entries, FilterOptions{}), 4)
	})
}

func TestParseSource(t *testing.T) {
	for in, want := range map[string]string{
		"":        "",
		"all":     "",
		"bundled": bank.SourceBundled,
		"builtin": bank.SourceBundled,
		"User":    bank.SourceUser,
	} {
		got, err := ParseSource(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSource("remote")
	assert.Error(t, err)
}

func TestSort(t *testing.T) {
	names := func(entries []bank.Entry) []string {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.Bank.Name
		}
		return out
	}

	t.Run("name ascending", func(t *testing.T) {
		entries := testEntries()
		Sort(entries, DefaultSortOptions())
		assert.Equal(t, []string{"blue", "classic", "topre", "typewriter"}, names(entries))
	})

	t.Run("files descending keeps ties stable", func(t *testing.T) {
		entries := testEntries()
		Sort(entries, SortOptions{Field: SortByFiles, Order: SortDesc})
		assert.Equal(t, []string{"topre", "classic", "blue", "typewriter"}, names(entries))
	})

	t.Run("source", func(t *testing.T) {
		entries := testEntries()
		Sort(entries, SortOptions{Field: SortBySource, Order: SortAsc})
		assert.Equal(t, []string{"classic", "typewriter", "topre", "blue"}, names(entries))
	})

	t.Run("empty", func(t *testing.T) {
		Sort(nil, DefaultSortOptions())
	})
}

func TestParseSort(t *testing.T) {
	field, err := ParseSortField("samples")
	require.NoError(t, err)
	assert.Equal(t, SortByFiles, field)

	_, err = ParseSortField("size")
	assert.Error(t, err)

	order, err := ParseSortOrder("d")
	require.NoError(t, err)
	assert.Equal(t, SortDesc, order)

	_, err = ParseSortOrder("sideways")
	assert.Error(t, err)
}
