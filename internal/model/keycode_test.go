package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyCode(t *testing.T) {
	tests := []struct {
		in   string
		want uint16
	}{
		{"36", KeyReturn},
		{" 49 ", KeySpace},
		{"enter", KeyReturn},
		{"Backspace", KeyBackspace},
		{"esc", KeyEscape},
		{"a", 0},
		{"Q", 12},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKeyCode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeyCode_Invalid(t *testing.T) {
	for _, in := range []string{"", "70000", "-1", "nope"} {
		_, err := ParseKeyCode(in)
		assert.ErrorIs(t, err, ErrInvalidKeyMappingKey, in)
	}
}

func TestKeyCodeForRune(t *testing.T) {
	code, ok := KeyCodeForRune('\r')
	assert.True(t, ok)
	assert.Equal(t, KeyReturn, code)

	code, ok = KeyCodeForRune(0x7f)
	assert.True(t, ok)
	assert.Equal(t, KeyBackspace, code)

	upper, _ := KeyCodeForRune('K')
	lower, _ := KeyCodeForRune('k')
	assert.Equal(t, lower, upper)

	_, ok = KeyCodeForRune('é')
	assert.False(t, ok)
}
