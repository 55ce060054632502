package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Key codes follow the macOS virtual key code layout (ANSI). Bank key maps
// and every key source speak this code space.
const (
	KeyReturn    uint16 = 36
	KeyTab       uint16 = 48
	KeySpace     uint16 = 49
	KeyBackspace uint16 = 51
	KeyEscape    uint16 = 53
)

var keyNames = map[string]uint16{
	"enter":     KeyReturn,
	"return":    KeyReturn,
	"tab":       KeyTab,
	"space":     KeySpace,
	"backspace": KeyBackspace,
	"delete":    KeyBackspace,
	"escape":    KeyEscape,
	"esc":       KeyEscape,
}

// asciiKeys maps printable characters to the key that produces them on an
// ANSI layout. Shifted characters share the code of their base key.
var asciiKeys = map[rune]uint16{
	'a': 0, 's': 1, 'd': 2, 'f': 3, 'h': 4, 'g': 5, 'z': 6, 'x': 7,
	'c': 8, 'v': 9, 'b': 11, 'q': 12, 'w': 13, 'e': 14, 'r': 15,
	'y': 16, 't': 17, '1': 18, '2': 19, '3': 20, '4': 21, '6': 22,
	'5': 23, '=': 24, '9': 25, '7': 26, '-': 27, '8': 28, '0': 29,
	']': 30, 'o': 31, 'u': 32, '[': 33, 'i': 34, 'p': 35, 'l': 37,
	'j': 38, '\'': 39, 'k': 40, ';': 41, '\\': 42, ',': 43, '/': 44,
	'n': 45, 'm': 46, '.': 47, '`': 50,

	'!': 18, '@': 19, '#': 20, '$': 21, '^': 22, '%': 23, '+': 24,
	'(': 25, '&': 26, '_': 27, '*': 28, ')': 29, '}': 30, '{': 33,
	'"': 39, ':': 41, '|': 42, '<': 43, '?': 44, '>': 47, '~': 50,
}

// KeyCodeForRune maps a character typed in a terminal to a key code.
func KeyCodeForRune(r rune) (uint16, bool) {
	switch r {
	case '\r', '\n':
		return KeyReturn, true
	case '\t':
		return KeyTab, true
	case ' ':
		return KeySpace, true
	case 0x7f, 0x08:
		return KeyBackspace, true
	case 0x1b:
		return KeyEscape, true
	}
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	code, ok := asciiKeys[r]
	return code, ok
}

// ParseKeyCode accepts a decimal key code, a key name such as "enter", or a
// single non-digit character.
func ParseKeyCode(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if code, ok := keyNames[strings.ToLower(s)]; ok {
		return code, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		if r := []rune(s); len(r) == 1 {
			if code, ok := KeyCodeForRune(r[0]); ok {
				return code, nil
			}
		}
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidKeyMappingKey)
	}
	return uint16(n), nil
}
