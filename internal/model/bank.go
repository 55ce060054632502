// Package model defines the core data structures for keyclack.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

// Validation errors.
var (
	ErrEmptyBankName        = errors.New("bank name cannot be empty")
	ErrNoFiles              = errors.New("bank must list at least one file")
	ErrNegativeNonUnique    = errors.New("non_unique_count cannot be negative")
	ErrNegativeMappedIndex  = errors.New("key_audio_map index cannot be negative")
	ErrInvalidKeyMappingKey = errors.New("key_audio_map key is not a key code")
)

// SoundBank is a named collection of sample files plus the rules that map a
// key code to one of them. A bank is immutable once built; use NewSoundBank
// or Descriptor.Bank to construct one.
type SoundBank struct {
	Name           string
	DisplayName    string
	Files          []string
	NonUniqueCount int
	KeyToIndex     map[uint16]int
}

// NewSoundBank copies the inputs so later changes by the caller do not leak
// into the bank.
func NewSoundBank(name, displayName string, files []string, nonUnique int, keyMap map[uint16]int) *SoundBank {
	b := &SoundBank{
		Name:           name,
		DisplayName:    displayName,
		Files:          slices.Clone(files),
		NonUniqueCount: nonUnique,
		KeyToIndex:     make(map[uint16]int, len(keyMap)),
	}
	for k, v := range keyMap {
		b.KeyToIndex[k] = v
	}
	return b
}

// AudioIndex resolves a key code to a sample index. Explicit mappings win;
// otherwise keys are spread over the first NonUniqueCount samples. The
// returned index is not checked against the loaded sample count.
func (b *SoundBank) AudioIndex(keyID uint16) (int, bool) {
	if b == nil {
		return 0, false
	}
	if idx, ok := b.KeyToIndex[keyID]; ok {
		return idx, true
	}
	if b.NonUniqueCount > 0 {
		return int(keyID) % b.NonUniqueCount, true
	}
	return 0, false
}

// Title returns the display name, falling back to the name.
func (b *SoundBank) Title() string {
	if b.DisplayName != "" {
		return b.DisplayName
	}
	return b.Name
}

// Validate checks the bank for structural problems. Indices pointing past the
// end of Files are allowed; playback bounds-checks them.
func (b *SoundBank) Validate() error {
	if b.Name == "" {
		return ErrEmptyBankName
	}
	if len(b.Files) == 0 {
		return ErrNoFiles
	}
	if b.NonUniqueCount < 0 {
		return ErrNegativeNonUnique
	}
	for k, v := range b.KeyToIndex {
		if v < 0 {
			return fmt.Errorf("key %d: %w", k, ErrNegativeMappedIndex)
		}
	}
	return nil
}

// Descriptor converts the bank back to its on-disk form.
func (b *SoundBank) Descriptor() Descriptor {
	d := Descriptor{
		Name:           b.Name,
		DisplayName:    b.DisplayName,
		Files:          slices.Clone(b.Files),
		NonUniqueCount: b.NonUniqueCount,
	}
	if len(b.KeyToIndex) > 0 {
		d.KeyAudioMap = make(map[string]int, len(b.KeyToIndex))
		for k, v := range b.KeyToIndex {
			d.KeyAudioMap[strconv.Itoa(int(k))] = v
		}
	}
	return d
}

// MappedKeys returns the explicitly mapped key codes in ascending order.
func (b *SoundBank) MappedKeys() []uint16 {
	keys := make([]uint16, 0, len(b.KeyToIndex))
	for k := range b.KeyToIndex {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Descriptor is the serialized form of a SoundBank as found in bank.json,
// bank.yaml or bank.toml. Map keys are key codes or key names.
type Descriptor struct {
	Name           string         `json:"name" yaml:"name" toml:"name"`
	DisplayName    string         `json:"display_name,omitempty" yaml:"display_name,omitempty" toml:"display_name,omitempty"`
	Files          []string       `json:"files" yaml:"files" toml:"files"`
	NonUniqueCount int            `json:"non_unique_count" yaml:"non_unique_count" toml:"non_unique_count"`
	KeyAudioMap    map[string]int `json:"key_audio_map,omitempty" yaml:"key_audio_map,omitempty" toml:"key_audio_map,omitempty"`
}

// Bank parses the key map and validates the result.
func (d Descriptor) Bank() (*SoundBank, error) {
	keyMap := make(map[uint16]int, len(d.KeyAudioMap))
	for k, v := range d.KeyAudioMap {
		code, err := ParseKeyCode(k)
		if err != nil {
			return nil, fmt.Errorf("bank %q: %w", d.Name, err)
		}
		keyMap[code] = v
	}
	b := NewSoundBank(d.Name, d.DisplayName, d.Files, d.NonUniqueCount, keyMap)
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("bank %q: %w", d.Name, err)
	}
	return b, nil
}

// NewActivationID returns a sortable identifier for one bank activation.
func NewActivationID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}
