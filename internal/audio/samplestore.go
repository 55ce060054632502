package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/jmylchreest/keyclack/internal/model"
)

// Resolver opens the encoded bytes of a bank file by name.
type Resolver interface {
	Open(name string) (io.ReadCloser, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (io.ReadCloser, error)

// Open calls f(name).
func (f ResolverFunc) Open(name string) (io.ReadCloser, error) {
	return f(name)
}

// Sample is one decoded bank file.
type Sample struct {
	Name   string
	Buffer *beep.Buffer
}

// SampleSet holds the decoded samples of one bank in file order, with
// failed files left out. A set is read-only once loaded. Its Len, not the
// bank's file count, bounds every lookup.
type SampleSet struct {
	bank    string
	samples []Sample
}

// Bank returns the name of the bank the set was loaded from.
func (s *SampleSet) Bank() string {
	if s == nil {
		return ""
	}
	return s.bank
}

// Len returns the number of playable samples.
func (s *SampleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.samples)
}

// At returns the buffer at index i, or false when i is out of range.
func (s *SampleSet) At(i int) (*beep.Buffer, bool) {
	if s == nil || i < 0 || i >= len(s.samples) {
		return nil, false
	}
	return s.samples[i].Buffer, true
}

// Names returns the file names of the loaded samples.
func (s *SampleSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.samples))
	for i, smp := range s.samples {
		names[i] = smp.Name
	}
	return names
}

// Frames returns the total decoded length across all samples.
func (s *SampleSet) Frames() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, smp := range s.samples {
		total += smp.Buffer.Len()
	}
	return total
}

// LoadReport summarizes one bank load.
type LoadReport struct {
	ID        string
	Bank      string
	Requested int
	Loaded    int
	Frames    int
	Failures  []FileError
	Elapsed   time.Duration
}

// Partial reports whether some requested files were skipped.
func (r LoadReport) Partial() bool {
	return r.Loaded < r.Requested
}

// SampleStore decodes banks and owns the currently installed sample set.
// Load may run on any goroutine; Swap, Current and Release belong to the
// engine's control queue.
type SampleStore struct {
	logger   *slog.Logger
	maxBytes int64

	current *SampleSet
}

// NewSampleStore creates a store. A maxBytes of zero uses
// DefaultMaxSampleBytes.
func NewSampleStore(logger *slog.Logger, maxBytes int64) *SampleStore {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSampleBytes
	}
	return &SampleStore{
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// Load decodes every file of the bank in order. Files that cannot be opened
// or decoded are skipped and recorded in the report. Load only fails when
// the resolver is nil or ctx is cancelled.
func (s *SampleStore) Load(ctx context.Context, bank *model.SoundBank, resolver Resolver) (*SampleSet, LoadReport, error) {
	if bank == nil {
		return nil, LoadReport{}, ErrNilBank
	}
	report := LoadReport{
		Bank:      bank.Name,
		Requested: len(bank.Files),
	}
	if resolver == nil {
		return nil, report, ErrNilResolver
	}

	start := time.Now()
	set := &SampleSet{
		bank:    bank.Name,
		samples: make([]Sample, 0, len(bank.Files)),
	}

	for _, name := range bank.Files {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		buffer, err := s.loadFile(resolver, name)
		if err != nil {
			s.logger.Warn("skipping sample", "bank", bank.Name, "file", name, "error", err)
			report.Failures = append(report.Failures, FileError{Name: name, Err: err})
			continue
		}
		set.samples = append(set.samples, Sample{Name: name, Buffer: buffer})
	}

	report.Loaded = set.Len()
	report.Frames = set.Frames()
	report.Elapsed = time.Since(start)

	s.logger.Info("loaded bank",
		"bank", bank.Name,
		"loaded", report.Loaded,
		"requested", report.Requested,
		"elapsed", report.Elapsed)

	return set, report, nil
}

func (s *SampleStore) loadFile(resolver Resolver, name string) (*beep.Buffer, error) {
	rc, err := resolver.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}
	defer func() { _ = rc.Close() }()

	buffer, err := decodeSample(name, rc, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}
	return buffer, nil
}

// Swap installs set as the current set and returns the one it replaced.
// Sets are never mutated after Load, so readers holding the old set stay
// valid until they drop it.
func (s *SampleStore) Swap(set *SampleSet) *SampleSet {
	old := s.current
	s.current = set
	return old
}

// Current returns the installed set, or nil before the first swap.
func (s *SampleStore) Current() *SampleSet {
	return s.current
}

// Release drops the installed set.
func (s *SampleStore) Release() {
	s.current = nil
}
