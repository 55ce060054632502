package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/keyclack/internal/model"
)

// Bank sources.
const (
	SourceBundled = "bundled"
	SourceUser    = "user"
)

// ErrNotFound is returned when no bank has the requested name.
var ErrNotFound = errors.New("bank not found")

// descriptorFiles are tried in order inside a user bank directory.
var descriptorFiles = []string{"bank.json", "bank.yaml", "bank.yml", "bank.toml"}

// Entry is a bank together with where its samples come from.
type Entry struct {
	Bank     *model.SoundBank
	Resolver Resolver
	Source   string
	Dir      string // user banks only
}

// Catalog lists bundled and user banks. A user bank replaces a bundled bank
// of the same name.
type Catalog struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	userDir string
	entries []Entry
}

// NewCatalog creates a catalog reading user banks from userDir. Call Reload
// to populate it.
func NewCatalog(userDir string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{logger: logger, userDir: userDir}
}

// UserDir returns the user banks directory.
func (c *Catalog) UserDir() string {
	return c.userDir
}

// Reload rescans bundled and user banks. A broken user bank is skipped with
// a warning; only a broken bundled index is an error.
func (c *Catalog) Reload() error {
	bundled, err := LoadBundled()
	if err != nil {
		return err
	}

	entries := bundled
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Bank.Name] = i
	}

	for _, e := range c.loadUserBanks() {
		if i, ok := index[e.Bank.Name]; ok {
			entries[i] = e
			continue
		}
		index[e.Bank.Name] = len(entries)
		entries = append(entries, e)
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	c.logger.Debug("bank catalog loaded", "banks", len(entries), "user_dir", c.userDir)
	return nil
}

func (c *Catalog) loadUserBanks() []Entry {
	if c.userDir == "" {
		return nil
	}
	dirents, err := os.ReadDir(c.userDir)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("failed to read banks directory", "dir", c.userDir, "error", err)
		}
		return nil
	}

	var entries []Entry
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(c.userDir, d.Name())
		b, err := LoadDescriptorDir(dir)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				c.logger.Warn("skipping user bank", "dir", dir, "error", err)
			}
			continue
		}
		entries = append(entries, Entry{
			Bank:     b,
			Resolver: DirResolver{Dir: dir},
			Source:   SourceUser,
			Dir:      dir,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Bank.Name < entries[j].Bank.Name })
	return entries
}

// LoadDescriptorDir reads the first descriptor found in dir. A descriptor
// without a name takes the directory name.
func LoadDescriptorDir(dir string) (*model.SoundBank, error) {
	for _, name := range descriptorFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		d, err := ParseDescriptor(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if d.Name == "" {
			d.Name = filepath.Base(dir)
		}
		return d.Bank()
	}
	return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
}

// ParseDescriptor decodes a descriptor, choosing the format from the file
// name's extension.
func ParseDescriptor(filename string, data []byte) (model.Descriptor, error) {
	var d model.Descriptor
	var err error
	switch filepath.Ext(filename) {
	case ".json":
		err = json.Unmarshal(data, &d)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &d)
	case ".toml":
		err = toml.Unmarshal(data, &d)
	default:
		return d, fmt.Errorf("unsupported descriptor format %q", filepath.Ext(filename))
	}
	if err != nil {
		return d, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	return d, nil
}

// List returns every bank in display order.
func (c *Catalog) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns the bank names in display order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Bank.Name
	}
	return names
}

// Find returns the bank called name.
func (c *Catalog) Find(name string) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.Bank.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%q: %w", name, ErrNotFound)
}

// Restore picks the bank to start with: the one named last if it still
// exists, otherwise the first listed.
func (c *Catalog) Restore(last string) (Entry, error) {
	if last != "" {
		if e, err := c.Find(last); err == nil {
			return e, nil
		}
		c.logger.Info("last bank no longer available", "bank", last)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return c.entries[0], nil
}
