package bank

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/jmylchreest/keyclack/internal/model"
)

// EmbeddedBanks contains the bundled bank index and sample files.
//
//go:embed banks
var EmbeddedBanks embed.FS

const bundledIndex = "banks/banks.json"

// DefaultBankName is the bank used when nothing else was selected.
const DefaultBankName = "classic"

// LoadBundled parses the embedded bank index. Each bank's samples live in
// banks/<name>/.
func LoadBundled() ([]Entry, error) {
	return loadIndex(EmbeddedBanks, bundledIndex, "banks")
}

func loadIndex(fsys fs.FS, index, root string) ([]Entry, error) {
	data, err := fs.ReadFile(fsys, index)
	if err != nil {
		return nil, fmt.Errorf("failed to read bank index: %w", err)
	}

	var descriptors []model.Descriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("failed to parse bank index: %w", err)
	}

	entries := make([]Entry, 0, len(descriptors))
	for _, d := range descriptors {
		b, err := d.Bank()
		if err != nil {
			return nil, err
		}
		sub, err := fs.Sub(fsys, root+"/"+b.Name)
		if err != nil {
			return nil, fmt.Errorf("bank %q: %w", b.Name, err)
		}
		entries = append(entries, Entry{
			Bank:     b,
			Resolver: FSResolver{FS: sub},
			Source:   SourceBundled,
		})
	}
	return entries, nil
}
