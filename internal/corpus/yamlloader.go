package corpus

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// snapshotFile is the on-disk YAML structure of a corpus snapshot.
//
// Example:
//
//	corpus:
//	  name: "support-mail"
//	sentences:
//	  - "please reset my password"
//	  - "the invoice is attached"
//	vocabulary:
//	  - please
//	  - reset
//	  - password
type snapshotFile struct {
	Corpus struct {
		Name string `yaml:"name"`
	} `yaml:"corpus"`
	Sentences  []string `yaml:"sentences"`
	Vocabulary []string `yaml:"vocabulary"`
}

// LoadFile reads and parses a corpus snapshot YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func LoadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("corpus: open snapshot file %q: %w", path, err)
	}
	defer f.Close()

	snap, err := LoadFromReader(f)
	if err != nil {
		return Snapshot{}, fmt.Errorf("corpus: parse snapshot file %q: %w", path, err)
	}
	return snap, nil
}

// LoadFromReader parses a corpus snapshot YAML document from r. The reader
// is consumed entirely; the caller is responsible for closing it.
func LoadFromReader(r io.Reader) (Snapshot, error) {
	var sf snapshotFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&sf); err != nil {
		return Snapshot{}, fmt.Errorf("corpus: decode snapshot yaml: %w", err)
	}
	return Snapshot{
		Name:      sf.Corpus.Name,
		Sentences: sf.Sentences,
		Words:     sf.Vocabulary,
	}, nil
}
