// Package audit persists correction outcomes as append-only JSON lines in a
// local file. The log is meant for offline inspection: tuning the rejection
// threshold, spotting systematic recognizer errors, and building evaluation
// sets from real traffic.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/retellabs/retell/internal/correct"
)

// Compile-time interface check.
var _ correct.Recorder = (*Log)(nil)

// Entry is a single correction outcome written to the log.
type Entry struct {
	Timestamp          time.Time `json:"timestamp"`
	Original           string    `json:"original"`
	Corrected          string    `json:"corrected"`
	Reference          string    `json:"reference,omitempty"`
	Distance           int       `json:"distance"`
	NormalizedDistance float64   `json:"normalized_distance"`
	Applied            bool      `json:"applied"`
}

// Log appends correction outcomes as JSON lines to a local file.
// Safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates a [Log] that writes to the given path. The file is created
// on first write if it does not exist.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Record appends the outcome of one correction call to the log file.
func (l *Log) Record(result *correct.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Timestamp:          time.Now().UTC(),
		Original:           result.Original,
		Corrected:          result.Corrected,
		Reference:          result.Reference,
		Distance:           result.Distance,
		NormalizedDistance: result.NormalizedDistance,
		Applied:            result.Applied,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("audit: write: %w", err)
	}
	return nil
}
