package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultStorageFileName = ".launchpad-history.json"
)

// Kind is the operation a record describes
type Kind string

const (
	KindSwap   Kind = "swap"
	KindClaim  Kind = "claim"
	KindForum  Kind = "forum"
	KindLaunch Kind = "launch"
)

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSwap, KindClaim, KindForum, KindLaunch:
		return k, nil
	default:
		return "", fmt.Errorf("unknown history kind %q", s)
	}
}

// Status is the outcome of a recorded operation
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusPartial   Status = "partial"
)

// Record is one orchestration run
type Record struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary,omitempty"`
	Token     string    `json:"token,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	TxHashes  []string  `json:"txHashes,omitempty"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Store persists records in a JSON file
type Store struct {
	filePath string
	mu       sync.RWMutex
	records  []*Record
}

type fileFormat struct {
	Records []*Record `json:"records"`
}

// NewStore opens the store at filePath, defaulting to the home directory
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	s := &Store{filePath: filePath}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}
	s.records = f.Records
	return nil
}

// save must be called with the write lock held
func (s *Store) save() error {
	data, err := json.MarshalIndent(fileFormat{Records: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// write to a temporary file first, then rename for an atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Add assigns an ID and timestamp when missing and persists the record
func (s *Store) Add(r *Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
	if err := s.save(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return err
	}
	return nil
}

// Get returns the record with the given ID
func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("record '%s' not found", id)
}

// List returns records newest first, optionally filtered by kind
func (s *Store) List(kind Kind) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Count returns the number of stored records
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FilePath returns the storage file path
func (s *Store) FilePath() string {
	return s.filePath
}
