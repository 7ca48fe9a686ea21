// Package storage provides a typed key-value persistence adapter over
// JSON documents in a data directory.
//
// Persistence is best-effort: reads fall back to caller-supplied
// defaults on missing or corrupt data, and write failures are swallowed
// after logging. In-memory state stays authoritative for the process
// lifetime; durability degrades gracefully.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/healthpalm/aisha/backend/internal/infrastructure/logging"
)

// Store reads and writes JSON values under a directory, one file per key.
type Store struct {
	dir    string
	logger *logging.Logger

	mu        sync.Mutex
	lastSaved *time.Time
}

// New creates a store rooted at dir. The directory is created on first
// write; a missing directory only means every load falls back.
func New(dir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Load reads the value for key into out. out should already hold the
// fallback value; it is left untouched when the key is missing, the
// data is corrupt, or the read fails. Returns true only when a
// persisted value was decoded.
func (s *Store) Load(key string, out interface{}) bool {
	path := s.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("storage read failed, using fallback",
				zap.String("key", key), zap.Error(err))
		}
		return false
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}

	// Decode into a scratch value and assign only on success. A file
	// that parses but does not match the expected shape must not leave
	// a partial decode in the caller's fallback.
	scratch := reflect.New(rv.Elem().Type())
	if decodeErr := sonic.Unmarshal(data, scratch.Interface()); decodeErr != nil {
		// Keep the corrupt file out of the way so the next save
		// starts clean, same as a fresh install.
		backup := path + ".backup"
		if renameErr := os.Rename(path, backup); renameErr == nil {
			s.logger.Warn("corrupt persisted value moved aside",
				zap.String("key", key), zap.String("backup", backup), zap.Error(decodeErr))
		} else {
			s.logger.Warn("corrupt persisted value ignored",
				zap.String("key", key), zap.Error(decodeErr))
		}
		return false
	}

	rv.Elem().Set(scratch.Elem())
	return true
}

// Save serializes value and writes it for key. Failures are logged and
// swallowed: persistence is an optimization, not a correctness
// requirement.
func (s *Store) Save(key string, value interface{}) {
	if err := s.save(key, value); err != nil {
		s.logger.Warn("storage write failed, in-memory state remains authoritative",
			zap.String("key", key), zap.Error(err))
		return
	}

	now := time.Now()
	s.mu.Lock()
	s.lastSaved = &now
	s.mu.Unlock()
}

// LastSaved returns the time of the most recent successful write, or
// nil if nothing has been persisted yet.
func (s *Store) LastSaved() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// Delete removes the persisted value for key. Missing keys and removal
// failures are ignored.
func (s *Store) Delete(key string) {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("storage delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) save(key string, value interface{}) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	// Write-then-rename keeps readers from ever seeing a torn file.
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
