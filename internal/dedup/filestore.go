package dedup

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// FileStore persists seen keys as a newline-delimited file, read once at
// open and appended per delivery. Several monitor variants may share the
// same file, so appends take a cross-process flock.
type FileStore struct {
	path string
	fl   *flock.Flock

	mu   sync.Mutex
	seen map[string]struct{}
}

func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		fl:   flock.New(path + ".lock"),
		seen: make(map[string]struct{}),
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("open seen file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			s.seen[line] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seen file: %w", err)
	}
	return s, nil
}

func (s *FileStore) Contains(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok, nil
}

func (s *FileStore) Add(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return nil
	}

	if err := s.fl.Lock(); err != nil {
		return fmt.Errorf("lock seen file: %w", err)
	}
	defer s.fl.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append seen file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, key); err != nil {
		return fmt.Errorf("append seen file: %w", err)
	}
	s.seen[key] = struct{}{}
	return nil
}
