package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
)

// OptionStore persists named string options such as openNoteContexts.
type OptionStore interface {
	LoadOptions(ctx context.Context) (map[string]string, error)
	GetOption(ctx context.Context, name string) (string, bool, error)
	SetOption(ctx context.Context, name, value string) error
}

type FileOptionStore struct {
	path string
	mu   sync.Mutex
}

func NewFileOptionStore(path string) *FileOptionStore {
	return &FileOptionStore{path: path}
}

func (s *FileOptionStore) LoadOptions(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *FileOptionStore) GetOption(ctx context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	options, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, ok := options[name]
	return value, ok, nil
}

func (s *FileOptionStore) SetOption(ctx context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("option name is required")
	}
	options, err := s.load()
	if err != nil {
		return err
	}
	options[name] = value
	return writeJSONAtomic(s.path, options)
}

func (s *FileOptionStore) load() (map[string]string, error) {
	options := map[string]string{}
	if err := readJSON(s.path, &options); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return options, nil
}
