package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// builtinPrompts seed the prompt directory and answer for files that are
// missing, blank or unreadable.
var builtinPrompts = map[string]string{
	driven.PromptSummarise: domain.DefaultSummaryInstruction,
}

// PromptStore reads prompts from <dir>/<name>.txt. The directory is
// seeded on the first Load, never by the constructor.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore returns a store rooted at dir, or at
// ~/.cortexdocs/prompts when dir is empty.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string { return s.dir }

// Load returns the named prompt. Files are read once and cached until
// Reload.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(func() { s.seedErr = s.seed() })

	if prompt, ok := s.cached(name); ok {
		return prompt, nil
	}

	prompt, err := s.read(name)
	if err == nil && s.seedErr == nil {
		s.mu.Lock()
		if existing, ok := s.cache[name]; ok {
			prompt = existing
		} else {
			s.cache[name] = prompt
		}
		s.mu.Unlock()
		return prompt, nil
	}

	if builtin, ok := builtinPrompts[name]; ok {
		return builtin, nil
	}
	if s.seedErr != nil {
		return "", fmt.Errorf("prompt store init failed: %w", s.seedErr)
	}
	return "", fmt.Errorf("load prompt %q: %w", name, err)
}

// Reload drops cached prompts so the next Load rereads the files.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

func (s *PromptStore) cached(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prompt, ok := s.cache[name]
	return prompt, ok
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seed creates the directory and writes any builtin prompt without a file.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	for name, content := range builtinPrompts {
		_, err := os.Stat(s.path(name))
		if !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(s.path(name), []byte(content+"\n"), 0600); err != nil {
			return fmt.Errorf("create default prompt %q: %w", name, err)
		}
	}
	return nil
}

// read returns the trimmed file content; a blank file is ErrNotFound.
func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", domain.ErrNotFound
	}
	return prompt, nil
}
