package server

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

const promptFileName = "system_prompt.txt"

// PromptStore keeps the shared system prompt in a single file under the
// data directory.
type PromptStore struct {
	fs   afero.Fs
	path string
}

// NewPromptStore creates a prompt store rooted at dir.
func NewPromptStore(fsys afero.Fs, dir string) *PromptStore {
	return &PromptStore{fs: fsys, path: filepath.Join(dir, promptFileName)}
}

// Read returns the saved prompt, or "" when none has been written yet.
func (p *PromptStore) Read() (string, error) {
	data, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// Write replaces the saved prompt.
func (p *PromptStore) Write(content string) error {
	if err := p.fs.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(p.fs, p.path, []byte(content), 0o644)
}
