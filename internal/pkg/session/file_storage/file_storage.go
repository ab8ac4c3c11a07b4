package file_storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"bulk_mail_client/internal/pkg/session/domain"
)

// FileStorage keeps the session as a small JSON key/value document. Writes go
// through a temp file and a rename so the two keys are never split.
type FileStorage struct {
	fs   afero.Fs
	path string
}

func NewFileStorage(fs afero.Fs, path string) *FileStorage {
	return &FileStorage{fs: fs, path: path}
}

// DefaultPath is the session file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bulk-mail-client", "session.json"), nil
}

func (f *FileStorage) SaveSession(_ context.Context, session domain.Session) error {
	data, err := json.MarshalIndent(map[string]string{
		domain.KeyUserEmail:   session.Email,
		domain.KeyAccessToken: session.AccessToken,
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	// Each writer gets its own temp file so concurrent clients cannot
	// interleave before the rename.
	tmp, err := afero.TempFile(f.fs, filepath.Dir(f.path), "session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := f.fs.Chmod(tmpName, 0600); err != nil {
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := f.fs.Rename(tmpName, f.path); err != nil {
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace session: %w", err)
	}
	return nil
}

func (f *FileStorage) GetSession(_ context.Context) (*domain.Session, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", f.path, err)
	}

	email, hasEmail := values[domain.KeyUserEmail]
	token, hasToken := values[domain.KeyAccessToken]
	if !hasEmail && !hasToken {
		return nil, nil
	}
	return &domain.Session{Email: email, AccessToken: token}, nil
}

func (f *FileStorage) DeleteSession(_ context.Context) error {
	err := f.fs.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
