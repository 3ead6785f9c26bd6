package common

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore holds uploaded files (blog logos, post images). Deletes are
// best-effort: callers log failures and carry on with the primary mutation.
type BlobStore interface {
	Put(data []byte, ext string) (string, error)
	Delete(ref string) error
}

type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create blob directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Put(data []byte, ext string) (string, error) {
	randomBytes := make([]byte, 16)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}

	name := hex.EncodeToString(randomBytes)
	if ext != "" {
		name = name + "." + strings.TrimPrefix(ext, ".")
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", err
	}

	return name, nil
}

func (s *FileStore) Delete(ref string) error {
	// refuse anything that escapes the blob directory
	if ref == "" || ref != filepath.Base(ref) {
		return ErrBlobNotFound
	}

	err := os.Remove(filepath.Join(s.dir, ref))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrBlobNotFound
		}
		return err
	}

	return nil
}
