// Package storage keeps uploaded report images on local disk behind opaque
// references.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidRef = errors.New("invalid blob reference")
	ErrTooLarge   = errors.New("blob exceeds size limit")
)

// LocalStore writes blobs under a root directory. References are a uuid plus
// the original extension, so a reference never names a path outside root.
type LocalStore struct {
	root     string
	maxBytes int64
}

// NewLocalStore creates root if needed. maxBytes <= 0 means unlimited.
func NewLocalStore(root string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: root, maxBytes: maxBytes}, nil
}

// Save copies r into a new blob and returns its reference. filename only
// contributes its extension.
func (s *LocalStore) Save(r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	ref := uuid.NewString() + ext

	f, err := os.OpenFile(filepath.Join(s.root, ref), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.root, ref))
		return "", err
	}
	return ref, nil
}

// Open returns the blob for ref. The caller closes it.
func (s *LocalStore) Open(ref string) (io.ReadCloser, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes the blob. Deleting a missing blob is not an error.
func (s *LocalStore) Delete(ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) path(ref string) (string, error) {
	id := strings.TrimSuffix(ref, filepath.Ext(ref))
	if _, err := uuid.Parse(id); err != nil || filepath.Base(ref) != ref {
		return "", ErrInvalidRef
	}
	return filepath.Join(s.root, ref), nil
}
