package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafeLocator rejects locators that are absolute or would escape the
// base directory. Locators arrive in client payloads, so every resolution
// goes through CleanLocator before touching the filesystem.
var ErrUnsafeLocator = errors.New("unsafe storage locator")

// CleanLocator normalizes a locator to a relative path confined to the
// base directory. Absolute paths, backslashes and ".." escapes are refused.
func CleanLocator(locator string) (string, error) {
	if locator == "" || filepath.IsAbs(locator) || strings.Contains(locator, "\\") {
		return "", ErrUnsafeLocator
	}
	cleaned := filepath.Clean(locator)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrUnsafeLocator
	}
	return cleaned, nil
}

// AttachmentStore persists submission attachments on disk under a base
// directory. The workflow core only ever handles opaque storage locators;
// bytes arrive through the upload collaborator.
type AttachmentStore struct {
	baseDir string
}

// NewAttachmentStore ensures the base directory exists and returns a handle.
func NewAttachmentStore(baseDir string) (*AttachmentStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &AttachmentStore{baseDir: baseDir}, nil
}

// Save writes the given bytes to the provided locator under the base dir.
func (s *AttachmentStore) Save(locator string, data []byte) (string, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return locator, nil
}

// SaveStream copies from reader into the target locator.
func (s *AttachmentStore) SaveStream(locator string, r io.Reader) (string, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create attachment file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write attachment stream: %w", err)
	}
	return locator, nil
}

// Open returns a read-only handle for the stored attachment.
func (s *AttachmentStore) Open(locator string) (*os.File, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return file, nil
}

// Delete removes a stored attachment if present.
func (s *AttachmentStore) Delete(locator string) error {
	path, err := s.resolve(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// Release removes every locator in the list, collecting the first failure.
// Used when a submission is deleted and its storage must be reclaimed.
func (s *AttachmentStore) Release(locators []string) error {
	var firstErr error
	for _, locator := range locators {
		if err := s.Delete(locator); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Path resolves a locator to its on-disk path. Download handlers serve
// files from here after the signed token checks out.
func (s *AttachmentStore) Path(locator string) (string, error) {
	return s.resolve(locator)
}

func (s *AttachmentStore) resolve(locator string) (string, error) {
	cleaned, err := CleanLocator(locator)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
