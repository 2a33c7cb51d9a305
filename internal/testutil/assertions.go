package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FileAssertions provides utilities for asserting file system state in tests.
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

// NewFileAssertions creates a new file assertions helper rooted at baseDir.
func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

// Exists validates that a file or directory exists.
func (fa *FileAssertions) Exists(rel string) *FileAssertions {
	fa.t.Helper()
	if _, err := os.Stat(fa.path(rel)); err != nil {
		fa.t.Errorf("expected %s to exist: %v", rel, err)
	}
	return fa
}

// Missing validates that nothing exists at rel.
func (fa *FileAssertions) Missing(rel string) *FileAssertions {
	fa.t.Helper()
	if _, err := os.Stat(fa.path(rel)); !os.IsNotExist(err) {
		fa.t.Errorf("expected %s to be absent", rel)
	}
	return fa
}

// Contains validates that a file contains expected content.
func (fa *FileAssertions) Contains(rel, expected string) *FileAssertions {
	fa.t.Helper()
	// #nosec G304 - test helper, paths are controlled by test code
	content, err := os.ReadFile(fa.path(rel))
	if err != nil {
		fa.t.Errorf("failed to read %s: %v", rel, err)
		return fa
	}
	if !strings.Contains(string(content), expected) {
		fa.t.Errorf("expected %s to contain %q\nactual content:\n%s", rel, expected, content)
	}
	return fa
}

// NotContains validates that a file does not contain content.
func (fa *FileAssertions) NotContains(rel, unexpected string) *FileAssertions {
	fa.t.Helper()
	// #nosec G304 - test helper, paths are controlled by test code
	content, err := os.ReadFile(fa.path(rel))
	if err != nil {
		fa.t.Errorf("failed to read %s: %v", rel, err)
		return fa
	}
	if strings.Contains(string(content), unexpected) {
		fa.t.Errorf("expected %s not to contain %q", rel, unexpected)
	}
	return fa
}

func (fa *FileAssertions) path(rel string) string {
	return filepath.Join(fa.baseDir, filepath.FromSlash(rel))
}
