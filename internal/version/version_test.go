package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if BuildTime == "" || GitCommit == "" {
		t.Error("build metadata should be initialized")
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, Version) {
		t.Errorf("expected version line to start with %q, got %q", Version, s)
	}
	if !strings.Contains(s, GitCommit) {
		t.Errorf("expected commit in version line, got %q", s)
	}
}
