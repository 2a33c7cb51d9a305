package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation error", err: ValidationError("bad flag").Build(), expected: 2},
		{name: "not found", err: NotFoundError("no input").Build(), expected: 4},
		{name: "config error", err: ConfigError("bad config").Build(), expected: 7},
		{name: "plugin error", err: PluginError("unknown plugin").Build(), expected: 9},
		{name: "render error", err: RenderError("template failed").Build(), expected: 11},
		{name: "wrapped build error", err: fmt.Errorf("outer: %w", BuildError("build failed").Build()), expected: 11},
		{name: "serve error", err: ServeError("bind failed").Build(), expected: 12},
		{name: "internal error", err: InternalError("bug").Build(), expected: 10},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	cause := errors.New("permission denied")
	err := WrapError(cause, CategoryFileSystem, "passthrough copy failed").
		WithContext("from", "images").
		Build()

	t.Run("non-verbose shows message, context and cause", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, slog.Default())
		got := adapter.FormatError(err)
		want := "Error: passthrough copy failed (from=images): permission denied"
		if got != want {
			t.Errorf("FormatError() = %q, want %q", got, want)
		}
	})

	t.Run("verbose shows full classified form", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(true, slog.Default())
		got := adapter.FormatError(err)
		if !strings.Contains(got, "[filesystem:error]") {
			t.Errorf("expected category prefix in verbose output, got %q", got)
		}
	})

	t.Run("internal errors are hidden without verbose", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, slog.Default())
		got := adapter.FormatError(InternalError("nil map").Build())
		if got != "Internal error occurred (use -v for details)" {
			t.Errorf("unexpected internal message %q", got)
		}
	})

	t.Run("unclassified", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, slog.Default())
		if got := adapter.FormatError(&customError{msg: "x"}); got != "Error: x" {
			t.Errorf("unexpected message %q", got)
		}
	})
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logs, out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	adapter := NewCLIErrorAdapter(false, logger)
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ConfigError("unsupported configuration version").Build())

	if code != 7 {
		t.Errorf("expected exit code 7, got %d", code)
	}
	if !strings.Contains(out.String(), "unsupported configuration version") {
		t.Errorf("expected message on output, got %q", out.String())
	}
	if !strings.Contains(logs.String(), "category=config") {
		t.Errorf("expected fatal error to be logged with category, got %q", logs.String())
	}

	code = -1
	adapter.HandleError(nil)
	if code != -1 {
		t.Error("HandleError(nil) must not exit")
	}
}
