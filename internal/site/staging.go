package site

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/pagesmith/internal/logfields"
)

// staging builds into <output>_stage and promotes it over <output> in one
// rename, so readers never observe a half-written site.
type staging struct {
	output string
	dir    string
}

func newStaging(output string) *staging {
	return &staging{output: output}
}

// begin creates an empty staging directory, discarding leftovers from an
// interrupted build.
func (s *staging) begin() error {
	dir := s.output + "_stage"
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove stale staging directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	s.dir = dir
	slog.Debug("Initialized staging directory", logfields.Path(dir), logfields.To(s.output))
	return nil
}

// finalize moves the current output to <output>.prev, renames staging into
// place and removes the backup before returning.
func (s *staging) finalize() error {
	if s.dir == "" {
		return fmt.Errorf("no staging directory initialized")
	}
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("staging directory missing: %w", err)
	}

	prev := s.output + ".prev"
	if err := os.RemoveAll(prev); err != nil {
		slog.Warn("Failed to remove previous backup", logfields.Path(prev), logfields.Error(err))
	}
	if _, err := os.Stat(s.output); err == nil {
		if err := os.Rename(s.output, prev); err != nil {
			return fmt.Errorf("backup existing output: %w", err)
		}
	}
	if err := os.Rename(s.dir, s.output); err != nil {
		return fmt.Errorf("promote staging: %w", err)
	}
	s.dir = ""
	if err := os.RemoveAll(prev); err != nil {
		slog.Warn("Failed to remove previous backup", logfields.Path(prev), logfields.Error(err))
	}
	slog.Debug("Promoted staging directory", logfields.Path(s.output))
	return nil
}

// abort removes the staging directory after a failed build.
func (s *staging) abort() {
	if s.dir == "" {
		return
	}
	dir := s.dir
	s.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("Failed to remove staging directory after abort", logfields.Path(dir), logfields.Error(err))
		return
	}
	slog.Debug("Removed staging directory after abort", logfields.Path(dir))
}
