// Package passthrough copies files and directories from the input tree to the
// output tree verbatim.
package passthrough

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
)

// Copier resolves passthrough rules and copies their sources.
type Copier struct {
	// InputDir is the base for sources without a "./" prefix.
	InputDir string
	// ProjectDir is the base for sources written as "./path".
	ProjectDir string
}

// RuleResult summarizes a single rule.
type RuleResult struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Files int    `json:"files"`
	Bytes int64  `json:"bytes"`
}

// Result summarizes a Copy run.
type Result struct {
	Files int          `json:"files"`
	Bytes int64        `json:"bytes"`
	Rules []RuleResult `json:"rules"`
}

// IsGlob reports whether a rule source is a glob pattern.
func IsGlob(from string) bool {
	return strings.ContainsAny(from, "*?[")
}

// Resolve returns the absolute-or-base-relative source path for from.
func (c *Copier) Resolve(from string) string {
	if strings.HasPrefix(from, "./") && c.ProjectDir != "" {
		return filepath.Join(c.ProjectDir, filepath.FromSlash(from))
	}
	return filepath.Join(c.InputDir, filepath.FromSlash(from))
}

// Copy applies every rule in order, writing under outputDir.
func (c *Copier) Copy(ctx context.Context, rules config.PassthroughList, outputDir string) (*Result, error) {
	res := &Result{Rules: make([]RuleResult, 0, len(rules))}
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rr, err := c.copyRule(ctx, rule, outputDir)
		if err != nil {
			return res, err
		}
		res.Files += rr.Files
		res.Bytes += rr.Bytes
		res.Rules = append(res.Rules, rr)
		slog.Debug("Passthrough copy", logfields.From(rule.From), logfields.To(rule.To), logfields.Count(rr.Files))
	}
	return res, nil
}

func (c *Copier) copyRule(ctx context.Context, rule config.PassthroughCopy, outputDir string) (RuleResult, error) {
	rr := RuleResult{From: rule.From, To: rule.To}

	dest, err := confine(outputDir, rule.To)
	if err != nil {
		return rr, err
	}

	src := c.Resolve(rule.From)
	if IsGlob(rule.From) {
		matches, err := filepath.Glob(src)
		if err != nil {
			return rr, errors.ValidationError("invalid passthrough glob").
				WithContext("from", rule.From).WithCause(err).Build()
		}
		if len(matches) == 0 {
			slog.Warn("Passthrough glob matched nothing", logfields.From(rule.From))
		}
		for _, m := range matches {
			n, b, err := copyPath(ctx, m, filepath.Join(dest, filepath.Base(m)))
			if err != nil {
				return rr, wrapCopyError(err, rule)
			}
			rr.Files += n
			rr.Bytes += b
		}
		return rr, nil
	}

	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		slog.Warn("Passthrough source not found", logfields.From(rule.From))
		return rr, nil
	}
	if err != nil {
		return rr, errors.FileSystemError("stat passthrough source").
			WithContext("from", rule.From).WithCause(err).Build()
	}
	target := dest
	if !info.IsDir() && (rule.To == "." || rule.To == "" || isDir(dest)) {
		target = filepath.Join(dest, filepath.Base(src))
	}
	n, b, err := copyPath(ctx, src, target)
	if err != nil {
		return rr, wrapCopyError(err, rule)
	}
	rr.Files, rr.Bytes = n, b
	return rr, nil
}

func wrapCopyError(err error, rule config.PassthroughCopy) error {
	if errors.IsClassified(err) {
		return err
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return err
	}
	return errors.WrapError(err, errors.CategoryFileSystem, "passthrough copy failed").
		WithContext("from", rule.From).WithContext("to", rule.To).Build()
}

// confine joins to onto outputDir and rejects results outside it.
func confine(outputDir, to string) (string, error) {
	dest := filepath.Join(outputDir, filepath.FromSlash(to))
	rel, err := filepath.Rel(outputDir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.ValidationError("passthrough destination escapes output directory").
			WithContext("to", to).Build()
	}
	return dest, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// copyPath copies a file or directory tree from src to dst. A symlinked src
// is followed; symlinked directories below it are skipped.
func copyPath(ctx context.Context, src, dst string) (int, int64, error) {
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return 0, 0, err
	}
	src = resolved
	info, err := os.Stat(src)
	if err != nil {
		return 0, 0, err
	}
	if !info.IsDir() {
		n, err := copyFile(src, dst, info.Mode())
		return 1, n, err
	}

	files := 0
	var total int64
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if d.Type()&fs.ModeSymlink != 0 {
				slog.Debug("Skipping symlinked directory", logfields.Path(path))
				return nil
			}
			return os.MkdirAll(target, fi.Mode().Perm()|0o700)
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		n, err := copyFile(path, target, fi.Mode())
		if err != nil {
			return err
		}
		files++
		total += n
		return nil
	})
	return files, total, err
}

func copyFile(src, dst string, mode fs.FileMode) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return 0, err
	}
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dstFile, srcFile)
	if cerr := dstFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}
	return n, os.Chmod(dst, mode.Perm())
}
