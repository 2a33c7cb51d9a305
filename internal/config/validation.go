package config

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

var bundleNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validate checks cross-field invariants after normalization and defaults.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Input) == "" {
		return errors.ValidationError("input directory is required").Build()
	}
	if err := validateOutput(cfg); err != nil {
		return err
	}
	if err := validatePassthrough(cfg.Passthrough); err != nil {
		return err
	}
	if err := validatePlugins(cfg.Plugins); err != nil {
		return err
	}
	if err := validateBundles(cfg.Bundles); err != nil {
		return err
	}

	level := cfg.Markdown.Anchors.Level
	if level < 1 || level > 6 {
		return errors.ValidationError("markdown.anchors.level must be between 1 and 6").
			WithContext("level", level).Build()
	}
	if cfg.Build.Concurrency < 1 {
		return errors.ValidationError("build.concurrency must be at least 1").
			WithContext("concurrency", cfg.Build.Concurrency).Build()
	}
	if cfg.Serve.Port < 1 || cfg.Serve.Port > 65535 {
		return errors.ValidationError("serve.port out of range").
			WithContext("port", cfg.Serve.Port).Build()
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if strings.TrimSpace(cfg.Output) == "" {
		return errors.ValidationError("output directory is required").Build()
	}
	in, err := filepath.Abs(cfg.InputDir())
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "resolve input directory").Build()
	}
	out, err := filepath.Abs(cfg.OutputDir())
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "resolve output directory").Build()
	}
	if in == out {
		return errors.ValidationError("output directory must differ from input directory").
			WithContext("output", cfg.Output).Build()
	}
	if rel, err := filepath.Rel(in, out); err == nil && !strings.HasPrefix(rel, "..") {
		return errors.ValidationError("output directory must not be inside the input directory").
			WithContext("output", cfg.Output).Build()
	}
	return nil
}

func validatePassthrough(rules PassthroughList) error {
	seen := make(map[string]string, len(rules))
	for i, rule := range rules {
		if rule.From == "" {
			return errors.ValidationError(fmt.Sprintf("passthrough[%d]: from is required", i)).Build()
		}
		if rule.To == "" {
			return errors.ValidationError(fmt.Sprintf("passthrough[%d]: to is required", i)).
				WithContext("from", rule.From).Build()
		}
		if to := path.Clean(filepath.ToSlash(rule.To)); to == ".." || strings.HasPrefix(to, "../") {
			return errors.ValidationError(fmt.Sprintf("passthrough[%d]: destination escapes the output directory", i)).
				WithContext("to", rule.To).Build()
		}
		if prev, dup := seen[rule.To]; dup && !strings.Contains(rule.From, "*") {
			return errors.ValidationError(fmt.Sprintf("passthrough[%d]: destination already used", i)).
				WithContext("to", rule.To).WithContext("other", prev).Build()
		}
		seen[rule.To] = rule.From
	}
	return nil
}

func validatePlugins(plugins []PluginConfig) error {
	seen := make(map[string]struct{}, len(plugins))
	for i, p := range plugins {
		if p.Name == "" {
			return errors.ValidationError(fmt.Sprintf("plugins[%d]: name is required", i)).Build()
		}
		if _, dup := seen[p.Name]; dup {
			return errors.ValidationError("plugin declared more than once").
				WithContext("plugin", p.Name).Build()
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

func validateBundles(bundles []BundleConfig) error {
	seen := make(map[string]struct{}, len(bundles))
	for i, b := range bundles {
		if !bundleNamePattern.MatchString(b.Name) {
			return errors.ValidationError(fmt.Sprintf("bundles[%d]: invalid bundle name", i)).
				WithContext("bundle", b.Name).Build()
		}
		if _, dup := seen[b.Name]; dup {
			return errors.ValidationError("bundle declared more than once").
				WithContext("bundle", b.Name).Build()
		}
		seen[b.Name] = struct{}{}
		if strings.HasPrefix(normalizeURLPath(b.Output), "..") {
			return errors.ValidationError("bundle output escapes the output directory").
				WithContext("bundle", b.Name).Build()
		}
	}
	return nil
}
