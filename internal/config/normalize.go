package config

import (
	"fmt"
	"path"
	"strings"
)

// NormalizationResult collects non-fatal notes produced while normalizing.
type NormalizationResult struct {
	Warnings []string
}

// NormalizeConfig canonicalizes enumerations and path spellings in place.
func NormalizeConfig(cfg *Config) *NormalizationResult {
	res := &NormalizationResult{}

	if level, err := logLevelNormalizer.NormalizeWithError(string(cfg.Logging.Level)); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("logging.level: %v; using %q", err, LogLevelInfo))
		cfg.Logging.Level = LogLevelInfo
	} else {
		cfg.Logging.Level = level
	}
	if format, err := logFormatNormalizer.NormalizeWithError(string(cfg.Logging.Format)); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("logging.format: %v; using %q", err, LogFormatText))
		cfg.Logging.Format = LogFormatText
	} else {
		cfg.Logging.Format = format
	}

	for i := range cfg.Plugins {
		cfg.Plugins[i].Name = strings.ToLower(strings.TrimSpace(cfg.Plugins[i].Name))
	}
	for i := range cfg.Bundles {
		cfg.Bundles[i].Name = strings.ToLower(strings.TrimSpace(cfg.Bundles[i].Name))
	}
	for i := range cfg.Passthrough {
		pc := &cfg.Passthrough[i]
		pc.From = strings.TrimSpace(pc.From)
		pc.To = normalizeURLPath(pc.To)
	}
	return res
}

// normalizeURLPath turns "/images/" into "images"; "" stays empty and "/" becomes ".".
func normalizeURLPath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return "."
	}
	if strings.HasPrefix(p, "..") || strings.Contains(p, "/../") || strings.HasSuffix(p, "/..") {
		// Keep traversal visible so validation rejects it.
		return path.Clean(p)
	}
	return strings.TrimPrefix(cleaned, "/")
}
