package site

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/frontmatter"
)

// ManifestFile records page fingerprints for incremental builds.
const ManifestFile = ".pagesmith-manifest.json"

const manifestVersion = 1

// Manifest maps source pages to the fingerprint and outputs of their last
// render.
type Manifest struct {
	Version    int                      `json:"version"`
	GlobalHash string                   `json:"global_hash"`
	Pages      map[string]ManifestEntry `json:"pages"`
}

// ManifestEntry is the record for one page.
type ManifestEntry struct {
	Fingerprint string   `json:"fingerprint"`
	Output      string   `json:"output"`
	Bundles     []string `json:"bundles,omitempty"`
}

func newManifest(globalHash string) *Manifest {
	return &Manifest{Version: manifestVersion, GlobalHash: globalHash, Pages: make(map[string]ManifestEntry)}
}

// loadManifest reads the manifest in dir. A missing or unreadable manifest
// yields nil so the build falls back to a full render.
func loadManifest(dir string) *Manifest {
	// #nosec G304 - dir is the configured output directory
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil || m.Version != manifestVersion {
		return nil
	}
	return &m
}

func (m *Manifest) save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o600)
}

// reusable returns the previous entry for rel when its fingerprint matches.
func (m *Manifest) reusable(rel, fingerprint, globalHash string) (ManifestEntry, bool) {
	if m == nil || m.GlobalHash != globalHash {
		return ManifestEntry{}, false
	}
	e, ok := m.Pages[rel]
	return e, ok && e.Fingerprint == fingerprint
}

// pageFingerprint hashes a page's front matter and body.
func pageFingerprint(doc *frontmatter.Document) string {
	return mdfp.CalculateFingerprintFromParts(string(doc.Raw), string(doc.Body))
}

// globalHash covers every input that affects all pages: the resolved
// configuration, the layout files and the site-wide bundle content.
func globalHash(cfg *config.Config, bundleDigest string) (string, error) {
	h := sha256.New()

	data, err := config.Marshal(cfg)
	if err != nil {
		return "", err
	}
	_, _ = h.Write(data)
	_, _ = h.Write([]byte(bundleDigest))

	dir := cfg.LayoutsDir()
	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)
	for _, f := range files {
		// #nosec G304 - layout files under the input directory
		content, err := os.ReadFile(f)
		if err != nil {
			return "", err
		}
		rel, _ := filepath.Rel(dir, f)
		_, _ = h.Write([]byte(filepath.ToSlash(rel)))
		_, _ = h.Write(content)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
