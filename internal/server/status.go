package server

import (
	"fmt"
	"html"
	"net/http"
	"sync"
)

// buildStatus tracks the outcome of the most recent build.
type buildStatus struct {
	mu           sync.RWMutex
	lastErr      error
	hasGoodBuild bool
}

func (b *buildStatus) succeeded() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastErr = nil
	b.hasGoodBuild = true
}

func (b *buildStatus) failed(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastErr = err
}

// get returns the last build's error and whether any build has succeeded.
func (b *buildStatus) get() (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hasGoodBuild, b.lastErr
}

const pageStyle = `body{font-family:sans-serif;max-width:800px;margin:50px auto;padding:20px}h1{color:#d32f2f}pre{background:#f5f5f5;padding:15px;border-radius:4px;overflow-x:auto;white-space:pre-wrap}`

func (s *Server) renderBuildErrorPage(w http.ResponseWriter, buildErr error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusServiceUnavailable)

	msg := "Unknown error"
	if buildErr != nil {
		msg = buildErr.Error()
	}
	_, _ = fmt.Fprintf(w, `<!doctype html><html><head><meta charset="utf-8"><title>Build Failed</title><style>%s</style></head><body><h1>Build Failed</h1><p>The site failed to build. Fix the error below and save to rebuild.</p><pre>%s</pre></body></html>`,
		pageStyle, html.EscapeString(msg))
}

func (s *Server) renderBuildPendingPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = fmt.Fprint(w, `<!doctype html><html><head><meta charset="utf-8"><title>Building</title></head><body><h1>Site is being built</h1><p>This page is replaced once the first build completes.</p></body></html>`)
}
