package server

import (
	"bytes"
	"net/http"
	"strings"
)

const (
	maxInjectSize = 512 * 1024
	scriptTag     = `<script async src="/livereload.js"></script>`
)

// injectLiveReload buffers HTML responses up to maxInjectSize and inserts the
// live-reload script before the closing body tag.
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		inj := &injector{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(inj, r)
		inj.finalize()
	})
}

// injector wraps an http.ResponseWriter. Non-HTML and oversized bodies are
// passed through untouched.
type injector struct {
	http.ResponseWriter
	status        int
	buffer        []byte
	buffering     bool
	passthrough   bool
	headerWritten bool
}

func (i *injector) WriteHeader(code int) {
	i.status = code
	if i.passthrough {
		i.writeHeader()
	}
}

func (i *injector) writeHeader() {
	if i.headerWritten {
		return
	}
	i.headerWritten = true
	i.ResponseWriter.WriteHeader(i.status)
}

func (i *injector) Write(data []byte) (int, error) {
	if !i.buffering && !i.passthrough {
		ct := i.Header().Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "text/html") {
			i.passthrough = true
		} else {
			i.buffering = true
			i.buffer = make([]byte, 0, 64*1024)
		}
	}
	if i.passthrough {
		i.writeHeader()
		return i.ResponseWriter.Write(data)
	}
	if len(i.buffer)+len(data) > maxInjectSize {
		i.passthrough = true
		i.Header().Del("Content-Length")
		i.writeHeader()
		if len(i.buffer) > 0 {
			if _, err := i.ResponseWriter.Write(i.buffer); err != nil {
				return 0, err
			}
			i.buffer = nil
		}
		return i.ResponseWriter.Write(data)
	}
	i.buffer = append(i.buffer, data...)
	return len(data), nil
}

func (i *injector) finalize() {
	if i.passthrough || len(i.buffer) == 0 {
		i.writeHeader()
		return
	}
	out := insertScript(i.buffer)
	i.Header().Del("Content-Length")
	i.writeHeader()
	_, _ = i.ResponseWriter.Write(out)
}

// insertScript places the script tag before the last </body>, or appends it
// when the document has none.
func insertScript(doc []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(doc), []byte("</body>"))
	if idx < 0 {
		return append(doc, scriptTag...)
	}
	out := make([]byte, 0, len(doc)+len(scriptTag))
	out = append(out, doc[:idx]...)
	out = append(out, scriptTag...)
	return append(out, doc[idx:]...)
}
