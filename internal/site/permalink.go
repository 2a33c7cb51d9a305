package site

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// OutputPath maps a source path (slash separated, relative to the input
// directory) to its output path. A non-empty permalink overrides the mapping.
//
//	index.md       -> index.html
//	about.md       -> about/index.html
//	blog/post.md   -> blog/post/index.html
//	404.md         -> 404.html
func OutputPath(rel, permalink string) (string, error) {
	if permalink != "" {
		return permalinkPath(permalink)
	}

	dir, file := path.Split(rel)
	stem := strings.TrimSuffix(file, path.Ext(file))
	switch {
	case stem == "index":
		return path.Join(dir, "index.html"), nil
	case dir == "" && stem == "404":
		return "404.html", nil
	default:
		return path.Join(dir, stem, "index.html"), nil
	}
}

func permalinkPath(permalink string) (string, error) {
	p := strings.TrimPrefix(strings.TrimSpace(permalink), "/")
	trailing := p == "" || strings.HasSuffix(p, "/")

	depth := 0
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
		default:
			depth++
		}
		if depth < 0 {
			return "", errors.ValidationError("permalink escapes output directory").
				WithContext("permalink", permalink).Build()
		}
	}

	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	switch {
	case cleaned == "":
		return "index.html", nil
	case trailing || path.Ext(cleaned) == "":
		return path.Join(cleaned, "index.html"), nil
	default:
		return cleaned, nil
	}
}

// URLFor returns the root-relative URL for an output path.
func URLFor(output string) string {
	if output == "index.html" {
		return "/"
	}
	if strings.HasSuffix(output, "/index.html") {
		return "/" + strings.TrimSuffix(output, "index.html")
	}
	return "/" + output
}
