package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// uriToPath converts a file:// URI to an absolute path. Other schemes map to
// "". Bare paths, which some clients send as rootUri, pass through.
func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	var p string
	switch u.Scheme {
	case "":
		p = uri
	case "file":
		p = u.Path
		// file:///C:/x
		if len(p) > 2 && p[0] == '/' && p[2] == ':' {
			p = p[1:]
		}
	default:
		return ""
	}
	if abs, err := filepath.Abs(filepath.FromSlash(p)); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return (&url.URL{Scheme: "file", Path: slashed}).String()
}

// canonicalURI is the key under which a document is stored: the same file
// always maps to the same string. "" for non-file URIs.
func canonicalURI(uri string) string {
	if p := uriToPath(uri); p != "" {
		return pathToURI(p)
	}
	return ""
}
