package diagfmt

import (
	"rustsafe/internal/source"
)

// fileOf returns the file a span points into, or nil when the span does not
// belong to fs.
func fileOf(fs *source.FileSet, span source.Span) *source.File {
	if fs == nil || int(span.File) >= fs.Len() {
		return nil
	}
	return fs.Get(span.File)
}

func displayPath(fs *source.FileSet, f *source.File, mode source.PathMode) string {
	var base string
	if mode == source.PathRelative {
		base = fs.BaseDir()
	}
	return f.DisplayPath(mode, base)
}
