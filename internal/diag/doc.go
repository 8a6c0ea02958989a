// Package diag defines the diagnostic model shared by the scan pipeline.
//
// A Diagnostic points at a span of Rust source (usually the `unsafe` keyword
// of a rewritable block) and carries zero or more Fix records. Fixes are plain
// data: a title, a kind (refactor.rewrite for every unsafe rewrite), an
// applicability level and a list of TextEdits. Producers that want to defer
// edit construction attach a FixThunk; MaterializeFixes expands thunks
// deterministically before the fix engine or the LSP server consumes them.
//
// TextEdit spans are byte offsets in source coordinates. OldText is an
// optional guard checked by internal/fix before applying.
//
// The scan driver emits through Reporter (a DedupReporter over a BagReporter)
// so cascading parse errors collapse. Rendering lives in internal/diagfmt.
package diag
