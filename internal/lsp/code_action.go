package lsp

import (
	"context"
	"strings"

	"rustsafe/internal/diag"
	"rustsafe/internal/driver"
	"rustsafe/internal/source"
	"rustsafe/internal/syntax"
)

const codeActionKindRewrite = "refactor.rewrite"

func (s *Server) handleCodeAction(msg *rpcMessage) error {
	params, err := decodeParams[codeActionParams](msg)
	if err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)
	doc, ok := s.snapshotDoc(uri)
	if !ok || !kindRequested(params.Context.Only) {
		return s.sendResponse(msg.ID, []codeAction{})
	}
	action, err := s.buildCodeAction(s.baseCtx, uri, doc, params)
	if err != nil {
		s.logf("codeAction for %s: %v", uri, err)
	}
	if action == nil {
		return s.sendResponse(msg.ID, []codeAction{})
	}
	return s.sendResponse(msg.ID, []codeAction{*action})
}

// kindRequested reports whether a client "only" filter admits refactor.rewrite.
func kindRequested(only []string) bool {
	if len(only) == 0 {
		return true
	}
	for _, k := range only {
		if k == codeActionKindRewrite || strings.HasPrefix(codeActionKindRewrite, k+".") {
			return true
		}
	}
	return false
}

// buildCodeAction runs the rewrite at the start of the requested range and
// turns its edits into a WorkspaceEdit.
func (s *Server) buildCodeAction(ctx context.Context, uri string, doc document, params codeActionParams) (*codeAction, error) {
	path := uriToPath(uri)
	fileSet := source.NewFileSet()
	fileID := fileSet.AddVirtual(path, []byte(doc.text))
	file := fileSet.Get(fileID)

	tree, err := syntax.Parse(ctx, file)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	offset := offsetForPositionInFile(file, params.Range.Start)
	item, ok := driver.AssistAt(ctx, tree, offset, s.scanOptions(path).Disabled)
	if !ok {
		return nil, nil
	}
	resolved, err := item.Fix().Resolve(diag.FixBuildContext{FileSet: fileSet})
	if err != nil {
		return nil, err
	}

	edits := make([]textEdit, 0, len(resolved.Edits))
	for _, e := range resolved.Edits {
		edits = append(edits, textEdit{Range: rangeForSpan(file, e.Span), NewText: e.NewText})
	}
	return &codeAction{
		Title:       resolved.Title,
		Kind:        codeActionKindRewrite,
		Diagnostics: matchingDiagnostics(params.Context.Diagnostics, item.Code),
		IsPreferred: resolved.IsPreferred,
		Edit:        &workspaceEdit{Changes: map[string][]textEdit{uri: edits}},
	}, nil
}

func matchingDiagnostics(in []lspDiagnostic, code diag.Code) []lspDiagnostic {
	var out []lspDiagnostic
	for _, d := range in {
		if d.Source == diagnosticSource && d.Code == code.ID() {
			out = append(out, d)
		}
	}
	return out
}
