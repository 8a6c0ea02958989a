package lsp

import (
	"context"
	"sort"
	"time"

	"rustsafe/internal/diag"
	"rustsafe/internal/driver"
	"rustsafe/internal/source"
)

const diagnosticSource = "rustsafe"

func (s *Server) scheduleDiagnostics(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return
	}
	seq := doc.seq
	if timer := s.timers[uri]; timer != nil {
		timer.Stop()
	}
	s.timers[uri] = time.AfterFunc(s.debounce, func() {
		s.runDiagnostics(uri, seq)
	})
}

func (s *Server) scheduleAll() {
	s.mu.Lock()
	// настройки поменялись: кеш конфигов больше не годится
	clear(s.configs)
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	s.mu.Unlock()
	sort.Strings(uris)
	for _, uri := range uris {
		s.scheduleDiagnostics(uri)
	}
}

func (s *Server) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uri, timer := range s.timers {
		timer.Stop()
		delete(s.timers, uri)
	}
}

// runDiagnostics scans one buffer and publishes the result unless the buffer
// changed in the meantime.
func (s *Server) runDiagnostics(uri string, seq uint64) {
	if !s.isLatest(uri, seq) {
		return
	}
	doc, ok := s.snapshotDoc(uri)
	if !ok {
		return
	}
	path := uriToPath(uri)
	list, err := s.analyze(s.baseCtx, path, doc.text)
	if err != nil {
		s.logf("diagnostics for %s failed: %v", uri, err)
		return
	}
	if !s.isLatest(uri, seq) {
		return
	}

	s.mu.Lock()
	s.published[uri] = struct{}{}
	s.mu.Unlock()
	version := doc.version
	if err := s.sendPublish(uri, &version, list); err != nil {
		s.logf("failed to publish diagnostics: %v", err)
	}
	if s.currentTrace() {
		s.logf("publish: uri=%s version=%d count=%d", uri, version, len(list))
	}
}

func (s *Server) analyze(ctx context.Context, path, text string) ([]lspDiagnostic, error) {
	fileSet := source.NewFileSet()
	fileID := fileSet.AddVirtual(path, []byte(text))
	res, err := driver.ScanSource(ctx, fileSet, fileID, s.scanOptions(path))
	if err != nil {
		return nil, err
	}
	file := fileSet.Get(fileID)
	list := make([]lspDiagnostic, 0, res.Bag.Len())
	for _, d := range res.Bag.Items() {
		if d.Code == diag.ObsTimings {
			continue
		}
		list = append(list, lspDiagnostic{
			Range:    rangeForSpan(file, d.Primary),
			Severity: lspSeverity(d.Severity),
			Code:     d.Code.ID(),
			Source:   diagnosticSource,
			Message:  d.Message,
		})
	}
	return list, nil
}

func lspSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SevError:
		return 1
	case diag.SevWarning:
		return 2
	}
	return 3
}

func (s *Server) clearPublishedDiagnostics() {
	s.mu.Lock()
	if len(s.published) == 0 {
		s.mu.Unlock()
		return
	}
	prev := s.published
	s.published = make(map[string]struct{})
	s.mu.Unlock()
	uris := make([]string, 0, len(prev))
	for uri := range prev {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
}
