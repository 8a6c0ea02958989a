package lsp

// document is an open editor buffer.
type document struct {
	text    string
	version int
	seq     uint64 // bumped on every change; stale analyses compare against it
}

func (s *Server) snapshotDoc(uri string) (document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return document{}, false
	}
	return *doc, true
}

func (s *Server) isLatest(uri string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	return ok && doc.seq == seq
}

func (s *Server) currentTrace() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.traceLSP
}
