package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rustsafe/internal/config"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Debounce       time.Duration
	MaxDiagnostics int
	Version        string
	Log            io.Writer // defaults to stderr
}

// Server handles stdio JSON-RPC for the rustsafe language server.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	log    io.Writer
	sendMu sync.Mutex
	mu     sync.Mutex

	docs      map[string]*document
	timers    map[string]*time.Timer
	published map[string]struct{}
	configs   map[string]config.Config
	overrides rustsafeSettings

	workspaceRoot     string
	initialized       bool
	shutdownRequested bool
	debounce          time.Duration
	maxDiagnostics    int
	version           string
	baseCtx           context.Context
	traceLSP          bool
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	logw := opts.Log
	if logw == nil {
		logw = os.Stderr
	}
	return &Server{
		in:             bufio.NewReader(in),
		out:            bufio.NewWriter(out),
		log:            logw,
		docs:           make(map[string]*document),
		timers:         make(map[string]*time.Timer),
		published:      make(map[string]struct{}),
		configs:        make(map[string]config.Config),
		debounce:       debounce,
		maxDiagnostics: opts.MaxDiagnostics,
		version:        opts.Version,
		baseCtx:        context.Background(),
	}
}

// Run serves LSP requests until exit or EOF.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	defer s.stopTimers()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

// route describes how one method is handled. Methods with needsInit are
// rejected (requests) or dropped (notifications) before initialize and after
// shutdown.
type route struct {
	handle    func(*Server, *rpcMessage) error
	needsInit bool
}

var routes = map[string]route{
	"initialize":                       {handle: (*Server).handleInitialize},
	"initialized":                      {handle: func(*Server, *rpcMessage) error { return nil }},
	"shutdown":                         {handle: (*Server).handleShutdown},
	"exit":                             {handle: (*Server).handleExit},
	"workspace/didChangeConfiguration": {handle: (*Server).handleDidChangeConfiguration, needsInit: true},
	"textDocument/didOpen":             {handle: (*Server).handleDidOpen, needsInit: true},
	"textDocument/didChange":           {handle: (*Server).handleDidChange, needsInit: true},
	"textDocument/didSave":             {handle: (*Server).handleDidSave, needsInit: true},
	"textDocument/didClose":            {handle: (*Server).handleDidClose, needsInit: true},
	"textDocument/codeAction":          {handle: (*Server).handleCodeAction, needsInit: true},
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	if s.currentTrace() {
		s.logf("<- %s", msg.Method)
	}
	r, ok := routes[msg.Method]
	if !ok {
		if msg.isRequest() {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
	if r.needsInit {
		s.mu.Lock()
		ready := s.initialized && !s.shutdownRequested
		s.mu.Unlock()
		if !ready {
			if msg.isRequest() {
				return s.sendError(msg.ID, codeInvalidRequest, "server not initialized")
			}
			return nil
		}
	}
	return r.handle(s, msg)
}

// decodeParams unmarshals msg.Params into a fresh T.
func decodeParams[T any](msg *rpcMessage) (T, error) {
	var params T
	if len(msg.Params) == 0 {
		return params, nil
	}
	err := json.Unmarshal(msg.Params, &params)
	return params, err
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	params, err := decodeParams[initializeParams](msg)
	if err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	root := uriToPath(params.RootURI)
	if root == "" && params.RootPath != "" {
		root, _ = filepath.Abs(params.RootPath)
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}
	s.applySettings(params.InitializationOptions)

	s.mu.Lock()
	s.workspaceRoot = root
	s.initialized = true
	s.mu.Unlock()

	return s.sendResponse(msg.ID, initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    syncIncremental,
				Save:      saveOptions{IncludeText: true},
			},
			CodeActionProvider: &codeActionOptions{
				CodeActionKinds: []string{codeActionKindRewrite},
			},
		},
		ServerInfo: &serverInfo{Name: "rustsafe", Version: s.version},
	})
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.stopTimers()
	s.clearPublishedDiagnostics()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleExit(*rpcMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdownRequested {
		return ErrExit
	}
	return ErrExitWithoutShutdown
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	params, err := decodeParams[didOpenTextDocumentParams](msg)
	if err != nil {
		return s.invalidNotification(msg, err)
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	doc := &document{text: params.TextDocument.Text, version: params.TextDocument.Version}
	if prev := s.docs[uri]; prev != nil {
		doc.seq = prev.seq + 1
	}
	s.docs[uri] = doc
	s.mu.Unlock()
	s.scheduleDiagnostics(uri)
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	params, err := decodeParams[didChangeTextDocumentParams](msg)
	if err != nil {
		return s.invalidNotification(msg, err)
	}
	uri := canonicalURI(params.TextDocument.URI)
	if !s.updateDoc(uri, func(doc *document) {
		doc.text = applyChanges(doc.text, params.ContentChanges)
		doc.version = params.TextDocument.Version
	}) {
		return nil
	}
	if s.currentTrace() {
		s.logf("didChange: uri=%s version=%d", uri, params.TextDocument.Version)
	}
	s.scheduleDiagnostics(uri)
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	params, err := decodeParams[didSaveTextDocumentParams](msg)
	if err != nil {
		return s.invalidNotification(msg, err)
	}
	uri := canonicalURI(params.TextDocument.URI)
	// rustsafe.toml мог поменяться рядом с файлом
	s.mu.Lock()
	delete(s.configs, filepath.Dir(uriToPath(uri)))
	s.mu.Unlock()
	if s.updateDoc(uri, func(doc *document) {
		if params.Text != nil {
			doc.text = *params.Text
		}
	}) {
		s.scheduleDiagnostics(uri)
	}
	return nil
}

// updateDoc applies edit to an open document and bumps its sequence number.
// It reports false when uri is not open.
func (s *Server) updateDoc(uri string, edit func(*document)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return false
	}
	edit(doc)
	doc.seq++
	return true
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	params, err := decodeParams[didCloseTextDocumentParams](msg)
	if err != nil {
		return s.invalidNotification(msg, err)
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.docs, uri)
	if timer := s.timers[uri]; timer != nil {
		timer.Stop()
		delete(s.timers, uri)
	}
	_, hadDiagnostics := s.published[uri]
	delete(s.published, uri)
	s.mu.Unlock()
	if hadDiagnostics {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
	return nil
}

// invalidNotification logs a malformed notification; requests get an error reply.
func (s *Server) invalidNotification(msg *rpcMessage, err error) error {
	s.logf("%s: invalid params: %v", msg.Method, err)
	if msg.isRequest() {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	return nil
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	return s.send(rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	return s.send(rpcErrorResponse{JSONRPC: "2.0", ID: id, Error: rpcError{Code: code, Message: message}})
}

func (s *Server) sendPublish(uri string, version *int, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.send(rpcNotification{
		JSONRPC: "2.0",
		Method:  "textDocument/publishDiagnostics",
		Params:  publishDiagnosticsParams{URI: uri, Version: version, Diagnostics: list},
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(s.log, "lsp: "+format+"\n", args...)
}
