package trace

import (
	"bufio"
	"io"
	"os"
	"sync"
)

// StreamTracer formats events straight to a writer. Files are buffered and
// flushed on Flush or Close; other writers are flushed after every event.
type StreamTracer struct {
	gate
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer // nil for stdio and plain writers
	format Format
}

// NewStreamTracer wraps w. FormatAuto means text.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	t := &StreamTracer{gate: gate{level}, w: bufio.NewWriter(w), format: format}
	if f, ok := w.(*os.File); ok && f != os.Stderr && f != os.Stdout {
		t.closer = f
	}
	return t
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.accepts(ev) {
		return
	}
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	// ошибки записи трассы не должны ломать скан
	_, _ = t.w.Write(data)
	if t.closer == nil {
		_ = t.w.Flush()
	}
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Flush()
}

func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
