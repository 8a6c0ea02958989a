package lsp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
)

// maxMessageSize bounds a single JSON-RPC payload.
const maxMessageSize = 64 << 20

var errNoContentLength = errors.New("missing Content-Length header")

// readMessage reads one base-protocol frame: MIME-style headers, a blank
// line, then Content-Length bytes of JSON.
func readMessage(r *bufio.Reader) ([]byte, error) {
	header, err := textproto.NewReader(r).ReadMIMEHeader()
	if err != nil {
		return nil, err
	}
	raw := header.Get("Content-Length")
	if raw == "" {
		return nil, errNoContentLength
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return nil, fmt.Errorf("invalid Content-Length: %w", err)
	case n < 0 || n > maxMessageSize:
		return nil, fmt.Errorf("Content-Length %d out of range", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// writeMessage frames payload and writes it with a single Write.
func writeMessage(w io.Writer, payload []byte) error {
	var frame bytes.Buffer
	frame.Grow(len(payload) + 32)
	fmt.Fprintf(&frame, "Content-Length: %d\r\n\r\n", len(payload))
	frame.Write(payload)
	_, err := w.Write(frame.Bytes())
	return err
}
