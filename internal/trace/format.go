package trace

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Format is the encoding of streamed and dumped events.
type Format uint8

const (
	FormatAuto Format = iota
	FormatText
	FormatNDJSON
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
}

// FormatEvent renders one event including the trailing newline.
func FormatEvent(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return appendJSON(nil, ev)
	}
	return appendText(nil, ev)
}

type jsonEvent struct {
	Time      string            `json:"time"`
	Seq       uint64            `json:"seq"`
	Kind      string            `json:"kind"`
	Scope     string            `json:"scope"`
	SpanID    uint64            `json:"span_id,omitempty"`
	ParentID  uint64            `json:"parent_id,omitempty"`
	Name      string            `json:"name"`
	Detail    string            `json:"detail,omitempty"`
	ElapsedMS float64           `json:"elapsed_ms,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

func appendJSON(dst []byte, ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:      ev.Time.UTC().Format("2006-01-02T15:04:05.000000Z"),
		Seq:       ev.Seq,
		Kind:      ev.Kind.String(),
		Scope:     ev.Scope.String(),
		SpanID:    ev.SpanID,
		ParentID:  ev.ParentID,
		Name:      ev.Name,
		Detail:    ev.Detail,
		ElapsedMS: float64(ev.Elapsed.Microseconds()) / 1000,
		Extra:     ev.Extra,
	})
	if err != nil {
		return dst
	}
	dst = append(dst, data...)
	return append(dst, '\n')
}

var kindMarks = [...]string{
	KindSpanBegin: "→",
	KindSpanEnd:   "←",
	KindPoint:     "•",
	KindHeartbeat: "♡",
}

// appendText writes "[seq] scope  → name (detail) 1.25ms {k=v}".
// Child events are indented by two spaces.
func appendText(dst []byte, ev *Event) []byte {
	dst = fmt.Appendf(dst, "[%06d] %-6s ", ev.Seq, ev.Scope)
	if ev.ParentID != 0 {
		dst = append(dst, "  "...)
	}
	if int(ev.Kind) < len(kindMarks) && kindMarks[ev.Kind] != "" {
		dst = append(dst, kindMarks[ev.Kind]...)
		dst = append(dst, ' ')
	}
	dst = append(dst, ev.Name...)
	if ev.Detail != "" {
		dst = fmt.Appendf(dst, " (%s)", ev.Detail)
	}
	if ev.Elapsed > 0 {
		dst = fmt.Appendf(dst, " %.2fms", float64(ev.Elapsed.Microseconds())/1000)
	}
	if len(ev.Extra) > 0 {
		dst = append(dst, " {"...)
		for i, k := range slices.Sorted(maps.Keys(ev.Extra)) {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = fmt.Appendf(dst, "%s=%s", k, ev.Extra[k])
		}
		dst = append(dst, '}')
	}
	return append(dst, '\n')
}
