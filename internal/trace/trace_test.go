package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeFile, false},
		{LevelDetail, ScopeFile, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestParseLevelCaseInsensitive(t *testing.T) {
	lvl, err := ParseLevel("Detail")
	if err != nil || lvl != LevelDetail {
		t.Fatalf("ParseLevel(Detail) = %v, %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestStreamTracerSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	span := Begin(tr, ScopePass, "parse", 0)
	Point(tr, ScopeNode, "skipped", "", span.ID()) // below level
	span.Set("files", "3").End("ok")
	span.End("again")

	out := buf.String()
	if !strings.Contains(out, "→ parse") || !strings.Contains(out, "← parse (ok)") || !strings.Contains(out, "{files=3}") {
		t.Fatalf("unexpected trace output:\n%s", out)
	}
	if strings.Contains(out, "skipped") {
		t.Fatalf("node event leaked at phase level:\n%s", out)
	}
	if strings.Contains(out, "again") {
		t.Fatalf("span ended twice:\n%s", out)
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeNode, "classify", "set_len", 7)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if got["name"] != "classify" || got["scope"] != "node" || got["kind"] != "point" {
		t.Fatalf("unexpected event: %v", got)
	}
}

func TestRingTracerWraps(t *testing.T) {
	tr := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(tr, ScopeFile, name, "", 0)
	}
	events := tr.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("snapshot = %+v", events)
	}

	var buf bytes.Buffer
	if err := tr.Dump(&buf, FormatText); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("dump = %q", buf.String())
	}
}

func TestMultiTracerFansOut(t *testing.T) {
	a := NewRingTracer(8, LevelDebug)
	b := NewRingTracer(8, LevelDebug)
	m := NewMultiTracer(LevelDebug, a, b)
	Point(m, ScopeDriver, "start", "", 0)
	sa, sb := a.Snapshot(), b.Snapshot()
	if len(sa) != 1 || len(sb) != 1 {
		t.Fatal("event not delivered to all tracers")
	}
	if sa[0].Seq != sb[0].Seq {
		t.Fatalf("seq differs across tracers: %d vs %d", sa[0].Seq, sb[0].Seq)
	}
	if Ring(m) != a {
		t.Fatal("Ring did not find the first ring tracer")
	}
	if Ring(Nop) != nil {
		t.Fatal("Ring(Nop) should be nil")
	}
}

func TestStartNestsSpans(t *testing.T) {
	ring := NewRingTracer(16, LevelDetail)
	ctx := WithTracer(context.Background(), ring)

	ctx, outer := Start(ctx, ScopePass, "scan_dir")
	nodeCtx, node := Start(ctx, ScopeNode, "classify") // below level
	_, inner := Start(nodeCtx, ScopeFile, "scan_file")
	inner.End("")
	node.End("")
	outer.End("")

	if node.ID() != 0 {
		t.Fatal("span below level should be inert")
	}
	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4: %+v", len(events), events)
	}
	if events[1].Name != "scan_file" || events[1].ParentID != outer.ID() {
		t.Fatalf("scan_file parent = %d, want %d", events[1].ParentID, outer.ID())
	}
}

func TestHeartbeatStop(t *testing.T) {
	ring := NewRingTracer(64, LevelPhase)
	hb := StartHeartbeat(ring, time.Millisecond)
	if hb == nil {
		t.Fatal("heartbeat not started")
	}
	time.Sleep(20 * time.Millisecond)
	hb.Stop()
	hb.Stop()
	n := len(ring.Snapshot())
	if n == 0 {
		t.Fatal("no heartbeat recorded")
	}
	time.Sleep(5 * time.Millisecond)
	if len(ring.Snapshot()) != n {
		t.Fatal("heartbeat kept running after Stop")
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatal("heartbeat on Nop should be nil")
	}
	var none *Heartbeat
	none.Stop()
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("expected Nop for empty context")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatal("tracer not propagated")
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Enabled() {
		t.Fatal("off tracer must be disabled")
	}
	// a span on a disabled tracer is safe to end
	Begin(tr, ScopeDriver, "x", 0).End("")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "TEXT": FormatText, "json": FormatNDJSON, "ndjson": FormatNDJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat accepted xml")
	}
}
