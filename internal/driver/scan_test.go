package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"rustsafe/internal/assist"
	"rustsafe/internal/config"
	"rustsafe/internal/diag"
	"rustsafe/internal/fix"
	"rustsafe/internal/source"
)

const zeroFillSource = `fn main() {
    let cap = 100;
    let mut buffer = Vec::with_capacity(cap);
    unsafe {
        buffer.set_len(cap);
    }
}
`

const zeroFillResult = `fn main() {
    let cap = 100;
    let mut buffer = vec![0; cap];
}
`

const twoBlockSource = `fn read(v: &[u8], bytes: &[u8]) {
    let x = unsafe { v.get_unchecked(1) };
    unsafe {
        let first = v.get_unchecked(0);
    }
    unsafe {
        let s: &str = std::mem::transmute(bytes);
    }
}
`

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *recordingSink) has(stage Stage, status Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Stage == stage && e.Status == status {
			return true
		}
	}
	return false
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func defaultOptions(t *testing.T) Options {
	t.Helper()
	opts, err := OptionsFromConfig(config.Default())
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	return opts
}

func resolveAll(t *testing.T, d diag.Diagnostic) []diag.TextEdit {
	t.Helper()
	if len(d.Fixes) != 1 {
		t.Fatalf("expected one fix, got %d", len(d.Fixes))
	}
	resolved, err := d.Fixes[0].Resolve(diag.FixBuildContext{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return resolved.Edits
}

func TestScanFileReportsRewrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.rs", zeroFillSource)

	fileSet := source.NewFileSetWithBase(dir)
	sink := &recordingSink{}
	opts := defaultOptions(t)
	opts.Progress = sink

	res, err := ScanFile(context.Background(), fileSet, path, opts)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Rewrites() != 1 {
		t.Fatalf("expected 1 rewrite, got %d", res.Rewrites())
	}
	d := res.Bag.Items()[0]
	if d.Code != diag.RewriteZeroFilledVec {
		t.Fatalf("unexpected code %s", d.Code.ID())
	}
	if d.Severity != diag.SevWarning {
		t.Fatalf("unexpected severity %v", d.Severity)
	}
	file := fileSet.Get(res.FileID)
	if got := string(file.Content[d.Primary.Start:d.Primary.End]); got != "unsafe" {
		t.Fatalf("primary span should cover the keyword, got %q", got)
	}
	out, err := fix.ApplyEdits(file.Content, resolveAll(t, d))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if string(out) != zeroFillResult {
		t.Fatalf("unexpected rewrite:\n%s", out)
	}
	if !sink.has(StageParse, StatusWorking) || !sink.has(StageAssist, StatusDone) {
		t.Fatalf("missing progress events: %+v", sink.events)
	}
}

func TestScanSourceOneDiagnosticPerBlock(t *testing.T) {
	fileSet := source.NewFileSet()
	id := fileSet.AddVirtual("lib.rs", []byte(twoBlockSource))

	res, err := ScanSource(context.Background(), fileSet, id, defaultOptions(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var codes []diag.Code
	for _, d := range res.Bag.Items() {
		codes = append(codes, d.Code)
	}
	want := []diag.Code{diag.RewriteCheckedGet, diag.RewriteTransmuteToStr}
	if len(codes) != len(want) {
		t.Fatalf("expected %v, got %v", want, codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, codes)
		}
	}
}

func TestScanSourceHonorsDisabled(t *testing.T) {
	fileSet := source.NewFileSet()
	id := fileSet.AddVirtual("lib.rs", []byte(twoBlockSource))

	opts := defaultOptions(t)
	opts.Disabled = []assist.IdiomKind{assist.RawBitReinterpret}
	res, err := ScanSource(context.Background(), fileSet, id, opts)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	for _, d := range res.Bag.Items() {
		if d.Code == diag.RewriteTransmuteToStr {
			t.Fatalf("disabled idiom reported")
		}
	}
	if res.Rewrites() != 1 {
		t.Fatalf("expected 1 rewrite, got %d", res.Rewrites())
	}
}

func TestScanSourceReportsDecline(t *testing.T) {
	src := `fn f(out: &mut File) {
    let mut buf = Vec::with_capacity(8);
    unsafe {
        buf.set_len(8);
    }
    out.write_all(&buf).unwrap();
}
`
	fileSet := source.NewFileSet()
	id := fileSet.AddVirtual("lib.rs", []byte(src))
	res, err := ScanSource(context.Background(), fileSet, id, defaultOptions(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Rewrites() != 0 {
		t.Fatalf("expected no rewrites, got %d", res.Rewrites())
	}
	items := res.Bag.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 diagnostic, got %+v", items)
	}
	d := items[0]
	if d.Code != diag.RewriteDisqualified || d.Severity != diag.SevInfo {
		t.Fatalf("unexpected diagnostic: %+v", d)
	}
	if len(d.Notes) != 1 || d.Notes[0].Msg != "blocking statement" {
		t.Fatalf("expected blocking statement note, got %+v", d.Notes)
	}
	if got := string(fileSet.Get(id).Content[d.Notes[0].Span.Start:d.Notes[0].Span.End]); got != "out.write_all(&buf).unwrap();" {
		t.Fatalf("note span = %q", got)
	}
}

func TestScanCacheWriteFailureWarns(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cache, err := OpenDiskCacheAt(dir)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	// файл на месте каталога scan ломает Put
	if err := os.WriteFile(filepath.Join(dir, "scan"), nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fileSet := source.NewFileSet()
	id := fileSet.AddVirtual("main.rs", []byte(zeroFillSource))
	opts := defaultOptions(t)
	opts.Cache = cache
	res, err := ScanSource(context.Background(), fileSet, id, opts)
	if err != nil {
		t.Fatalf("scan should survive a cache failure: %v", err)
	}
	if res.Rewrites() != 1 {
		t.Fatalf("expected 1 rewrite, got %d", res.Rewrites())
	}
	found := false
	for _, d := range res.Bag.Items() {
		if d.Code == diag.IOCacheError && d.Severity == diag.SevWarning {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected cache warning, got %+v", res.Bag.Items())
	}
}

func TestScanSourceSyntaxErrors(t *testing.T) {
	fileSet := source.NewFileSet()
	id := fileSet.AddVirtual("broken.rs", []byte("fn main( {\n    let = ;\n}\n"))

	res, err := ScanSource(context.Background(), fileSet, id, defaultOptions(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !slices.ContainsFunc(res.Bag.Items(), func(d diag.Diagnostic) bool { return d.Severity == diag.SevWarning }) {
		t.Fatalf("expected syntax warnings")
	}
	for _, d := range res.Bag.Items() {
		if d.Code != diag.ParseSyntaxError {
			t.Fatalf("unexpected code %s", d.Code.ID())
		}
	}
	if res.Bag.Len() > maxSyntaxErrors {
		t.Fatalf("syntax errors not capped: %d", res.Bag.Len())
	}
}

func TestScanSourceTimings(t *testing.T) {
	fileSet := source.NewFileSet()
	id := fileSet.AddVirtual("main.rs", []byte(zeroFillSource))

	opts := defaultOptions(t)
	opts.Timings = true
	res, err := ScanSource(context.Background(), fileSet, id, opts)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Timing == nil {
		t.Fatalf("expected timing report")
	}
	found := false
	for _, d := range res.Bag.Items() {
		if d.Code == diag.ObsTimings {
			found = true
			if len(d.Notes) != 1 || !strings.Contains(d.Notes[0].Msg, `"phases"`) {
				t.Fatalf("timing payload missing phases: %+v", d.Notes)
			}
		}
	}
	if !found {
		t.Fatalf("timing diagnostic not attached")
	}
}

func TestScanDirOrderAndExclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.rs", zeroFillSource)
	writeFile(t, dir, "a.rs", "fn main() {}\n")
	writeFile(t, dir, "target/gen.rs", zeroFillSource)
	writeFile(t, dir, "notes.txt", "unsafe {}")

	opts := defaultOptions(t)
	opts.Jobs = 2
	_, results, err := ScanDir(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("scan dir: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !strings.HasSuffix(results[0].Path, "a.rs") || !strings.HasSuffix(results[1].Path, "b.rs") {
		t.Fatalf("unexpected order: %s, %s", results[0].Path, results[1].Path)
	}
	if results[0].Rewrites() != 0 || results[1].Rewrites() != 1 {
		t.Fatalf("unexpected rewrite counts: %d, %d", results[0].Rewrites(), results[1].Rewrites())
	}
}

func TestScanDirCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.rs", zeroFillSource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := ScanDir(ctx, dir, defaultOptions(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestScanCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.rs", zeroFillSource)
	cache, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}

	opts := defaultOptions(t)
	opts.Cache = cache

	first, err := ScanFile(context.Background(), source.NewFileSetWithBase(dir), path, opts)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if first.Cached {
		t.Fatalf("first scan should miss the cache")
	}

	fileSet := source.NewFileSetWithBase(dir)
	second, err := ScanFile(context.Background(), fileSet, path, opts)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if !second.Cached {
		t.Fatalf("second scan should hit the cache")
	}
	if second.Bag.Len() != first.Bag.Len() {
		t.Fatalf("cached bag differs: %d vs %d", second.Bag.Len(), first.Bag.Len())
	}
	d := second.Bag.Items()[0]
	if d.Code != diag.RewriteZeroFilledVec || len(d.Notes) != 1 {
		t.Fatalf("cached diagnostic lost data: %+v", d)
	}
	if d.Fixes[0].ID != first.Bag.Items()[0].Fixes[0].ID {
		t.Fatalf("fix id changed across cache")
	}
	out, err := fix.ApplyEdits(fileSet.Get(second.FileID).Content, resolveAll(t, d))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if string(out) != zeroFillResult {
		t.Fatalf("cached fix rebuilt wrong edit:\n%s", out)
	}

	// другой конфиг даёт другой ключ
	opts.ConfigHash = config.Digest{1}
	third, err := ScanFile(context.Background(), source.NewFileSetWithBase(dir), path, opts)
	if err != nil {
		t.Fatalf("third scan: %v", err)
	}
	if third.Cached {
		t.Fatalf("config change should miss the cache")
	}

	if err := cache.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	var payload DiskPayload
	ok, err := cache.Get(cacheKey(fileSet.Get(second.FileID), opts.ConfigHash), &payload)
	if err != nil || ok {
		t.Fatalf("expected empty cache after DropAll, ok=%v err=%v", ok, err)
	}
}

func TestRewriteFixIsLazy(t *testing.T) {
	fileSet := source.NewFileSet()
	id := fileSet.AddVirtual("main.rs", []byte(zeroFillSource))
	res, err := ScanSource(context.Background(), fileSet, id, defaultOptions(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Cached {
		t.Fatalf("no cache configured")
	}
	if res.Bag.Items()[0].Fixes[0].Thunk == nil {
		t.Fatalf("rewrite fix should be lazy")
	}
}

func TestScanSourceGolden(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")
	fileID := fs.Add("/workspace/src/read.rs", []byte(twoBlockSource), source.FileVirtual)

	res, err := ScanSource(context.Background(), fs, fileID, defaultOptions(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	want := "warning RWR2005 src/read.rs:3:5 get_unchecked can be a checked get\n" +
		"warning RWR2010 src/read.rs:6:5 transmute to &str can be str::from_utf8"
	if got := diag.FormatGoldenDiagnostics(res.Bag.Items(), fs, false); got != want {
		t.Fatalf("unexpected diagnostics:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}
