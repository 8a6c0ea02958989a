package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"rustsafe/internal/assist"
	"rustsafe/internal/config"
	"rustsafe/internal/diag"
	"rustsafe/internal/observ"
	"rustsafe/internal/source"
	"rustsafe/internal/syntax"
	"rustsafe/internal/trace"
)

// maxSyntaxErrors caps PAR1001 reports per file; tree-sitter tends to cascade.
const maxSyntaxErrors = 8

// Options controls a scan.
type Options struct {
	Disabled       []assist.IdiomKind
	Severity       diag.Severity
	MaxDiagnostics int
	Jobs           int
	Exclude        []string
	ConfigHash     config.Digest

	Cache    *DiskCache   // nil disables caching
	Progress ProgressSink // optional
	Timings  bool         // attach an OBS6001 timing diagnostic per file
}

// OptionsFromConfig maps rustsafe.toml onto scan options.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	disabled, err := cfg.DisabledIdioms()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Disabled:       disabled,
		Severity:       cfg.Severity(),
		MaxDiagnostics: cfg.Scan.MaxDiagnostics,
		Jobs:           cfg.Scan.Jobs,
		Exclude:        append([]string(nil), cfg.Scan.Exclude...),
		ConfigHash:     cfg.Fingerprint(),
	}, nil
}

// FileResult holds the outcome of scanning one file.
type FileResult struct {
	Path   string
	FileID source.FileID
	Bag    *diag.Bag
	Cached bool
	Timing *observ.Report
}

// Rewrites returns the number of rewrite diagnostics in the result.
func (r *FileResult) Rewrites() int {
	if r == nil || r.Bag == nil {
		return 0
	}
	n := 0
	for _, d := range r.Bag.Items() {
		if isRewriteCode(d.Code) {
			n++
		}
	}
	return n
}

func isRewriteCode(c diag.Code) bool {
	return c > diag.RewriteInfo && c < diag.RewriteDisqualified
}

// AssistAt runs the rewrite engine at offset and returns the registered assist.
func AssistAt(ctx context.Context, tree *syntax.Tree, offset uint32, disabled []assist.IdiomKind) (assist.Assist, bool) {
	item, ok, _ := runAssist(ctx, tree, offset, disabled)
	return item, ok
}

// runAssist is AssistAt plus the idioms the engine recognised and declined.
func runAssist(ctx context.Context, tree *syntax.Tree, offset uint32, disabled []assist.IdiomKind) (assist.Assist, bool, []assist.Decline) {
	acc := assist.NewAssists(tree.File())
	c := assist.NewContext(ctx, tree, offset).WithDisabled(disabled...)
	if !assist.ConvertUnsafeToSafe(acc, c) {
		return assist.Assist{}, false, c.Declined()
	}
	return acc.Items()[0], true, c.Declined()
}

// ScanFile loads path into fileSet and scans it.
func ScanFile(ctx context.Context, fileSet *source.FileSet, path string, opts Options) (*FileResult, error) {
	emit(opts.Progress, path, StageLoad, StatusWorking, nil, 0)
	fileID, err := fileSet.Load(path)
	if err != nil {
		emit(opts.Progress, path, StageLoad, StatusError, err, 0)
		return nil, err
	}
	return ScanSource(ctx, fileSet, fileID, opts)
}

// ScanSource scans a file already present in fileSet. Every unsafe block
// with an applicable rewrite yields one diagnostic carrying a lazy fix.
func ScanSource(ctx context.Context, fileSet *source.FileSet, fileID source.FileID, opts Options) (*FileResult, error) {
	file := fileSet.Get(fileID)
	display := file.DisplayPath(source.PathAuto, fileSet.BaseDir())
	res := &FileResult{Path: display, FileID: fileID}

	ctx, span := trace.Start(ctx, trace.ScopeFile, "scan_file")
	defer func() { span.End(display) }()

	if opts.Cache != nil {
		key := cacheKey(file, opts.ConfigHash)
		var payload DiskPayload
		ok, err := opts.Cache.Get(key, &payload)
		if err == nil && ok && payload.Schema == diskCacheSchemaVersion {
			res.Bag = payloadToBag(&payload, fileSet, fileID, opts)
			res.Cached = true
			emit(opts.Progress, file.Path, StageCache, StatusDone, nil, 0)
			return res, nil
		}
	}

	began := time.Now()
	timer := observ.NewTimer()
	bag := diag.NewBag(maxDiagnostics(opts))
	res.Bag = bag
	// tree-sitter часто выдаёт одну и ту же ошибку несколько раз
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: bag})

	emit(opts.Progress, file.Path, StageParse, StatusWorking, nil, 0)
	stopParse := timer.Start("parse")
	tree, err := syntax.Parse(ctx, file)
	stopParse("")
	if err != nil {
		emit(opts.Progress, file.Path, StageParse, StatusError, err, 0)
		return nil, fmt.Errorf("scan %s: %w", display, err)
	}
	defer tree.Close()

	for i, n := range tree.ErrorNodes() {
		if i == maxSyntaxErrors {
			break
		}
		msg := "syntax error"
		if n.Text() != "" && !strings.ContainsRune(n.Text(), '\n') {
			msg = fmt.Sprintf("syntax error near %q", n.Text())
		}
		diag.ReportWarning(rep, diag.ParseSyntaxError, n.Span(), msg).Emit()
	}

	emit(opts.Progress, file.Path, StageAssist, StatusWorking, nil, 0)
	for _, off := range assist.BlockOffsets(tree) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		item, ok, declined := runAssist(ctx, tree, off, opts.Disabled)
		timer.Observe("assist", time.Since(start))
		for _, d := range declined {
			reportDecline(rep, d)
		}
		if ok {
			reportRewrite(rep, file, off, item, opts.Severity)
		}
	}
	bag.Sort()

	if opts.Timings {
		report := timer.Report()
		res.Timing = &report
		appendTimingDiagnostic(bag, file.Span(0, 0), newTimingPayload("scan", display, report))
	}

	if opts.Cache != nil {
		// ошибка кеша не роняет скан, только предупреждение
		if err := opts.Cache.Put(cacheKey(file, opts.ConfigHash), bagToPayload(display, file, opts.ConfigHash, bag)); err != nil {
			bag.Force(diag.New(diag.SevWarning, diag.IOCacheError, file.Span(0, 0), fmt.Sprintf("scan cache not updated: %v", err)))
		}
	}

	emit(opts.Progress, file.Path, StageAssist, StatusDone, nil, time.Since(began))
	return res, nil
}

// reportRewrite emits one diagnostic on the unsafe keyword at off.
func reportRewrite(rep diag.Reporter, file *source.File, off uint32, item assist.Assist, sev diag.Severity) {
	primary := file.Span(off, off+uint32(len(syntax.KindUnsafeKeyword)))
	diag.NewReportBuilder(rep, sev, item.Code, primary, item.Code.Title()).
		WithNote(item.Target, "rewrite target").
		WithFixSuggestion(item.Fix()).
		Emit()
}

// reportDecline emits an info diagnostic for an idiom left as is, pointing
// at the statement that blocked it.
func reportDecline(rep diag.Reporter, d assist.Decline) {
	b := diag.ReportInfo(rep, diag.RewriteDisqualified, d.Call,
		fmt.Sprintf("%s not rewritten: %s", d.Kind, d.Reason))
	if !d.Cause.Empty() {
		b = b.WithNote(d.Cause, "blocking statement")
	}
	b.Emit()
}

func maxDiagnostics(opts Options) int {
	if opts.MaxDiagnostics <= 0 {
		return 1 << 16
	}
	return opts.MaxDiagnostics
}

// ListRustFiles returns the sorted *.rs files under dir, skipping excluded directory names.
// The paths match Event.File of scan progress events.
func ListRustFiles(dir string, exclude []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir {
				for _, ex := range exclude {
					if d.Name() == ex {
						return filepath.SkipDir
					}
				}
			}
			return nil
		}
		if strings.HasSuffix(path, ".rs") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ScanDir scans every *.rs file under dir in parallel. Results come back in
// path order; files that fail to load are reported as IO4001 diagnostics.
func ScanDir(ctx context.Context, dir string, opts Options) (*source.FileSet, []FileResult, error) {
	ctx, span := trace.Start(ctx, trace.ScopePass, "scan_dir")
	defer span.End(dir)

	files, err := ListRustFiles(dir, opts.Exclude)
	if err != nil {
		return nil, nil, err
	}
	fileSet := source.NewFileSetWithBase(dir)
	if len(files) == 0 {
		return fileSet, nil, nil
	}

	// FileSet не потокобезопасен: грузим заранее, сканируем параллельно.
	fileIDs := make([]source.FileID, len(files))
	loadErrs := make([]error, len(files))
	for i, path := range files {
		emit(opts.Progress, path, StageLoad, StatusQueued, nil, 0)
		fileIDs[i], loadErrs[i] = fileSet.Load(path)
		if loadErrs[i] != nil {
			// пустой виртуальный файл, чтобы диагностике было куда указывать
			fileIDs[i] = fileSet.AddVirtual(path, nil)
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		if loadErrs[i] != nil {
			bag := diag.NewBag(1)
			diag.ReportError(diag.BagReporter{Bag: bag}, diag.IOLoadFileError, fileSet.Get(fileIDs[i]).Span(0, 0), loadErrs[i].Error()).Emit()
			results[i] = FileResult{Path: path, FileID: fileIDs[i], Bag: bag}
			emit(opts.Progress, path, StageLoad, StatusError, loadErrs[i], 0)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := ScanSource(gctx, fileSet, fileIDs[i], opts)
			if err != nil {
				emit(opts.Progress, path, StageAssist, StatusError, err, 0)
				return err
			}
			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return fileSet, nil, err
		}
		return fileSet, results, err
	}
	return fileSet, results, nil
}
