package driver

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"rustsafe/internal/config"
	"rustsafe/internal/diag"
	"rustsafe/internal/fix"
	"rustsafe/internal/source"
	"rustsafe/internal/syntax"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// ErrStaleCache is returned by a cached fix whose rewrite no longer applies.
var ErrStaleCache = errors.New("cached rewrite no longer applies")

// DiskCache хранит результаты сканирования файлов на диске.
// Ключ: хеш содержимого файла + отпечаток конфигурации.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is the cached scan result of one file. Fix edits are not
// stored; they are rebuilt from the file on demand.
type DiskPayload struct {
	Schema      uint16
	Path        string
	ContentHash config.Digest
	ConfigHash  config.Digest
	Diagnostics []CachedDiagnostic
}

// CachedDiagnostic is a diagnostic with file-relative offsets.
type CachedDiagnostic struct {
	Severity diag.Severity
	Code     diag.Code
	Message  string
	Start    uint32
	End      uint32
	Notes    []CachedNote

	FixID    string
	FixTitle string
	FixKind  diag.FixKind
}

// CachedNote is a note with file-relative offsets.
type CachedNote struct {
	Start, End uint32
	Msg        string
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt opens a cache rooted at dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key config.Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "scan", hexKey[:2], hexKey+".mp")
}

func cacheKey(file *source.File, cfgHash config.Digest) config.Digest {
	return config.Combine(config.Digest(file.Hash), cfgHash)
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key config.Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		// после Rename файла уже нет
		_ = os.Remove(tmp)
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, p)
}

// Get reads and deserializes a payload from the disk cache.
func (c *DiskCache) Get(key config.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decode cache entry: %w", err)
	}
	return true, nil
}

// DropAll invalidates the cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// тривиально: переименуем каталог и удалим
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// bagToPayload converts scan diagnostics to their cached form. Timing
// diagnostics describe one run and are not stored.
func bagToPayload(path string, file *source.File, cfgHash config.Digest, bag *diag.Bag) *DiskPayload {
	payload := &DiskPayload{
		Schema:      diskCacheSchemaVersion,
		Path:        path,
		ContentHash: config.Digest(file.Hash),
		ConfigHash:  cfgHash,
	}
	for _, d := range bag.Items() {
		if d.Code == diag.ObsTimings {
			continue
		}
		cd := CachedDiagnostic{
			Severity: d.Severity,
			Code:     d.Code,
			Message:  d.Message,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{Start: n.Span.Start, End: n.Span.End, Msg: n.Msg})
		}
		if len(d.Fixes) > 0 {
			cd.FixID = d.Fixes[0].ID
			cd.FixTitle = d.Fixes[0].Title
			cd.FixKind = d.Fixes[0].Kind
		}
		payload.Diagnostics = append(payload.Diagnostics, cd)
	}
	return payload
}

// payloadToBag restores diagnostics for fileID. Rewrite fixes come back as
// thunks that re-parse the file and rerun the assist at the block.
func payloadToBag(payload *DiskPayload, fileSet *source.FileSet, fileID source.FileID, opts Options) *diag.Bag {
	file := fileSet.Get(fileID)
	bag := diag.NewBag(maxDiagnostics(opts))
	for _, cd := range payload.Diagnostics {
		d := diag.New(cd.Severity, cd.Code, file.Span(cd.Start, cd.End), cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(file.Span(n.Start, n.End), n.Msg)
		}
		if cd.FixID != "" {
			d = d.WithFixSuggestion(fix.Lazy(cd.FixTitle, rebuildThunk(file, cd.Start, opts),
				fix.WithID(cd.FixID), fix.WithKind(cd.FixKind), fix.Preferred()))
		}
		bag.Add(d)
	}
	return bag
}

func rebuildThunk(file *source.File, offset uint32, opts Options) diag.FixThunk {
	return diag.FixThunkFunc(func(diag.FixBuildContext) (diag.Fix, error) {
		tree, err := syntax.Parse(context.Background(), file)
		if err != nil {
			return diag.Fix{}, err
		}
		defer tree.Close()
		item, ok := AssistAt(context.Background(), tree, offset, opts.Disabled)
		if !ok {
			return diag.Fix{}, ErrStaleCache
		}
		return item.Fix().Resolve(diag.FixBuildContext{})
	})
}
