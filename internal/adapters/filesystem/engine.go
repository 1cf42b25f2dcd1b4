package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"resultlens/internal/domain"
	"resultlens/internal/ports"
)

// DefaultExclude keeps VCS and dependency folders out of every run
var DefaultExclude = []string{"**/.git/**", "**/node_modules/**", "**/vendor/**"}

const (
	defaultBatchSize   = 50
	defaultMaxFileSize = 4 << 20
	statusInterval     = 100 * time.Millisecond
	binarySniffLen     = 8000
)

// EngineOptions tune the filesystem engine
type EngineOptions struct {
	Workers     int
	BatchSize   int
	MaxFileSize int64
	Exclude     []string // applied on top of every query's own excludes
}

// Engine implements ports.MatchEngine by scanning files on disk
type Engine struct {
	opts EngineOptions

	mu       sync.Mutex
	cancel   context.CancelFunc
	excluded domain.Set
}

// Ensure Engine implements MatchEngine
var _ ports.MatchEngine = (*Engine)(nil)

// NewEngine creates a new filesystem engine
func NewEngine(opts EngineOptions) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}
	if opts.Exclude == nil {
		opts.Exclude = DefaultExclude
	}
	return &Engine{opts: opts, excluded: domain.NewSet()}
}

// ExcludeFile keeps fileID out of later runs
func (e *Engine) ExcludeFile(fileID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.excluded.Add(domain.NormalizeID(fileID))
}

// StopSearch cancels the running search, if any
func (e *Engine) StopSearch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Compile turns a query into the regular expression the engine runs
func Compile(q domain.QueryParams) (*regexp.Regexp, error) {
	expr := q.Pattern
	if !q.IsRegex {
		expr = regexp.QuoteMeta(expr)
	}
	if q.WholeWord {
		expr = `\b(?:` + expr + `)\b`
	}
	if !q.MatchCase {
		expr = `(?i)` + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", q.Pattern, err)
	}
	return re, nil
}

type scanResult struct {
	event domain.MatchEvent
	hit   bool
}

// StartSearch scans root and streams results through emit. Messages are
// emitted from the calling goroutine only.
func (e *Engine) StartSearch(ctx context.Context, root string, q domain.QueryParams, emit ports.Emit) error {
	re, err := Compile(q)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	files, err := e.collect(ctx, root, q)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}

	emit(domain.InitialData{RootPath: domain.NormalizeID(root), Query: q})
	status := domain.StatusUpdate{Running: true, Total: len(files)}
	emit(status)

	results := make(chan scanResult, e.opts.BatchSize)
	var waitErr error
	go func() {
		defer close(results)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.Workers)
		for _, f := range files {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				ev, hit := e.scan(f, re)
				select {
				case results <- scanResult{event: ev, hit: hit}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		waitErr = g.Wait()
	}()

	first := true
	var batch []domain.MatchEvent
	flush := func() {
		emit(domain.MatchBatch{Events: batch, IsNewSearch: first})
		first = false
		batch = nil
	}
	last := time.Now()
	for r := range results {
		status.Completed++
		if r.hit {
			batch = append(batch, r.event)
			if r.event.Err != nil {
				status.NumFilesWithErrors++
			} else {
				status.NumMatches += len(r.event.Matches)
				status.NumFilesWithMatches++
			}
		}
		if len(batch) >= e.opts.BatchSize {
			flush()
		}
		if time.Since(last) >= statusInterval {
			emit(status)
			last = time.Now()
		}
	}
	if first || len(batch) > 0 {
		flush()
	}
	status.Running = false
	emit(status)

	if waitErr == nil {
		waitErr = ctx.Err()
	}
	if errors.Is(waitErr, context.Canceled) {
		log.Printf("engine: search %q stopped after %d/%d files", q.Pattern, status.Completed, status.Total)
		return nil
	}
	return waitErr
}

// collect lists the files a query runs over. Restricted queries scan their
// scope only.
func (e *Engine) collect(ctx context.Context, root string, q domain.QueryParams) ([]string, error) {
	e.mu.Lock()
	excluded := e.excluded.Clone()
	e.mu.Unlock()

	rootID := domain.NormalizeID(root)
	keep := func(id string) bool {
		if excluded.Has(id) {
			return false
		}
		rel, ok := domain.ResolvePath(rootID, id)
		if !ok {
			rel = id
		}
		return e.included(rel, q)
	}

	if q.Scope != nil {
		var files []string
		for _, id := range q.Scope {
			id = domain.AbsolutePath(rootID, id)
			if keep(id) {
				files = append(files, id)
			}
		}
		return files, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		id := domain.NormalizeID(filepath.ToSlash(p))
		if keep(id) {
			files = append(files, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func (e *Engine) included(rel string, q domain.QueryParams) bool {
	for _, g := range e.opts.Exclude {
		if ok, _ := doublestar.Match(g, rel); ok {
			return false
		}
	}
	for _, g := range q.Exclude {
		if ok, _ := doublestar.Match(g, rel); ok {
			return false
		}
	}
	if len(q.Include) == 0 {
		return true
	}
	for _, g := range q.Include {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// scan reads one file. Files without matches, binary files and oversized
// files report no hit; unreadable files report an error event.
func (e *Engine) scan(id string, re *regexp.Regexp) (domain.MatchEvent, bool) {
	ev := domain.MatchEvent{FileID: id}
	p := filepath.FromSlash(id)

	info, err := os.Stat(p)
	if err != nil {
		ev.Err = &domain.ErrorInfo{Message: err.Error(), Code: errorCode(err)}
		return ev, true
	}
	if info.Size() > e.opts.MaxFileSize {
		return ev, false
	}
	data, err := os.ReadFile(p)
	if err != nil {
		ev.Err = &domain.ErrorInfo{Message: err.Error(), Code: errorCode(err)}
		return ev, true
	}
	if isBinary(data) {
		return ev, false
	}

	content := string(data)
	for _, loc := range re.FindAllStringIndex(content, -1) {
		if loc[0] == loc[1] {
			continue
		}
		ev.Matches = append(ev.Matches, domain.Match{Start: loc[0], End: loc[1]})
	}
	if len(ev.Matches) == 0 {
		return ev, false
	}
	ev.SourceSnapshot = content
	return ev, true
}

func isBinary(data []byte) bool {
	n := min(len(data), binarySniffLen)
	return bytes.IndexByte(data[:n], 0) >= 0
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "ENOENT"
	case errors.Is(err, fs.ErrPermission):
		return "EACCES"
	}
	return "EIO"
}

// Replace applies query.Replace to fileIDs and reports the totals
func (e *Engine) Replace(ctx context.Context, root string, q domain.QueryParams, fileIDs []string, emit ports.Emit) error {
	re, err := Compile(q)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		summary domain.ReplacementComplete
		errs    []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, id := range fileIDs {
		id := domain.AbsolutePath(domain.NormalizeID(root), id)
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			n, err := replaceFile(id, re, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			if n > 0 {
				summary.TotalReplacements += n
				summary.TotalFilesChanged++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	emit(summary)
	return errors.Join(errs...)
}

func replaceFile(id string, re *regexp.Regexp, q domain.QueryParams) (int, error) {
	p := filepath.FromSlash(id)
	info, err := os.Stat(p)
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", id, err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", id, err)
	}

	n := len(re.FindAllIndex(data, -1))
	if n == 0 {
		return 0, nil
	}
	var out []byte
	if q.IsRegex {
		out = re.ReplaceAll(data, []byte(q.Replace))
	} else {
		out = re.ReplaceAllLiteral(data, []byte(q.Replace))
	}
	if err := os.WriteFile(p, out, info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("replace %s: %w", id, err)
	}
	return n, nil
}
