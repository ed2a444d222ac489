package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/text/encoding"

	"github.com/alucardeht/may-la-specs/internal/spec"
)

// DefaultPatterns selects the documents a FileStore reads.
var DefaultPatterns = []string{"**/*.md"}

// FileStore reads spec documents from a directory tree. Documents are
// parsed in parallel on a worker pool; malformed documents are logged and
// skipped so one bad file never hides the rest.
type FileStore struct {
	root     string
	patterns []string
	ignore   []string
	charset  encoding.Encoding
	pool     *ants.Pool

	mu sync.RWMutex
}

// FileOption configures a FileStore.
type FileOption func(*FileStore) error

func WithPatterns(patterns ...string) FileOption {
	return func(f *FileStore) error {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("invalid pattern %q", p)
			}
		}
		f.patterns = patterns
		return nil
	}
}

func WithIgnore(patterns ...string) FileOption {
	return func(f *FileStore) error {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("invalid ignore pattern %q", p)
			}
		}
		f.ignore = patterns
		return nil
	}
}

// WithCharset sets the charset for documents that are neither UTF-8 nor
// UTF-16.
func WithCharset(label string) FileOption {
	return func(f *FileStore) error {
		if label == "" {
			return nil
		}
		enc, err := LookupCharset(label)
		if err != nil {
			return err
		}
		f.charset = enc
		return nil
	}
}

func WithWorkers(size int) FileOption {
	return func(f *FileStore) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if f.pool != nil {
			f.pool.Release()
		}
		f.pool = pool
		return nil
	}
}

func NewFileStore(root string, opts ...FileOption) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve spec dir: %w", err)
	}

	workers := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	f := &FileStore{
		root:     abs,
		patterns: DefaultPatterns,
		charset:  DefaultFallbackCharset,
		pool:     pool,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (f *FileStore) Root() string {
	return f.root
}

// Close releases the parsing pool.
func (f *FileStore) Close() error {
	f.pool.Release()
	return nil
}

// Ignored reports whether rel, a slash separated path relative to the root,
// is excluded by the ignore patterns.
func (f *FileStore) Ignored(rel string) bool {
	for _, p := range f.ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Matches reports whether rel is a spec document of this store.
func (f *FileStore) Matches(rel string) bool {
	if f.Ignored(rel) {
		return false
	}
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (f *FileStore) ListAll(ctx context.Context) ([]*spec.Spec, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	paths, err := f.paths()
	if err != nil {
		return nil, err
	}

	specs, err := f.parseAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	out := make([]*spec.Spec, 0, len(specs))
	seen := make(map[string]string, len(specs))
	for _, s := range specs {
		if s == nil {
			continue
		}
		if first, dup := seen[s.ID]; dup {
			log.Warn("duplicate spec id", "id", s.ID, "kept", first, "skipped", s.Path)
			continue
		}
		seen[s.ID] = s.Path
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *spec.Spec) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *FileStore) Get(ctx context.Context, id string) (*spec.Spec, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s, err := f.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Put writes s as a markdown document, to s.Path when set and to <id>.md
// otherwise. The write goes through a temp file and a rename.
func (f *FileStore) Put(ctx context.Context, in *spec.Spec) error {
	s, err := prepare(in)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return unavailable("put spec", err)
	}

	rel := s.Path
	if rel == "" {
		if existing, err := f.find(ctx, s.ID); err == nil {
			rel = existing.Path
		} else {
			rel = s.ID + ".md"
		}
	}
	target, err := f.resolve(rel)
	if err != nil {
		return err
	}

	content, err := spec.RenderDocument(s)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return unavailable("put spec", err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return unavailable("put spec", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return unavailable("put spec", err)
	}
	return nil
}

func (f *FileStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.find(ctx, id)
	if err != nil {
		return err
	}
	target, err := f.resolve(s.Path)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		return unavailable("delete spec", err)
	}
	return nil
}

// find tries <id>.md at the root before scanning the tree.
func (f *FileStore) find(ctx context.Context, id string) (*spec.Spec, error) {
	if id == "" {
		return nil, notFound(id)
	}

	direct := id + ".md"
	if f.Matches(direct) {
		s, err := f.parse(direct)
		switch {
		case err == nil && s.ID == id:
			return s, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, spec.ErrInvalidSpec):
			return nil, unavailable("get spec", err)
		}
	}

	paths, err := f.paths()
	if err != nil {
		return nil, err
	}
	specs, err := f.parseAll(ctx, paths)
	if err != nil {
		return nil, err
	}
	for _, s := range specs {
		if s != nil && s.ID == id {
			return s, nil
		}
	}
	return nil, notFound(id)
}

// paths lists matching documents relative to the root in slash form,
// sorted.
func (f *FileStore) paths() ([]string, error) {
	info, err := os.Stat(f.root)
	if err != nil {
		return nil, unavailable("list specs", err)
	}
	if !info.IsDir() {
		return nil, unavailable("list specs", fmt.Errorf("%s is not a directory", f.root))
	}

	fsys := os.DirFS(f.root)
	set := make(map[string]struct{})
	for _, p := range f.patterns {
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, unavailable("list specs", err)
		}
		for _, m := range matches {
			if !f.Ignored(m) {
				set[m] = struct{}{}
			}
		}
	}

	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths, nil
}

// parseAll parses paths on the pool. The result is index aligned with paths;
// skipped documents are nil.
func (f *FileStore) parseAll(ctx context.Context, paths []string) ([]*spec.Spec, error) {
	specs := make([]*spec.Spec, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, rel := range paths {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			s, err := f.parse(rel)
			if errors.Is(err, spec.ErrInvalidSpec) {
				log.Warn("skipping spec document", "path", rel, "error", err)
				return
			}
			specs[i], errs[i] = s, err
		}
		if err := f.pool.Submit(task); err != nil {
			wg.Done()
			wg.Wait()
			return nil, unavailable("list specs", err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, unavailable("list specs", err)
	}
	for i, err := range errs {
		if err == nil {
			continue
		}
		// Files removed between the glob and the read are simply gone.
		if errors.Is(err, fs.ErrNotExist) {
			specs[i] = nil
			continue
		}
		return nil, unavailable("list specs", err)
	}
	return specs, nil
}

// parse reads one document. UpdatedAt falls back to the file mtime.
func (f *FileStore) parse(rel string) (*spec.Spec, error) {
	full := filepath.Join(f.root, filepath.FromSlash(rel))

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	text, charset := decodeText(data, f.charset)
	if charset != "utf-8" {
		log.Debug("decoded spec document", "path", rel, "charset", charset)
	}

	s, err := spec.ParseDocument(text, rel)
	if err != nil {
		return nil, err
	}
	if s.UpdatedAt.IsZero() {
		info, err := os.Stat(full)
		if err != nil {
			return nil, err
		}
		s.UpdatedAt = info.ModTime().UTC()
	}
	return s, nil
}

func (f *FileStore) resolve(rel string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("%w: path %q escapes the spec directory", spec.ErrInvalidSpec, rel)
	}
	return filepath.Join(f.root, filepath.FromSlash(rel)), nil
}
