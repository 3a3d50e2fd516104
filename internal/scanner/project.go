package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxFileSize bounds the files the scanner will parse.
const DefaultMaxFileSize = 1_500_000

var ignoredDirs = map[string]struct{}{
	".git": {}, ".hg": {}, ".svn": {}, ".idea": {}, ".gradle": {}, ".jeddict": {},
	"node_modules": {}, "target": {}, "build": {}, "out": {}, "bin": {}, "vendor": {},
}

func ignoreDirName(name string) bool {
	_, ok := ignoredDirs[name]
	return ok
}

// Project caches the ClassData of every Java and Go file under a root.
// Entries live until invalidated by a file change.
type Project struct {
	root        string
	logger      *zap.Logger
	maxFileSize int64
	workers     int
	ignore      gitignore.Matcher

	mu    sync.RWMutex
	files map[string]*ClassData
	// invalidations per path, so a load racing an Invalidate is not stored
	gen map[string]uint64
}

// Option configures a Project.
type Option func(*Project)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Project) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxFileSize skips files larger than n bytes.
func WithMaxFileSize(n int64) Option {
	return func(p *Project) {
		if n > 0 {
			p.maxFileSize = n
		}
	}
}

// WithWorkers bounds the number of files parsed concurrently.
func WithWorkers(n int) Option {
	return func(p *Project) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewProject returns an empty cache rooted at root. Patterns from the
// project's .gitignore files exclude paths from scans.
func NewProject(root string, opts ...Option) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	p := &Project{
		root:        abs,
		logger:      zap.NewNop(),
		maxFileSize: DefaultMaxFileSize,
		workers:     runtime.NumCPU(),
		files:       make(map[string]*ClassData),
		gen:         make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(p)
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(abs), nil)
	if err != nil {
		p.logger.Debug("gitignore patterns unavailable", zap.Error(err))
	}
	p.ignore = gitignore.NewMatcher(patterns)
	return p, nil
}

// Root is the absolute project directory.
func (p *Project) Root() string { return p.root }

func (p *Project) ignored(path string, isDir bool) bool {
	rel, err := filepath.Rel(p.root, path)
	if err != nil || rel == "." {
		return false
	}
	if isDir && ignoreDirName(filepath.Base(path)) {
		return true
	}
	return p.ignore.Match(strings.Split(filepath.ToSlash(rel), "/"), isDir)
}

// Scan parses every supported file of the project and replaces the cache.
// Files that fail to parse are logged and skipped.
func (p *Project) Scan(ctx context.Context) error {
	var paths []string
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p.ignored(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if Supported(path) && !p.ignored(path, false) {
			paths = append(paths, path)
		}
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	results := make([]*ClassData, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := p.load(path)
			if err != nil {
				p.logger.Debug("skip file", zap.String("path", path), zap.Error(err))
				return nil
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	files := make(map[string]*ClassData, len(results))
	for _, data := range results {
		if data != nil {
			files[data.Path] = data
		}
	}
	p.mu.Lock()
	p.files = files
	p.mu.Unlock()
	p.logger.Info("project scanned", zap.String("root", p.root), zap.Int("files", len(files)))
	return nil
}

func (p *Project) load(path string) (*ClassData, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > p.maxFileSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, p.maxFileSize)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := Parse(path, src)
	if err != nil {
		return nil, err
	}
	data.ModTime = info.ModTime()
	data.Size = info.Size()
	return data, nil
}

func (p *Project) abs(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.root, path)
	}
	return filepath.Clean(path)
}

// Get returns the cached ClassData of path, parsing the file on a miss.
func (p *Project) Get(path string) (*ClassData, error) {
	path = p.abs(path)
	p.mu.RLock()
	data, ok := p.files[path]
	p.mu.RUnlock()
	if ok {
		return data, nil
	}
	gen := p.generation(path)
	data, err := p.load(path)
	if err != nil {
		return nil, err
	}
	p.store(path, gen, data)
	return data, nil
}

func (p *Project) generation(path string) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gen[path]
}

// store caches data unless path was invalidated after gen was taken.
func (p *Project) store(path string, gen uint64, data *ClassData) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen[path] != gen {
		return false
	}
	p.files[path] = data
	return true
}

// Reload parses path again and replaces its cache entry. A file that can
// no longer be parsed loses its entry.
func (p *Project) Reload(path string) (*ClassData, error) {
	path = p.abs(path)
	data, err := p.load(path)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen[path]++
	if err != nil {
		delete(p.files, path)
		return nil, err
	}
	p.files[path] = data
	return data, nil
}

// Invalidate drops the cache entry of path.
func (p *Project) Invalidate(path string) {
	path = p.abs(path)
	p.mu.Lock()
	delete(p.files, path)
	p.gen[path]++
	p.mu.Unlock()
}

// Cached reports whether path currently has a cache entry.
func (p *Project) Cached(path string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.files[p.abs(path)]
	return ok
}

// Files lists the cached paths in order.
func (p *Project) Files() []string {
	p.mu.RLock()
	out := make([]string, 0, len(p.files))
	for path := range p.files {
		out = append(out, path)
	}
	p.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Lookup returns the cached files declaring a type called name. A qualified
// name matches on its last segment.
func (p *Project) Lookup(name string) []*ClassData {
	simple := name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		simple = name[i+1:]
	}
	p.mu.RLock()
	var out []*ClassData
	for _, data := range p.files {
		for _, t := range data.Types {
			if t == simple {
				out = append(out, data)
				break
			}
		}
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ContextFor returns the skeletons of the project types referenced by path,
// separated by blank lines. Types declared outside the project are ignored.
func (p *Project) ContextFor(path string) (string, error) {
	data, err := p.Get(path)
	if err != nil {
		return "", err
	}
	seen := map[string]struct{}{data.Path: {}}
	var parts []string
	for _, ref := range data.Referenced {
		best := p.resolve(data, ref)
		if best == nil {
			continue
		}
		if _, dup := seen[best.Path]; dup {
			continue
		}
		seen[best.Path] = struct{}{}
		parts = append(parts, strings.TrimRight(best.Skeleton, "\n"))
	}
	return strings.Join(parts, "\n\n"), nil
}

// resolve picks the declaration ref most likely names when used from: an
// explicit import first, then the same package.
func (p *Project) resolve(from *ClassData, ref string) *ClassData {
	candidates := p.Lookup(ref)
	if len(candidates) == 0 {
		return nil
	}
	qualifier := ""
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		qualifier = ref[:i]
	}
	if from.Language == Go && qualifier != "" {
		// pkg.Type only resolves to a project package of that name
		kept := candidates[:0]
		for _, c := range candidates {
			if c.Language == Go && c.Package == qualifier {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			return nil
		}
		candidates = kept
	}
	score := func(c *ClassData) int {
		s := 0
		if c.Language == from.Language {
			s++
		}
		if qualifier == "" && c.Package == from.Package {
			s += 4
		}
		if qualifier != "" && (c.Package == qualifier || strings.HasPrefix(qualifier, c.Package+".")) {
			s += 4
		}
		for _, imp := range from.Imports {
			if strings.HasSuffix(imp, "."+lastSegment(ref)) && strings.TrimSuffix(imp, "."+lastSegment(ref)) == c.Package {
				s += 8
			}
			if strings.HasSuffix(imp, ".*") && strings.TrimSuffix(imp, ".*") == c.Package {
				s += 2
			}
		}
		return s
	}
	best := candidates[0]
	bestScore := score(best)
	for _, c := range candidates[1:] {
		if s := score(c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
