// Package template resolves named message templates and renders them with
// the pongo2 (Django syntax) engine. Interpolated values are HTML-escaped by
// default; the escapeslack tag and filter switch to Slack's own escaping.
package template

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/kart-io/slackhub/pkg/errors"
	"github.com/kart-io/slackhub/pkg/logger"
)

// Entry is a resolved template together with its default escaping mode.
type Entry struct {
	Name       string
	Autoescape bool
	template   *pongo2.Template
}

// ResolverOption configures a Resolver.
type ResolverOption func(*resolverConfig)

type resolverConfig struct {
	dir        string
	files      fs.FS
	autoescape bool
	logger     logger.Logger
}

// WithDir loads templates from a directory on disk.
func WithDir(dir string) ResolverOption {
	return func(cfg *resolverConfig) {
		cfg.dir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS, e.g. an embed.FS.
func WithFS(files fs.FS) ResolverOption {
	return func(cfg *resolverConfig) {
		cfg.files = files
	}
}

// WithDefaultAutoescape sets the escaping mode of templates that were not
// registered with an explicit one. Defaults to true.
func WithDefaultAutoescape(enabled bool) ResolverOption {
	return func(cfg *resolverConfig) {
		cfg.autoescape = enabled
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l logger.Logger) ResolverOption {
	return func(cfg *resolverConfig) {
		cfg.logger = l
	}
}

// RegisterOption configures a single registered template.
type RegisterOption func(*Entry)

// WithAutoescape overrides the escaping mode of one template.
func WithAutoescape(enabled bool) RegisterOption {
	return func(e *Entry) {
		e.Autoescape = enabled
	}
}

// Resolver maps logical message names to compiled templates. Lookups go to
// registered in-memory templates first, then the directory, then the fs.FS.
type Resolver struct {
	mu         sync.RWMutex
	set        *pongo2.TemplateSet
	memory     *memoryLoader
	compiled   map[string]*pongo2.Template
	modes      map[string]bool
	autoescape bool
	logger     logger.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) (*Resolver, error) {
	cfg := &resolverConfig{autoescape: true, logger: logger.Discard}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	memory := newMemoryLoader()
	loaders := []pongo2.TemplateLoader{memory}
	if cfg.dir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.dir)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInvalidConfig, "template dir %q", cfg.dir)
		}
		loaders = append(loaders, loader)
	}
	if cfg.files != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.files))
	}

	return &Resolver{
		set:        pongo2.NewSet("slackhub", loaders...),
		memory:     memory,
		compiled:   make(map[string]*pongo2.Template),
		modes:      make(map[string]bool),
		autoescape: cfg.autoescape,
		logger:     cfg.logger,
	}, nil
}

// Register adds or replaces an in-memory template. The body is compiled
// immediately so syntax errors surface here.
func (r *Resolver) Register(name, body string, opts ...RegisterOption) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New(errors.ErrTemplateRenderFailed, "template name is required")
	}

	entry := &Entry{Name: name, Autoescape: r.autoescape}
	for _, opt := range opts {
		opt(entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous, hadPrevious := r.memory.get(name)
	r.memory.put(name, body)
	// Children compiled against the old body hold it as their parent.
	clear(r.compiled)

	if _, err := r.compileLocked(name); err != nil {
		if hadPrevious {
			r.memory.put(name, previous)
		} else {
			r.memory.remove(name)
		}
		return err
	}

	r.modes[name] = entry.Autoescape
	r.logger.Debug("Template registered", "name", name, "autoescape", entry.Autoescape)
	return nil
}

// Remove drops an in-memory template. Every compiled template is discarded
// so children extending name are recompiled against what remains.
func (r *Resolver) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.memory.remove(name)
	clear(r.compiled)
	delete(r.modes, name)
}

// Names returns the registered in-memory template names, sorted.
func (r *Resolver) Names() []string {
	return r.memory.names()
}

// Resolve returns the compiled template registered under name. It fails with
// a TEMPLATE_NOT_FOUND error when no loader knows the name.
func (r *Resolver) Resolve(name string) (*Entry, error) {
	r.mu.RLock()
	tpl, ok := r.compiled[name]
	mode, hasMode := r.modes[name]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		var err error
		tpl, err = r.compileLocked(name)
		mode, hasMode = r.modes[name]
		r.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	if !hasMode {
		mode = r.autoescape
	}
	return &Entry{Name: name, Autoescape: mode, template: tpl}, nil
}

func (r *Resolver) compileLocked(name string) (*pongo2.Template, error) {
	if tpl, ok := r.compiled[name]; ok {
		return tpl, nil
	}

	tpl, err := r.set.FromFile(name)
	if err != nil {
		var perr *pongo2.Error
		if stderrors.As(err, &perr) && perr.Sender == "fromfile" {
			return nil, errors.NewTemplateNotFound(name).WithCause(err)
		}
		r.logger.Error("Failed to compile template", "name", name, "error", err)
		return nil, errors.Wrap(err, errors.ErrTemplateRenderFailed, "compile template").WithTemplate(name)
	}

	r.compiled[name] = tpl
	return tpl, nil
}

// memoryLoader is a pongo2.TemplateLoader over a flat name -> body map.
type memoryLoader struct {
	mu     sync.RWMutex
	bodies map[string]string
}

func newMemoryLoader() *memoryLoader {
	return &memoryLoader{bodies: make(map[string]string)}
}

func (l *memoryLoader) Abs(_, name string) string {
	return name
}

func (l *memoryLoader) Get(path string) (io.Reader, error) {
	body, ok := l.get(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return strings.NewReader(body), nil
}

func (l *memoryLoader) get(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	body, ok := l.bodies[name]
	return body, ok
}

func (l *memoryLoader) put(name, body string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bodies[name] = body
}

func (l *memoryLoader) remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.bodies, name)
}

func (l *memoryLoader) names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.bodies))
	for name := range l.bodies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
