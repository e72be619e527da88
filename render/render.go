// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package render

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Renderer renders named templates discovered under a root directory.
// It is safe for concurrent use.
type Renderer struct {
	dir      string
	ext      string
	prefix   string
	cacheKey string
	funcs    template.FuncMap
	reload   bool
	logger   *zap.Logger

	mu        sync.RWMutex
	templates *template.Template

	context *renderContext

	watchOnce sync.Once
	done      chan struct{}
	closeErr  func() error
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithExtension sets the file extension recognized as a template.
//
// Default: ".html".
func WithExtension(ext string) Option {
	return func(r *Renderer) {
		r.ext = ext
	}
}

// WithAssetPrefix sets the path prefix digest_asset puts in front of
// asset names.
//
// Default: "/assets/".
func WithAssetPrefix(prefix string) Option {
	return func(r *Renderer) {
		r.prefix = prefix
	}
}

// WithFuncs registers additional template helpers alongside digest_asset.
func WithFuncs(funcs template.FuncMap) Option {
	return func(r *Renderer) {
		r.funcs = funcs
	}
}

// WithReload watches the template directory and recompiles on change.
// Meant for development; a failed recompile keeps the previous set.
func WithReload() Option {
	return func(r *Renderer) {
		r.reload = true
	}
}

// WithLogger sets the logger used to report watcher and reload problems.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// New scans dir recursively, compiles every discovered template and
// registers the digest_asset helper bound to a cache key derived from
// the current time. Any file that fails to parse makes construction fail
// with a [TemplateError]; a Renderer is never partially usable.
func New(dir string, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		dir:     dir,
		ext:     ".html",
		prefix:  "/assets/",
		logger:  zap.NewNop(),
		context: newRenderContext(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cacheKey = strconv.FormatInt(time.Now().Unix(), 10)

	tmpl, err := r.compile()
	if err != nil {
		return nil, err
	}
	r.templates = tmpl

	if r.reload {
		if err := r.watch(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DigestAsset is the digest_asset helper: it appends the renderer's
// cache key as a version query parameter so client caches treat the
// asset as new after each deploy.
func (r *Renderer) DigestAsset(name string) string {
	return r.prefix + name + "?v=" + r.cacheKey
}

func (r *Renderer) funcMap() template.FuncMap {
	funcs := template.FuncMap{
		"digest_asset": r.DigestAsset,
	}
	for name, fn := range r.funcs {
		funcs[name] = fn
	}
	return funcs
}

func (r *Renderer) compile() (*template.Template, error) {
	root := template.New("").
		Option("missingkey=error").
		Funcs(r.funcMap())

	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), r.ext) {
			return nil
		}

		rel, err := filepath.Rel(r.dir, path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), r.ext)

		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := root.New(name).Parse(string(b)); err != nil {
			return &TemplateError{Name: name, Err: err}
		}
		return nil
	})
	if err != nil {
		var terr *TemplateError
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, &TemplateError{Err: err}
	}
	return root, nil
}

// Insert stores value under key in the shared context, replacing any
// prior value. The value is normalized through JSON; values that cannot
// be serialized fail with a [ContextUpdateError].
func (r *Renderer) Insert(key string, value any) error {
	if err := r.context.insert(key, value); err != nil {
		return &ContextUpdateError{Key: key, Err: err}
	}
	return nil
}

// Render executes the named template against a snapshot of the current
// context. An unknown name fails with a [TemplateError]; an execution
// failure with a [RenderError]. Neither invalidates the Renderer.
func (r *Renderer) Render(name string) (string, error) {
	r.mu.RLock()
	t := r.templates.Lookup(name)
	r.mu.RUnlock()
	if t == nil {
		return "", &TemplateError{Name: name, Err: ErrTemplateNotFound}
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, r.context.snapshot()); err != nil {
		return "", &RenderError{Name: name, Err: err}
	}
	return buf.String(), nil
}

// Reload recompiles the template set from disk and swaps it in. On
// failure the previous set stays active. The cache key is not refreshed;
// it is fixed for the life of the Renderer.
func (r *Renderer) Reload() error {
	tmpl, err := r.compile()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()
	return nil
}

// Close stops the directory watcher, if one was started.
func (r *Renderer) Close() error {
	if r.closeErr == nil {
		return nil
	}
	var err error
	r.watchOnce.Do(func() {
		close(r.done)
		err = r.closeErr()
	})
	return err
}
