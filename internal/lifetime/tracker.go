// Package lifetime keeps a process-scoped registry of open database handles
// for bulk teardown in tests and cleanup tooling.
//
// The registry holds weak pointers only. Registering a handle never keeps it
// alive; a handle collected by the runtime simply drops out of ForEachLive.
// Sweep is the one destructive operation: it closes every live handle and
// then removes on-disk artifacts of databases from a directory.
//
// A Tracker is constructed and torn down explicitly by whoever owns test
// teardown. There is no package-level instance.
package lifetime

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"weak"

	"go.uber.org/multierr"
)

// DefaultExtension is the primary file suffix removed by Sweep.
const DefaultExtension = ".strata"

// Sidecar suffixes appended to a primary file name. Only names of the form
// <name><ext><sidecar> match; a bare server.log is left alone.
var (
	sidecarFiles = []string{".lock", ".note", ".log"}
	sidecarDirs  = []string{".management"}
)

// Tracker is a registry of weakly held handles of type T. Handles whose
// pointer type implements io.Closer are closed by Sweep.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Tracker[T any] struct {
	mu      sync.Mutex
	handles []weak.Pointer[T]

	extension string
	logger    *slog.Logger
}

// Option configures a Tracker.
type Option func(*options)

type options struct {
	extension string
	logger    *slog.Logger
}

// WithExtension sets the primary file suffix Sweep removes.
//
// Default: ".strata" (DefaultExtension)
func WithExtension(ext string) Option {
	return func(o *options) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		o.extension = ext
	}
}

// WithLogger sets the logger for sweep diagnostics. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates an empty tracker.
func New[T any](opts ...Option) *Tracker[T] {
	o := options{
		extension: DefaultExtension,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Tracker[T]{extension: o.extension, logger: o.logger}
}

// Register adds h. Registering the same handle twice is a no-op.
func (t *Tracker[T]) Register(h *T) {
	if h == nil {
		return
	}
	p := weak.Make(h)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.handles {
		if existing == p {
			return
		}
	}
	t.handles = append(t.handles, p)
}

// live prunes collected handles and returns the rest. Caller holds mu.
func (t *Tracker[T]) live() []*T {
	out := make([]*T, 0, len(t.handles))
	kept := t.handles[:0]
	for _, p := range t.handles {
		if h := p.Value(); h != nil {
			out = append(out, h)
			kept = append(kept, p)
		}
	}
	clear(t.handles[len(kept):])
	t.handles = kept
	return out
}

// ForEachLive calls fn for every registered handle that has not been
// collected, in registration order. fn runs without the tracker's lock
// held, so it may call Register.
func (t *Tracker[T]) ForEachLive(fn func(*T)) {
	t.mu.Lock()
	handles := t.live()
	t.mu.Unlock()
	for _, h := range handles {
		fn(h)
	}
}

// Len returns the number of live handles.
func (t *Tracker[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live())
}

// Clear forgets every handle without closing it.
func (t *Tracker[T]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles = nil
}

// Sweep closes every live handle, clears the registry and removes artifacts
// in dir: primary files <name><ext>, their <name><ext>.lock, .note and
// .log files, and <name><ext>.management directories. Only the top level of dir is examined. Every failure is
// collected; Sweep does not stop at the first one.
func (t *Tracker[T]) Sweep(dir string) error {
	var err error
	t.ForEachLive(func(h *T) {
		c, ok := any(h).(io.Closer)
		if !ok {
			return
		}
		if cerr := c.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close handle: %w", cerr))
		}
	})
	t.Clear()

	entries, rerr := os.ReadDir(dir)
	if rerr != nil {
		if errors.Is(rerr, os.ErrNotExist) {
			return err
		}
		return multierr.Append(err, fmt.Errorf("read %s: %w", dir, rerr))
	}
	for _, entry := range entries {
		if !t.matches(entry) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if rmErr := os.RemoveAll(path); rmErr != nil {
			err = multierr.Append(err, fmt.Errorf("remove %s: %w", path, rmErr))
			continue
		}
		t.logger.Debug("swept", "path", path)
	}
	return err
}

func (t *Tracker[T]) matches(entry os.DirEntry) bool {
	if t.extension == "" {
		return false
	}
	name := entry.Name()
	if entry.IsDir() {
		return hasPrimary(name, t.extension, sidecarDirs)
	}
	return hasPrimary(name, t.extension, nil) || hasPrimary(name, t.extension, sidecarFiles)
}

// hasPrimary reports whether name is a non-empty stem followed by ext and,
// when suffixes is non-empty, one of suffixes.
func hasPrimary(name, ext string, suffixes []string) bool {
	if len(suffixes) == 0 {
		return len(name) > len(ext) && strings.HasSuffix(name, ext)
	}
	for _, s := range suffixes {
		if base, ok := strings.CutSuffix(name, s); ok && hasPrimary(base, ext, nil) {
			return true
		}
	}
	return false
}
