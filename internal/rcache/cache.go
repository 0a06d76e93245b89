// Package rcache implements the on-disk cache (spec C4): a per-stack
// binary snapshot of internal/stack's enumeration, validated by a content
// fingerprint and guarded by a non-blocking advisory file lock so a
// stampede of concurrent shells never blocks on each other.
package rcache

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natelust/reups/internal/reupserr"
	"github.com/natelust/reups/internal/stack"
)

// Cache is a directory of per-stack binary snapshot files.
type Cache struct {
	dir    string
	logger *slog.Logger
}

// New creates a Cache rooted at dir, creating it with 0700 permissions if
// necessary. If dir cannot be created (e.g. read-only home directory), it
// falls back to a per-process directory under os.TempDir() rather than
// failing the caller outright (spec §4.3: "falls back to a per-process
// temp file if unwritable").
func New(dir string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fallback := filepath.Join(os.TempDir(), fmt.Sprintf("reups-%d", os.Getpid()))
		if ferr := os.MkdirAll(fallback, 0o700); ferr != nil {
			return nil, reupserr.Newf(reupserr.CacheError, "create cache dir %s (and fallback %s)", dir, fallback).WithCause(err)
		}
		logger.Debug("rcache: cache dir unwritable, using per-process fallback", "requested", dir, "fallback", fallback, "err", err)
		dir = fallback
	}
	return &Cache{dir: dir, logger: logger}, nil
}

// Get returns the Enumeration for root, either from a valid cache entry or
// by re-scanning the stack directly when the cache is absent, stale,
// corrupt, or its lock is contended. Cache problems are logged at debug
// level and never surface as an error here: only a genuine stack read
// failure (from stack.Scan) is fatal.
func (c *Cache) Get(root string) (*stack.Enumeration, error) {
	fp, err := Fingerprint(root)
	if err != nil {
		return nil, reupserr.Newf(reupserr.StackIoError, "fingerprint %s", root).WithCause(err)
	}

	path := cachePathFor(c.dir, root)
	if e, ok := c.tryLoad(path, fp); ok {
		return e, nil
	}

	e, err := stack.Scan(root)
	if err != nil {
		return nil, err
	}

	if err := c.tryStore(path, fp, e); err != nil {
		c.logger.Debug("rcache: write failed, continuing uncached", "path", path, "err", err)
	}
	return e, nil
}

// tryLoad attempts to read and validate the cache entry at path against fp.
// Any failure (missing file, contended lock, corrupt payload, stale
// fingerprint) returns ok=false so the caller degrades to a fresh scan.
func (c *Cache) tryLoad(path, fp string) (*stack.Enumeration, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	ok, lerr := tryLock(f, false)
	if lerr != nil {
		c.logger.Debug("rcache: shared lock error, degrading", "path", path, "err", lerr)
		return nil, false
	}
	if !ok {
		c.logger.Debug("rcache: shared lock contended, degrading", "path", path)
		return nil, false
	}
	defer unlock(f)

	data, err := io.ReadAll(f)
	if err != nil {
		c.logger.Debug("rcache: read failed, degrading", "path", path, "err", err)
		return nil, false
	}

	storedFP, e, err := decode(data)
	if err != nil {
		c.logger.Debug("rcache: corrupt cache entry, will rebuild", "path", path, "err", err)
		return nil, false
	}
	if storedFP != fp {
		c.logger.Debug("rcache: fingerprint mismatch, rebuilding", "path", path)
		return nil, false
	}
	return e, true
}

// tryStore writes e (with fingerprint fp) to path, taking an exclusive
// lock on path itself (not the temp file) so concurrent readers and
// writers serialize against the same inode, then encoding to a temp file
// in the same directory and renaming it into place atomically.
func (c *Cache) tryStore(path, fp string, e *stack.Enumeration) error {
	lockFile, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("rcache: open for lock %s: %w", path, err)
	}
	defer lockFile.Close()

	ok, lerr := tryLock(lockFile, true)
	if lerr != nil {
		return fmt.Errorf("rcache: exclusive lock error: %w", lerr)
	}
	if !ok {
		return fmt.Errorf("rcache: exclusive lock contended")
	}
	defer unlock(lockFile)

	data, err := encode(fp, e)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-rcache-*")
	if err != nil {
		return fmt.Errorf("rcache: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("rcache: write temp: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("rcache: chmod temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("rcache: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rcache: rename temp: %w", err)
	}
	success = true
	return nil
}

// Invalidate removes the cache entry for root, if any. Used by tests and by
// a front end's explicit "refresh" action.
func (c *Cache) Invalidate(root string) error {
	path := cachePathFor(c.dir, root)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rcache: invalidate %s: %w", path, err)
	}
	return nil
}
