// Package db implements the database façade (spec C5): a read-only,
// ordered-list-of-stacks view composing internal/rcache (memoized
// internal/stack enumerations) plus per-stack user tag directories.
package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/natelust/reups/internal/ident"
	"github.com/natelust/reups/internal/rcache"
	"github.com/natelust/reups/internal/stack"
)

// entry is one opened stack: its enumeration, indexed for fast lookup, plus
// its user- and global-scope tag bindings after dropping dangling ones.
type entry struct {
	root        string
	versions    map[string][]stack.VersionRecord // product -> versions, canonical order
	globalTags  map[string]map[string]ident.Version // product -> tag -> version
	userTags    map[string]map[string]ident.Version
}

// DB is a read-only façade over an ordered list of stacks. Earlier stacks
// shadow later ones for the same (product, version, tag) lookup (spec §3).
type DB struct {
	entries  []*entry
	warnings *multierror.Error
}

// Open opens every stack root in roots, in order, parallelizing the
// per-stack cache lookups with an errgroup since stacks are independent
// (spec §4.4, §5 "parallelism opportunities"). userPrefDir is the base
// directory for per-stack user tag chains (spec §6); pass "" to disable
// user tags entirely.
func Open(ctx context.Context, roots []string, cache *rcache.Cache, userPrefDir string) (*DB, error) {
	entries := make([]*entry, len(roots))
	warningsPerEntry := make([]*multierror.Error, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			enum, err := cache.Get(root)
			if err != nil {
				return err
			}

			var userTagBindings []stack.TagBinding
			if userPrefDir != "" {
				dir := filepath.Join(userPrefDir, stackHash(root))
				userTagBindings, err = stack.ScanUserTags(dir)
				if err != nil {
					return fmt.Errorf("db: scan user tags for %s: %w", root, err)
				}
			}

			e, warn := buildEntry(root, enum, userTagBindings)
			entries[i] = e
			warningsPerEntry[i] = warn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var warnings *multierror.Error
	for _, w := range warningsPerEntry {
		if w != nil {
			warnings = multierror.Append(warnings, w.Errors...)
		}
	}

	return &DB{entries: entries, warnings: warnings}, nil
}

// Warnings returns the accumulated non-fatal issues found while opening the
// stacks (currently: dangling tag bindings, spec §3 invariant 4).
func (db *DB) Warnings() *multierror.Error {
	return db.warnings
}

func buildEntry(root string, enum *stack.Enumeration, userTagBindings []stack.TagBinding) (*entry, *multierror.Error) {
	e := &entry{
		root:       root,
		versions:   enum.ByProduct(),
		globalTags: make(map[string]map[string]ident.Version),
		userTags:   make(map[string]map[string]ident.Version),
	}

	var warnings *multierror.Error

	addTag := func(dest map[string]map[string]ident.Version, tb stack.TagBinding) {
		if !versionExists(e.versions, tb.Product, tb.Version) {
			warnings = multierror.Append(warnings, fmt.Errorf(
				"db: dropping dangling tag %q for %s@%s in stack %s: version not installed",
				tb.Tag, tb.Product, tb.Version, root))
			return
		}
		if dest[tb.Product] == nil {
			dest[tb.Product] = make(map[string]ident.Version)
		}
		dest[tb.Product][tb.Tag] = tb.Version
	}

	for _, tb := range enum.Tags {
		addTag(e.globalTags, tb)
	}
	for _, tb := range userTagBindings {
		addTag(e.userTags, tb)
	}

	return e, warnings
}

func versionExists(versions map[string][]stack.VersionRecord, product string, v ident.Version) bool {
	for _, rec := range versions[product] {
		if rec.Version == v {
			return true
		}
	}
	return false
}

func stackHash(root string) string {
	h := sha256.Sum256([]byte(filepath.Clean(root)))
	return hex.EncodeToString(h[:])[:16]
}

// LookupVersion searches stacks in caller order for product@version.
func (db *DB) LookupVersion(product string, version ident.Version) (stack.VersionRecord, bool) {
	for _, e := range db.entries {
		for _, v := range e.versions[product] {
			if v.Version == version {
				return v, true
			}
		}
	}
	return stack.VersionRecord{}, false
}

// LookupTag resolves an explicit tag binding: user-scope tags are checked
// first (across all stacks, in stack order), then stack-global tags, also
// in stack order (spec §4.4). It does not synthesize the "newest"
// pseudo-tag; that only happens inside BestVersion's tag-preference walk.
func (db *DB) LookupTag(product, tag string) (stack.VersionRecord, bool) {
	for _, e := range db.entries {
		if byTag, ok := e.userTags[product]; ok {
			if v, ok := byTag[tag]; ok {
				if rec, ok := db.LookupVersion(product, v); ok {
					return rec, true
				}
			}
		}
	}
	for _, e := range db.entries {
		if byTag, ok := e.globalTags[product]; ok {
			if v, ok := byTag[tag]; ok {
				if rec, ok := db.LookupVersion(product, v); ok {
					return rec, true
				}
			}
		}
	}
	return stack.VersionRecord{}, false
}

// ListVersions returns the union of versions for product across all
// stacks, deduplicated by version; when two stacks declare the same
// version, the earliest stack in the caller's order wins the metadata
// (spec §9 open question, resolved here).
func (db *DB) ListVersions(product string) []stack.VersionRecord {
	seen := make(map[ident.Version]bool)
	var out []stack.VersionRecord
	for _, e := range db.entries {
		for _, v := range e.versions[product] {
			if seen[v.Version] {
				continue
			}
			seen[v.Version] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// BestVersion applies an ordered tag-preference list: the first tag with a
// hit wins. The literal tag name "newest" is synthesized as the
// lexicographically latest installed version rather than looked up as an
// explicit binding (spec §3, §4.4).
func (db *DB) BestVersion(product string, tagPref []string) (stack.VersionRecord, bool) {
	for _, tag := range tagPref {
		if tag == ident.NewestTag {
			versions := db.ListVersions(product)
			if len(versions) == 0 {
				continue
			}
			var idents []ident.Version
			for _, v := range versions {
				idents = append(idents, v.Version)
			}
			newest, ok := ident.Newest(idents)
			if !ok {
				continue
			}
			for _, v := range versions {
				if v.Version == newest {
					return v, true
				}
			}
			continue
		}
		if v, ok := db.LookupTag(product, tag); ok {
			return v, true
		}
	}
	return stack.VersionRecord{}, false
}
