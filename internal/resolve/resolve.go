// Package resolve implements the dependency resolver (spec C6): given a
// database façade and a root request, it walks setupRequired/setupOptional
// edges to a topologically ordered, conflict-free (product, version, table)
// selection.
package resolve

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/natelust/reups/internal/db"
	"github.com/natelust/reups/internal/ident"
	"github.com/natelust/reups/internal/reupserr"
	"github.com/natelust/reups/internal/table"
)

// RootSpec names one root product to resolve, with an optional explicit
// pin. Version is empty to resolve via the request's tag-preference list.
type RootSpec struct {
	Product string
	Version ident.Version
}

// Request is the resolver's input: one or more group roots (spec §4.5
// "group roots") plus an ordered tag-preference list used for every
// unpinned edge in the graph.
type Request struct {
	Roots   []RootSpec
	TagPref []string
}

// NewRequest builds a single-root Request, the common case.
func NewRequest(product string, version ident.Version, tagPref []string) Request {
	return Request{Roots: []RootSpec{{Product: product, Version: version}}, TagPref: tagPref}
}

// Node is one entry of a Resolution, in topological (dependency-first) order.
type Node struct {
	Product    string
	Version    ident.Version
	InstallDir string
	Table      *table.Table
}

// Resolution is the resolver's output: an ordered, conflict-free selection
// plus any non-fatal warnings accumulated while building it (spec §3).
type Resolution struct {
	Order     []Node
	ByProduct map[string]ident.Version
	Warnings  *multierror.Error
}

type pin struct {
	version ident.Version
	pinned  bool
}

// resolver holds the mutable state of one Resolve call.
type resolver struct {
	db      *db.DB
	tagPref []string

	resolved map[string]pin
	tables   map[string]*table.Table
	deps     map[string][]string // product -> its dependency product names, declaration order
	visiting map[string]bool
	path     []string

	warnings *multierror.Error
}

// Resolve builds a Resolution for req against d.
func Resolve(d *db.DB, req Request) (*Resolution, error) {
	r := &resolver{
		db:       d,
		tagPref:  req.TagPref,
		resolved: make(map[string]pin),
		tables:   make(map[string]*table.Table),
		deps:     make(map[string][]string),
		visiting: make(map[string]bool),
	}

	for _, root := range req.Roots {
		isPin := root.Version != ""
		if err := r.visit(root.Product, root.Version, isPin); err != nil {
			return nil, err
		}
	}

	order, err := r.topoSort()
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]ident.Version, len(order))
	nodes := make([]Node, 0, len(order))
	for _, p := range order {
		v := r.resolved[p].version
		installDir := ""
		if rec, ok := r.db.LookupVersion(p, v); ok {
			installDir = rec.InstallDir
		}
		nodes = append(nodes, Node{Product: p, Version: v, InstallDir: installDir, Table: r.tables[p]})
		byProduct[p] = v
	}

	return &Resolution{Order: nodes, ByProduct: byProduct, Warnings: r.warnings}, nil
}

// visit resolves product to a concrete version (respecting an existing
// resolution and the pin-wins/hard-conflict rules of spec §4.5) and, for a
// newly resolved product, expands its table to discover further edges.
func (r *resolver) visit(product string, pinVersion ident.Version, isPin bool) error {
	if r.visiting[product] {
		return reupserr.Newf(reupserr.DependencyCycle, "cycle: %s -> %s", joinPath(r.path), product).WithProduct(product, "")
	}

	existing, already := r.resolved[product]
	if already {
		switch {
		case isPin && existing.pinned && pinVersion != existing.version:
			return reupserr.Newf(reupserr.VersionConflict,
				"%s pinned to both %s and %s", product, existing.version, pinVersion).WithProduct(product, string(pinVersion))
		case isPin && !existing.pinned && pinVersion != existing.version:
			// Pin wins over an earlier unpinned resolution: upgrade and
			// re-expand this product's subtree under the pinned version.
			r.resolved[product] = pin{version: pinVersion, pinned: true}
			return r.expand(product, pinVersion)
		default:
			return nil
		}
	}

	var version ident.Version
	if isPin {
		if _, ok := r.db.LookupVersion(product, pinVersion); !ok {
			return reupserr.Newf(reupserr.UnknownProduct, "no installed version %s for %s", pinVersion, product).WithProduct(product, string(pinVersion))
		}
		version = pinVersion
	} else {
		rec, ok := r.db.BestVersion(product, r.tagPref)
		if !ok {
			if len(r.db.ListVersions(product)) == 0 {
				return reupserr.Newf(reupserr.UnknownProduct, "%s not found in any stack", product).WithProduct(product, "")
			}
			return reupserr.Newf(reupserr.NoMatchingTag, "no tag in %v resolves %s", r.tagPref, product).WithProduct(product, "")
		}
		version = rec.Version
	}

	r.resolved[product] = pin{version: version, pinned: isPin}
	return r.expand(product, version)
}

// expand parses product@version's table and walks its dependency edges.
func (r *resolver) expand(product string, version ident.Version) error {
	rec, ok := r.db.LookupVersion(product, version)
	if !ok {
		return reupserr.Newf(reupserr.UnknownProduct, "no installed version %s for %s", version, product).WithProduct(product, string(version))
	}

	tbl := &table.Table{}
	if rec.TablePath != "" {
		parsed, err := table.ParseFile(rec.TablePath, os.ReadFile)
		if err != nil {
			return reupserr.Newf(reupserr.TableParseError, "parse table for %s@%s", product, version).
				WithProduct(product, string(version)).WithPath(rec.TablePath).WithCause(err)
		}
		tbl = parsed
	}
	for _, w := range tbl.Warnings {
		r.warnings = multierror.Append(r.warnings, fmt.Errorf("%s@%s: %s", product, version, w))
	}

	r.tables[product] = tbl
	r.deps[product] = nil

	r.visiting[product] = true
	r.path = append(r.path, product)
	defer func() {
		r.path = r.path[:len(r.path)-1]
		r.visiting[product] = false
	}()

	for _, dep := range tbl.RequiredDeps() {
		if err := r.visit(dep.Product, ident.Version(dep.Version), dep.Version != ""); err != nil {
			return err
		}
		r.deps[product] = append(r.deps[product], dep.Product)
	}
	for _, dep := range tbl.OptionalDeps() {
		err := r.visit(dep.Product, ident.Version(dep.Version), dep.Version != "")
		if err != nil {
			if reupserr.Is(err, reupserr.UnknownProduct) || reupserr.Is(err, reupserr.NoMatchingTag) {
				r.warnings = multierror.Append(r.warnings, fmt.Errorf(
					"optional dependency %s of %s@%s not satisfied: %w", dep.Product, product, version, err))
				continue
			}
			return err
		}
		r.deps[product] = append(r.deps[product], dep.Product)
	}
	return nil
}

// topoSort orders r.resolved's products so every dependency precedes its
// dependents (Kahn's algorithm), breaking ties by product name so the
// result is deterministic (spec §4.5, §8 property 4).
func (r *resolver) topoSort() ([]string, error) {
	indegree := make(map[string]int, len(r.resolved))
	successors := make(map[string][]string)
	for p := range r.resolved {
		indegree[p] = 0
	}
	for p, ds := range r.deps {
		for _, d := range ds {
			indegree[p]++
			successors[d] = append(successors[d], p)
		}
	}

	remaining := make(map[string]bool, len(r.resolved))
	for p := range r.resolved {
		remaining[p] = true
	}

	var order []string
	for len(remaining) > 0 {
		var ready string
		found := false
		for p := range remaining {
			if indegree[p] == 0 && (!found || p < ready) {
				ready = p
				found = true
			}
		}
		if !found {
			return nil, reupserr.New(reupserr.DependencyCycle, "cycle detected during topological sort")
		}
		order = append(order, ready)
		delete(remaining, ready)
		for _, succ := range successors[ready] {
			indegree[succ]--
		}
	}

	return order, nil
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}
