// Package setup implements the setup engine (spec C7): it turns a
// resolve.Resolution into an ordered list of shell-level directives,
// simulating the environment in-memory and recording enough of each
// product's delta to support a later unsetup.
package setup

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/natelust/reups/internal/reupserr"
	"github.com/natelust/reups/internal/resolve"
	"github.com/natelust/reups/internal/table"
)

// DirectiveKind tags the variant of an emitted shell-level mutation.
type DirectiveKind int

const (
	DirExport DirectiveKind = iota
	DirUnset
	DirAlias
	DirUnalias
	DirSource
)

// Directive is one shell-level mutation, dialect-independent: internal/setup/shell
// renders a slice of these into dialect-specific script lines.
type Directive struct {
	Kind  DirectiveKind
	Var   string // export/unset variable name, or alias/unalias name
	Value string // export value, or alias body
	Path  string // sourceFile path
}

// category controls emission order (spec §4.6): all unsets, then all sets,
// then prepends/appends, then aliases (and unalias), then sources.
type category int

const (
	catUnset category = iota
	catSet
	catPrependAppend
	catAlias
	catSource
)

type event struct {
	d   Directive
	cat category
}

// Output is the result of a Setup call.
type Output struct {
	Directives []Directive
	Warnings   []string
}

// Setup applies res to callerEnv and returns the ordered shell directives to
// emit. callerEnv is read, never mutated; the engine works against its own
// shadow copy. Each product in res.Order that was already set up (its
// REUPS_SETUP_<PRODUCT> reserved variable is present, either in callerEnv or
// because an earlier node in this same call set it) is first inverted, so
// re-running Setup for an already-active product does not grow the
// environment (spec §4.6 "re-setup bound").
func Setup(res *resolve.Resolution, callerEnv map[string]string) (*Output, error) {
	shadow := make(map[string]string, len(callerEnv))
	for k, v := range callerEnv {
		shadow[k] = v
	}

	var events []event
	var warnings []string

	for _, node := range res.Order {
		reserved := reservedVarName(node.Product)

		var invertEvents []event
		if existing, ok := shadow[reserved]; ok {
			rec, err := decodeRecord(existing)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: discarding unreadable prior setup record: %v", node.Product, err))
				delete(shadow, reserved)
			} else {
				invertEvents = invert(rec, shadow)
				delete(shadow, reserved)
			}
		}

		nodeEvents, delta, err := applyNode(node, shadow)
		if err != nil {
			return nil, err
		}

		// Drop any inversion event for a variable this node's own
		// re-application touches again: nodeEvents already carries the
		// authoritative final directive for it, and emitting both would let
		// the category-based sort below reorder the stale restore after (or
		// before) the real one, corrupting re-setup idempotency (spec §8
		// property 8). Only inversion events for variables the node no
		// longer touches still need to reach the shell.
		for _, ev := range invertEvents {
			if _, reTouched := delta[ev.d.Var]; reTouched {
				continue
			}
			events = append(events, ev)
		}
		events = append(events, nodeEvents...)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].cat < events[j].cat })

	out := &Output{Warnings: warnings}
	for _, ev := range events {
		out.Directives = append(out.Directives, ev.d)
	}
	return out, nil
}

// applyNode runs one resolved product's table actions against shadow
// (mutating it in place) and returns the events they produced (plus, when
// at least one variable was touched, a trailing export of that product's
// new Record) along with the set of
// variables the node's actions touched, so the caller can tell which of an
// inverted prior record's restores are superseded.
func applyNode(node resolve.Node, shadow map[string]string) ([]event, map[string]VarDelta, error) {
	var events []event
	delta := make(map[string]VarDelta)

	recordTouch := func(v string) {
		if _, ok := delta[v]; ok {
			return
		}
		if prior, ok := shadow[v]; ok {
			delta[v] = VarDelta{WasSet: true, Prior: prior}
		} else {
			delta[v] = VarDelta{WasSet: false}
		}
	}

	if node.Table != nil {
		for _, a := range node.Table.Actions {
			switch a.Kind {
			case table.SetupRequired, table.SetupOptional:
				// Graph edges only; no environment effect at emission time.
				continue

			case table.EnvSet:
				val, err := interpolate(a.Value, node.InstallDir, shadow)
				if err != nil {
					return nil, nil, wrapInterpErr(err, node.Product, string(node.Version))
				}
				recordTouch(a.Var)
				shadow[a.Var] = val
				events = append(events, event{d: Directive{Kind: DirExport, Var: a.Var, Value: val}, cat: catSet})

			case table.EnvUnset:
				recordTouch(a.Var)
				delete(shadow, a.Var)
				events = append(events, event{d: Directive{Kind: DirUnset, Var: a.Var}, cat: catUnset})

			case table.EnvPrepend, table.EnvAppend:
				val, err := interpolate(a.Value, node.InstallDir, shadow)
				if err != nil {
					return nil, nil, wrapInterpErr(err, node.Product, string(node.Version))
				}
				delim := a.Delim
				if delim == "" {
					delim = ":"
				}
				cur := shadow[a.Var]
				var joined string
				switch {
				case cur == "":
					joined = val
				case a.Kind == table.EnvPrepend:
					joined = val + delim + cur
				default:
					joined = cur + delim + val
				}
				recordTouch(a.Var)
				shadow[a.Var] = joined
				events = append(events, event{d: Directive{Kind: DirExport, Var: a.Var, Value: joined}, cat: catPrependAppend})

			case table.Alias:
				val, err := interpolate(a.Value, node.InstallDir, shadow)
				if err != nil {
					return nil, nil, wrapInterpErr(err, node.Product, string(node.Version))
				}
				events = append(events, event{d: Directive{Kind: DirAlias, Var: a.Var, Value: val}, cat: catAlias})

			case table.Unalias:
				events = append(events, event{d: Directive{Kind: DirUnalias, Var: a.Var}, cat: catAlias})

			case table.SourceFile:
				path, err := interpolate(a.Path, node.InstallDir, shadow)
				if err != nil {
					return nil, nil, wrapInterpErr(err, node.Product, string(node.Version))
				}
				events = append(events, event{d: Directive{Kind: DirSource, Path: path}, cat: catSource})
			}
		}
	}

	if len(delta) == 0 {
		return events, delta, nil
	}

	rec := Record{
		Product: node.Product,
		Version: string(node.Version),
		TxnID:   uuid.NewString(),
		Vars:    delta,
	}
	encoded, err := encodeRecord(rec)
	if err != nil {
		return nil, nil, err
	}
	reserved := reservedVarName(node.Product)
	shadow[reserved] = encoded
	events = append(events, event{d: Directive{Kind: DirExport, Var: reserved, Value: encoded}, cat: catSet})

	return events, delta, nil
}

// invert produces the directives (and shadow-env mutations) that undo rec,
// restoring every variable it touched to its pre-setup state. Variables are
// visited in sorted order, not map iteration order, so that two runs over
// the same Record emit the same event sequence (spec §8 property 1).
func invert(rec Record, shadow map[string]string) []event {
	vars := make([]string, 0, len(rec.Vars))
	for v := range rec.Vars {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	events := make([]event, 0, len(vars))
	for _, v := range vars {
		d := rec.Vars[v]
		if d.WasSet {
			shadow[v] = d.Prior
			events = append(events, event{d: Directive{Kind: DirExport, Var: v, Value: d.Prior}, cat: catSet})
		} else {
			delete(shadow, v)
			events = append(events, event{d: Directive{Kind: DirUnset, Var: v}, cat: catUnset})
		}
	}
	return events
}

func wrapInterpErr(err error, product, version string) error {
	if e, ok := err.(*reupserr.Error); ok {
		return e.WithProduct(product, version)
	}
	return err
}

// Unsetup reverses a previously applied setup for product, reading its
// Record from callerEnv's reserved variable. If the product was never set
// up (no reserved variable present), it returns an empty, non-error Output.
func Unsetup(product string, callerEnv map[string]string) (*Output, error) {
	reserved := reservedVarName(product)
	encoded, ok := callerEnv[reserved]
	if !ok {
		return &Output{}, nil
	}

	rec, err := decodeRecord(encoded)
	if err != nil {
		return nil, fmt.Errorf("setup: unsetup %s: %w", product, err)
	}

	shadow := make(map[string]string, len(callerEnv))
	for k, v := range callerEnv {
		shadow[k] = v
	}

	events := invert(rec, shadow)
	events = append(events, event{d: Directive{Kind: DirUnset, Var: reserved}, cat: catUnset})

	sort.SliceStable(events, func(i, j int) bool { return events[i].cat < events[j].cat })

	out := &Output{}
	for _, ev := range events {
		out.Directives = append(out.Directives, ev.d)
	}
	return out, nil
}
