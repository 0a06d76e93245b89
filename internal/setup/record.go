package setup

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"sort"
	"strings"
)

// VarDelta is the pre-setup state of one environment variable a product's
// table actions touched: either its prior value, or WasSet=false meaning it
// was unset before this product's setup ran.
type VarDelta struct {
	WasSet bool
	Prior  string
}

// Record is the inverse of one product's applied setup: everything needed
// to restore the shadow environment to how it was before this product's
// table actions ran (spec §3 "Setup record"). It is serialized with
// encoding/gob and stored, base64-packed, in a reserved REUPS_SETUP_<PRODUCT>
// variable so a later unsetup (possibly in a different process) can recover
// it without re-walking the resolution.
//
// TxnID is an opaque, per-call identifier kept only for in-process
// debugging; it is deliberately excluded from the wire format (see
// wireRecord) so that two runs over identical inputs emit byte-identical
// REUPS_SETUP_<PRODUCT> values (spec §8 property 1).
type Record struct {
	Product string
	Version string
	TxnID   string
	Vars    map[string]VarDelta
}

// wireRecord is the serialized form of a Record: TxnID is dropped, and Vars
// is a slice sorted by name rather than a map, since gob's map encoding
// iterates keys in randomized order and would otherwise make the emitted
// payload non-deterministic across runs.
type wireRecord struct {
	Product string
	Version string
	Vars    []varDeltaEntry
}

type varDeltaEntry struct {
	Var   string
	Delta VarDelta
}

// reservedVarName returns the environment variable name a product's Record
// is stored under: REUPS_SETUP_<PRODUCT>, uppercased with hyphens folded to
// underscores so it is a valid shell identifier.
func reservedVarName(product string) string {
	name := strings.ToUpper(product)
	name = strings.ReplaceAll(name, "-", "_")
	return "REUPS_SETUP_" + name
}

func encodeRecord(r Record) (string, error) {
	wire := wireRecord{Product: r.Product, Version: r.Version}

	keys := make([]string, 0, len(r.Vars))
	for v := range r.Vars {
		keys = append(keys, v)
	}
	sort.Strings(keys)
	for _, v := range keys {
		wire.Vars = append(wire.Vars, varDeltaEntry{Var: v, Delta: r.Vars[v]})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return "", fmt.Errorf("setup: encode record for %s: %w", r.Product, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeRecord(encoded string) (Record, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Record{}, fmt.Errorf("setup: decode record: %w", err)
	}
	var wire wireRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return Record{}, fmt.Errorf("setup: decode record: %w", err)
	}

	r := Record{
		Product: wire.Product,
		Version: wire.Version,
		Vars:    make(map[string]VarDelta, len(wire.Vars)),
	}
	for _, e := range wire.Vars {
		r.Vars[e.Var] = e.Delta
	}
	return r, nil
}
