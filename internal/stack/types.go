// Package stack implements the stack reader (spec C3): it walks a single
// on-disk EUPS stack and yields Products/Versions/Tags without parsing table
// files, and it reads/writes the JSON snapshot format (spec §6) as an
// alternative to walking ups_db/ directly.
package stack

import "github.com/natelust/reups/internal/ident"

// VersionRecord is one declared (product, version) in a stack: the install
// directory, the table file path (empty if the product has no table), and
// any opaque key/value metadata carried by the .version file.
type VersionRecord struct {
	Product   string
	Version   ident.Version
	InstallDir string
	TablePath string
	Metadata  map[string]string
}

// TagBinding is one (product, tag) -> version alias.
type TagBinding struct {
	Product string
	Tag     string
	Version ident.Version
	Scope   ident.TagScope
}

// Enumeration is the full materialized result of scanning one stack: every
// declared version and every tag binding, in canonical (product, then
// version/tag name) order so repeated scans of an unchanged tree produce a
// byte-identical result (a precondition for a stable cache fingerprint).
type Enumeration struct {
	StackRoot string
	Versions  []VersionRecord
	Tags      []TagBinding
}

// ByProduct groups Versions by product name, preserving the canonical order
// within each group.
func (e *Enumeration) ByProduct() map[string][]VersionRecord {
	out := make(map[string][]VersionRecord)
	for _, v := range e.Versions {
		out[v.Product] = append(out[v.Product], v)
	}
	return out
}

// TagsByProduct groups Tags by product name.
func (e *Enumeration) TagsByProduct() map[string][]TagBinding {
	out := make(map[string][]TagBinding)
	for _, tg := range e.Tags {
		out[tg.Product] = append(out[tg.Product], tg)
	}
	return out
}
