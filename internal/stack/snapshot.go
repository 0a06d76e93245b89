package stack

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/natelust/reups/internal/ident"
)

// snapshotDoc mirrors the JSON snapshot format from spec §6. Unknown fields
// are ignored on read (json.Unmarshal's default behavior already gives us
// this for free).
type snapshotDoc struct {
	StackRoot string            `json:"stack_root"`
	Products  []snapshotProduct `json:"products"`
	Tags      []snapshotTag     `json:"tags"`
}

type snapshotProduct struct {
	Name     string            `json:"name"`
	Versions []snapshotVersion `json:"versions"`
}

type snapshotVersion struct {
	Version   string            `json:"version"`
	ProdDir   string            `json:"prod_dir"`
	TablePath string            `json:"table_path"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type snapshotTag struct {
	Product string `json:"product"`
	Tag     string `json:"tag"`
	Version string `json:"version"`
	Scope   string `json:"scope"`
}

// WriteSnapshot serializes e to the JSON snapshot format at path.
func WriteSnapshot(e *Enumeration, path string) error {
	doc := toSnapshotDoc(e)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("stack: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("stack: write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot reads the JSON snapshot format from path.
func LoadSnapshot(path string) (*Enumeration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stack: read snapshot %s: %w", path, err)
	}
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("stack: parse snapshot %s: %w", path, err)
	}
	return fromSnapshotDoc(&doc), nil
}

func toSnapshotDoc(e *Enumeration) snapshotDoc {
	doc := snapshotDoc{StackRoot: e.StackRoot}
	for product, versions := range e.ByProduct() {
		sp := snapshotProduct{Name: product}
		for _, v := range versions {
			sp.Versions = append(sp.Versions, snapshotVersion{
				Version:   string(v.Version),
				ProdDir:   v.InstallDir,
				TablePath: v.TablePath,
				Metadata:  v.Metadata,
			})
		}
		doc.Products = append(doc.Products, sp)
	}
	for _, tg := range e.Tags {
		doc.Tags = append(doc.Tags, snapshotTag{
			Product: tg.Product,
			Tag:     tg.Tag,
			Version: string(tg.Version),
			Scope:   tg.Scope.String(),
		})
	}
	return doc
}

func fromSnapshotDoc(doc *snapshotDoc) *Enumeration {
	e := &Enumeration{StackRoot: doc.StackRoot}
	for _, sp := range doc.Products {
		for _, sv := range sp.Versions {
			e.Versions = append(e.Versions, VersionRecord{
				Product:    sp.Name,
				Version:    ident.Version(sv.Version),
				InstallDir: sv.ProdDir,
				TablePath:  sv.TablePath,
				Metadata:   sv.Metadata,
			})
		}
	}
	for _, st := range doc.Tags {
		scope := ident.ScopeGlobal
		if st.Scope == "user" {
			scope = ident.ScopeUser
		}
		e.Tags = append(e.Tags, TagBinding{
			Product: st.Product,
			Tag:     st.Tag,
			Version: ident.Version(st.Version),
			Scope:   scope,
		})
	}
	return e
}
