package stack

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natelust/reups/internal/ident"
	"github.com/natelust/reups/internal/reupserr"
)

// Scan walks <root>/ups_db and returns the full Enumeration. It does not
// parse table files; it only records their paths (spec §4.2). Results are
// sorted into canonical (product, version/tag) order regardless of the
// underlying filesystem's directory-entry order, so repeated scans of an
// unchanged tree are byte-for-byte identical.
func Scan(root string) (*Enumeration, error) {
	dbDir := filepath.Join(root, "ups_db")
	info, err := os.Stat(dbDir)
	if err != nil {
		if os.IsNotExist(err) {
			// An empty/absent ups_db is a valid, if empty, stack.
			return &Enumeration{StackRoot: root}, nil
		}
		return nil, reupserr.Newf(reupserr.StackIoError, "stat %s", dbDir).WithCause(err)
	}
	if !info.IsDir() {
		return nil, reupserr.Newf(reupserr.StackIoError, "%s is not a directory", dbDir)
	}

	productDirs, err := os.ReadDir(dbDir)
	if err != nil {
		return nil, reupserr.Newf(reupserr.StackIoError, "read %s", dbDir).WithCause(err)
	}

	e := &Enumeration{StackRoot: root}
	for _, pd := range productDirs {
		if !pd.IsDir() {
			continue
		}
		product := ident.NormalizeProduct(pd.Name())
		productPath := filepath.Join(dbDir, pd.Name())

		versions, tags, err := scanProductDir(product, productPath)
		if err != nil {
			return nil, err
		}
		e.Versions = append(e.Versions, versions...)
		e.Tags = append(e.Tags, tags...)
	}

	sort.Slice(e.Versions, func(i, j int) bool {
		if e.Versions[i].Product != e.Versions[j].Product {
			return e.Versions[i].Product < e.Versions[j].Product
		}
		return e.Versions[i].Version < e.Versions[j].Version
	})
	sort.Slice(e.Tags, func(i, j int) bool {
		if e.Tags[i].Product != e.Tags[j].Product {
			return e.Tags[i].Product < e.Tags[j].Product
		}
		return e.Tags[i].Tag < e.Tags[j].Tag
	})

	return e, nil
}

func scanProductDir(product, productPath string) ([]VersionRecord, []TagBinding, error) {
	entries, err := os.ReadDir(productPath)
	if err != nil {
		return nil, nil, reupserr.Newf(reupserr.StackIoError, "read %s", productPath).WithCause(err)
	}

	tableVersions := make(map[string]string) // version -> table file path
	versionFiles := make(map[string]string)  // version -> .version file path
	chainFiles := make(map[string]string)    // tag -> .chain file path

	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		switch {
		case strings.HasSuffix(name, ".table"):
			tableVersions[strings.TrimSuffix(name, ".table")] = filepath.Join(productPath, name)
		case strings.HasSuffix(name, ".version"):
			versionFiles[strings.TrimSuffix(name, ".version")] = filepath.Join(productPath, name)
		case strings.HasSuffix(name, ".chain"):
			chainFiles[strings.TrimSuffix(name, ".chain")] = filepath.Join(productPath, name)
		}
	}

	var versions []VersionRecord
	for ver, path := range versionFiles {
		meta, err := readKeyValueFile(path)
		if err != nil {
			return nil, nil, err
		}
		versions = append(versions, VersionRecord{
			Product:    product,
			Version:    ident.Version(ver),
			InstallDir: meta["PROD_DIR"],
			TablePath:  tableVersions[ver],
			Metadata:   meta,
		})
	}

	var tags []TagBinding
	for tag, path := range chainFiles {
		meta, err := readKeyValueFile(path)
		if err != nil {
			return nil, nil, err
		}
		target := meta["VERSION"]
		if target == "" {
			continue // a .chain without a VERSION key yields no binding; it is skipped here without a warning
		}
		tags = append(tags, TagBinding{
			Product: product,
			Tag:     tag,
			Version: ident.Version(target),
			Scope:   ident.ScopeGlobal,
		})
	}

	return versions, tags, nil
}

// readKeyValueFile parses a .version/.chain KEY=VALUE file, one assignment
// per line; blank lines and lines starting with '#' are ignored.
func readKeyValueFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, reupserr.Newf(reupserr.StackIoError, "read %s", path).WithCause(err)
	}
	out := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		val = strings.Trim(val, `"'`)
		out[key] = val
	}
	return out, nil
}

// ScanUserTags walks a user preference directory for the given stack,
// <userTagDir>/<product>/<tag>.chain, and returns ScopeUser tag bindings
// (spec §6's user-tag layout). A missing directory is not an error.
func ScanUserTags(userTagDir string) ([]TagBinding, error) {
	if userTagDir == "" {
		return nil, nil
	}
	productDirs, err := os.ReadDir(userTagDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stack: read user tag dir %s: %w", userTagDir, err)
	}

	var tags []TagBinding
	for _, pd := range productDirs {
		if !pd.IsDir() {
			continue
		}
		product := ident.NormalizeProduct(pd.Name())
		productPath := filepath.Join(userTagDir, pd.Name())
		entries, err := os.ReadDir(productPath)
		if err != nil {
			return nil, fmt.Errorf("stack: read %s: %w", productPath, err)
		}
		for _, ent := range entries {
			if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".chain") {
				continue
			}
			tag := strings.TrimSuffix(ent.Name(), ".chain")
			meta, err := readKeyValueFile(filepath.Join(productPath, ent.Name()))
			if err != nil {
				return nil, err
			}
			if meta["VERSION"] == "" {
				continue
			}
			tags = append(tags, TagBinding{
				Product: product,
				Tag:     tag,
				Version: ident.Version(meta["VERSION"]),
				Scope:   ident.ScopeUser,
			})
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Product != tags[j].Product {
			return tags[i].Product < tags[j].Product
		}
		return tags[i].Tag < tags[j].Tag
	})
	return tags, nil
}
