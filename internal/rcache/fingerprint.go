package rcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// fileMeta is one entry in a fingerprint: enough to detect any change to a
// file's identity or content without reading its bytes.
type fileMeta struct {
	RelPath string
	Size    int64
	MtimeNs int64
	Symlink string // symlink target, or "" if not a symlink
}

// Fingerprint computes a content-addressed hash over every file under
// <root>/ups_db (spec §4.3 step 1). Symlinks contribute their target, not
// their target's metadata, so retargeting a symlink invalidates the
// fingerprint but moving what it points to does not. A missing ups_db
// fingerprints as the empty stack.
func Fingerprint(root string) (string, error) {
	dbDir := filepath.Join(root, "ups_db")

	var metas []fileMeta
	err := filepath.WalkDir(dbDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dbDir, path)
		if relErr != nil {
			return relErr
		}

		info, lerr := d.Info()
		if lerr != nil {
			return lerr
		}

		m := fileMeta{RelPath: filepath.ToSlash(rel)}
		if info.Mode()&os.ModeSymlink != 0 {
			target, terr := os.Readlink(path)
			if terr != nil {
				return terr
			}
			m.Symlink = target
		} else {
			m.Size = info.Size()
			m.MtimeNs = info.ModTime().UnixNano()
		}
		metas = append(metas, m)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("rcache: fingerprint %s: %w", dbDir, err)
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].RelPath < metas[j].RelPath })

	h := sha256.New()
	for _, m := range metas {
		fmt.Fprintf(h, "%s\x00%d\x00%d\x00%s\n", m.RelPath, m.Size, m.MtimeNs, m.Symlink)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// cachePathFor derives the deterministic cache file path for a stack root
// under dir (spec §4.3 step 2). The stack root is hashed into the file name
// so distinct roots never collide.
func cachePathFor(dir, root string) string {
	h := sha256.Sum256([]byte(filepath.Clean(root)))
	name := hex.EncodeToString(h[:])[:32]
	return filepath.Join(dir, name+".rcache")
}
