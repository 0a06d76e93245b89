package resolve_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/natelust/reups/internal/db"
	"github.com/natelust/reups/internal/ident"
	"github.com/natelust/reups/internal/rcache"
	"github.com/natelust/reups/internal/resolve"
	"github.com/natelust/reups/internal/reupserr"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile %s: %v", path, err)
	}
}

func openDB(t *testing.T, roots []string) *db.DB {
	t.Helper()
	cache, err := rcache.New(t.TempDir(), quietLogger())
	if err != nil {
		t.Fatalf("rcache.New: %v", err)
	}
	d, err := db.Open(context.Background(), roots, cache, "")
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	return d
}

// TestScenarioSimpleChain is end-to-end scenario 1 from spec.md: a linear
// dependency chain resolves in dependency-first order through the full
// db -> resolve pipeline.
func TestScenarioSimpleChain(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ups_db", "baz", "1.0.version"), "PROD_DIR=/opt/baz/1.0\n")
	writeFile(t, filepath.Join(root, "ups_db", "bar", "1.0.table"), "setupRequired(baz)\n")
	writeFile(t, filepath.Join(root, "ups_db", "bar", "1.0.version"), "PROD_DIR=/opt/bar/1.0\n")
	writeFile(t, filepath.Join(root, "ups_db", "foo", "1.0.table"), "setupRequired(bar)\n")
	writeFile(t, filepath.Join(root, "ups_db", "foo", "1.0.version"), "PROD_DIR=/opt/foo/1.0\n")

	d := openDB(t, []string{root})
	res, err := resolve.Resolve(d, resolve.NewRequest("foo", "1.0", []string{"newest"}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Order) != 3 || res.Order[0].Product != "baz" || res.Order[2].Product != "foo" {
		t.Fatalf("expected baz, bar, foo order, got %+v", res.Order)
	}
}

// TestScenarioTagPreference is end-to-end scenario 2: an unpinned root
// resolves through a multi-stack tag-preference list, falling through to a
// later tag when an earlier one is absent, and finally to "newest".
func TestScenarioTagPreference(t *testing.T) {
	primary := t.TempDir()
	secondary := t.TempDir()

	writeFile(t, filepath.Join(secondary, "ups_db", "foo", "1.0.version"), "PROD_DIR=/opt/foo/1.0\n")
	writeFile(t, filepath.Join(secondary, "ups_db", "foo", "2.0.version"), "PROD_DIR=/opt/foo/2.0\n")
	writeFile(t, filepath.Join(secondary, "ups_db", "foo", "stable.chain"), "VERSION=1.0\n")

	d := openDB(t, []string{primary, secondary})

	res, err := resolve.Resolve(d, resolve.NewRequest("foo", "", []string{"current", "stable", "newest"}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.ByProduct["foo"] != ident.Version("1.0") {
		t.Fatalf("expected tag fallthrough to stable@1.0, got %v", res.ByProduct["foo"])
	}

	res, err = resolve.Resolve(d, resolve.NewRequest("foo", "", []string{"current", "newest"}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.ByProduct["foo"] != ident.Version("2.0") {
		t.Fatalf("expected newest fallthrough to 2.0, got %v", res.ByProduct["foo"])
	}
}

// TestScenarioVersionConflict is end-to-end scenario 3: two roots pinning
// the same product to incompatible versions fails the whole resolution.
func TestScenarioVersionConflict(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ups_db", "bar", "1.0.version"), "PROD_DIR=/opt/bar/1.0\n")
	writeFile(t, filepath.Join(root, "ups_db", "bar", "2.0.version"), "PROD_DIR=/opt/bar/2.0\n")

	d := openDB(t, []string{root})
	req := resolve.Request{
		Roots: []resolve.RootSpec{
			{Product: "bar", Version: "1.0"},
			{Product: "bar", Version: "2.0"},
		},
	}
	_, err := resolve.Resolve(d, req)
	if !reupserr.Is(err, reupserr.VersionConflict) {
		t.Fatalf("expected VersionConflict, got %v", err)
	}
}

// TestScenarioCycle is end-to-end scenario 4: a required-edge cycle is
// rejected rather than silently truncated.
func TestScenarioCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ups_db", "a", "1.0.table"), "setupRequired(b, 1.0)\n")
	writeFile(t, filepath.Join(root, "ups_db", "a", "1.0.version"), "PROD_DIR=/opt/a/1.0\n")
	writeFile(t, filepath.Join(root, "ups_db", "b", "1.0.table"), "setupRequired(a, 1.0)\n")
	writeFile(t, filepath.Join(root, "ups_db", "b", "1.0.version"), "PROD_DIR=/opt/b/1.0\n")

	d := openDB(t, []string{root})
	_, err := resolve.Resolve(d, resolve.NewRequest("a", "1.0", nil))
	if !reupserr.Is(err, reupserr.DependencyCycle) {
		t.Fatalf("expected DependencyCycle, got %v", err)
	}
}
