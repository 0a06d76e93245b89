package setup_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/natelust/reups/internal/db"
	"github.com/natelust/reups/internal/rcache"
	"github.com/natelust/reups/internal/resolve"
	"github.com/natelust/reups/internal/setup"
	"github.com/natelust/reups/internal/setup/shell"
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

// applyEnv simulates a shell evaluating the export/unset directives from a
// Setup/Unsetup Output, the way a real login shell would.
func applyEnv(base map[string]string, directives []setup.Directive) map[string]string {
	out := make(map[string]string, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, d := range directives {
		switch d.Kind {
		case setup.DirExport:
			out[d.Var] = d.Value
		case setup.DirUnset:
			delete(out, d.Var)
		}
	}
	return out
}

func buildBarStack(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ups_db", "bar", "1.0.table"),
		"envSet(BAR_DIR, ${PRODUCT_DIR})\nenvPrepend(PATH, ${PRODUCT_DIR}/bin)\n")
	writeFile(t, filepath.Join(root, "ups_db", "bar", "1.0.version"), "PROD_DIR=/opt/bar/1.0\n")
	writeFile(t, filepath.Join(root, "ups_db", "bar", "current.chain"), "VERSION=1.0\n")
	return root
}

// TestScenarioCacheReuse is end-to-end scenario 5: opening the same stack
// twice against the same cache directory yields an identical enumeration,
// and the second open reuses the on-disk cache entry rather than failing.
func TestScenarioCacheReuse(t *testing.T) {
	root := buildBarStack(t)
	cacheDir := t.TempDir()

	cache, err := rcache.New(cacheDir, quietLogger())
	if err != nil {
		t.Fatalf("rcache.New: %v", err)
	}

	first, err := db.Open(context.Background(), []string{root}, cache, "")
	if err != nil {
		t.Fatalf("db.Open (1st): %v", err)
	}
	entries, err := os.ReadDir(cacheDir)
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected a cache entry written to %s, got %v (err=%v)", cacheDir, entries, err)
	}

	second, err := db.Open(context.Background(), []string{root}, cache, "")
	if err != nil {
		t.Fatalf("db.Open (2nd): %v", err)
	}

	firstVersions := first.ListVersions("bar")
	secondVersions := second.ListVersions("bar")
	if len(firstVersions) != len(secondVersions) || firstVersions[0].Version != secondVersions[0].Version {
		t.Fatalf("expected identical enumerations across cache reuse, got %+v vs %+v", firstVersions, secondVersions)
	}
}

// TestScenarioUnsetupRoundTrip is end-to-end scenario 6, run through the
// full db -> resolve -> setup -> shell -> unsetup pipeline.
func TestScenarioUnsetupRoundTrip(t *testing.T) {
	root := buildBarStack(t)
	cache, err := rcache.New(t.TempDir(), quietLogger())
	if err != nil {
		t.Fatalf("rcache.New: %v", err)
	}
	d, err := db.Open(context.Background(), []string{root}, cache, "")
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}

	res, err := resolve.Resolve(d, resolve.NewRequest("bar", "1.0", nil))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	callerEnv := map[string]string{"PATH": "/usr/bin"}
	out, err := setup.Setup(res, callerEnv)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if _, err := shell.Render(shell.Bash, out.Directives); err != nil {
		t.Fatalf("Render: %v", err)
	}
	afterSetup := applyEnv(callerEnv, out.Directives)

	reserved := ""
	for k := range afterSetup {
		if strings.HasPrefix(k, "REUPS_SETUP_") {
			reserved = k
		}
	}
	if reserved == "" {
		t.Fatal("expected a REUPS_SETUP_* reserved variable after setup")
	}

	unOut, err := setup.Unsetup("bar", afterSetup)
	if err != nil {
		t.Fatalf("Unsetup: %v", err)
	}
	restored := applyEnv(afterSetup, unOut.Directives)

	if restored["PATH"] != "/usr/bin" {
		t.Fatalf("expected PATH restored exactly, got %q", restored["PATH"])
	}
	if _, ok := restored["BAR_DIR"]; ok {
		t.Fatal("expected BAR_DIR removed after unsetup")
	}
	if _, ok := restored[reserved]; ok {
		t.Fatal("expected reserved setup record removed after unsetup")
	}
}
