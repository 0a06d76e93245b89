package setup

import (
	"fmt"
	"strings"
	"testing"

	"github.com/natelust/reups/internal/ident"
	"github.com/natelust/reups/internal/resolve"
	"github.com/natelust/reups/internal/table"
)

func mustParse(t *testing.T, src string) *table.Table {
	t.Helper()
	tbl, err := table.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tbl
}

func barResolution(t *testing.T) *resolve.Resolution {
	t.Helper()
	tbl := mustParse(t, `
envSet(BAR_DIR, ${PRODUCT_DIR})
envPrepend(PATH, ${PRODUCT_DIR}/bin)
`)
	return &resolve.Resolution{
		Order: []resolve.Node{
			{Product: "bar", Version: ident.Version("1.0"), InstallDir: "/opt/bar/1.0", Table: tbl},
		},
		ByProduct: map[string]ident.Version{"bar": "1.0"},
	}
}

func TestSetupEmitsUnsetThenSetThenPrependOrder(t *testing.T) {
	tbl := mustParse(t, `
envUnset(OLD_VAR)
envSet(BAR_DIR, ${PRODUCT_DIR})
envPrepend(PATH, ${PRODUCT_DIR}/bin)
alias(bar-cmd, "echo hi")
sourceFile(${PRODUCT_DIR}/extra.sh)
`)
	res := &resolve.Resolution{
		Order: []resolve.Node{
			{Product: "bar", Version: "1.0", InstallDir: "/opt/bar/1.0", Table: tbl},
		},
	}

	out, err := Setup(res, map[string]string{"PATH": "/usr/bin", "OLD_VAR": "x"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	var kinds []DirectiveKind
	for _, d := range out.Directives {
		kinds = append(kinds, d.Kind)
	}
	// unset(OLD_VAR), export(BAR_DIR), export(REUPS_SETUP_BAR), export(PATH prepend), alias, source
	if len(kinds) != 6 {
		t.Fatalf("expected 6 directives, got %d: %+v", len(kinds), out.Directives)
	}
	if kinds[0] != DirUnset {
		t.Fatalf("expected first directive to be the unset, got %+v", out.Directives[0])
	}
	if kinds[len(kinds)-1] != DirSource {
		t.Fatalf("expected last directive to be the source, got %+v", out.Directives[len(kinds)-1])
	}
	foundAlias := false
	aliasIdx, sourceIdx := -1, -1
	for i, d := range out.Directives {
		if d.Kind == DirAlias {
			foundAlias = true
			aliasIdx = i
		}
		if d.Kind == DirSource {
			sourceIdx = i
		}
	}
	if !foundAlias || aliasIdx > sourceIdx {
		t.Fatalf("expected alias directive before source directive, got %+v", out.Directives)
	}
}

func TestSetupInterpolatesProductDirAndPath(t *testing.T) {
	res := barResolution(t)
	out, err := Setup(res, map[string]string{"PATH": "/usr/bin"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	var barDir, path string
	for _, d := range out.Directives {
		if d.Kind == DirExport && d.Var == "BAR_DIR" {
			barDir = d.Value
		}
		if d.Kind == DirExport && d.Var == "PATH" {
			path = d.Value
		}
	}
	if barDir != "/opt/bar/1.0" {
		t.Fatalf("expected BAR_DIR=/opt/bar/1.0, got %q", barDir)
	}
	if path != "/opt/bar/1.0/bin:/usr/bin" {
		t.Fatalf("expected prepended PATH, got %q", path)
	}
}

func TestSetupUnsetupRoundTrip(t *testing.T) {
	res := barResolution(t)
	callerEnv := map[string]string{"PATH": "/usr/bin"}

	out, err := Setup(res, callerEnv)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	afterSetup := applyDirectives(callerEnv, out.Directives)

	unOut, err := Unsetup("bar", afterSetup)
	if err != nil {
		t.Fatalf("Unsetup: %v", err)
	}
	restored := applyDirectives(afterSetup, unOut.Directives)

	if restored["PATH"] != "/usr/bin" {
		t.Fatalf("expected PATH restored to /usr/bin, got %q", restored["PATH"])
	}
	if _, ok := restored["BAR_DIR"]; ok {
		t.Fatalf("expected BAR_DIR to be unset after unsetup, got %q", restored["BAR_DIR"])
	}
	if _, ok := restored[reservedVarName("bar")]; ok {
		t.Fatal("expected reserved setup record variable removed after unsetup")
	}
}

func TestSetupTwiceInARowIsIdempotentForFinalEnv(t *testing.T) {
	res := barResolution(t)
	callerEnv := map[string]string{"PATH": "/usr/bin"}

	out1, err := Setup(res, callerEnv)
	if err != nil {
		t.Fatalf("Setup (1st): %v", err)
	}
	afterFirst := applyDirectives(callerEnv, out1.Directives)

	out2, err := Setup(res, afterFirst)
	if err != nil {
		t.Fatalf("Setup (2nd): %v", err)
	}
	afterSecond := applyDirectives(afterFirst, out2.Directives)

	if afterFirst["PATH"] != afterSecond["PATH"] {
		t.Fatalf("expected stable PATH across re-setup, got %q vs %q", afterFirst["PATH"], afterSecond["PATH"])
	}
	if afterFirst["BAR_DIR"] != afterSecond["BAR_DIR"] {
		t.Fatalf("expected stable BAR_DIR across re-setup, got %q vs %q", afterFirst["BAR_DIR"], afterSecond["BAR_DIR"])
	}
}

func TestSetupTwiceIsIdempotentWhenTableUnsetsPreexistingVar(t *testing.T) {
	tbl := mustParse(t, `envUnset(OLD_VAR)`)
	res := &resolve.Resolution{
		Order: []resolve.Node{
			{Product: "bar", Version: "1.0", InstallDir: "/opt/bar/1.0", Table: tbl},
		},
	}
	callerEnv := map[string]string{"OLD_VAR": "x"}

	out1, err := Setup(res, callerEnv)
	if err != nil {
		t.Fatalf("Setup (1st): %v", err)
	}
	afterFirst := applyDirectives(callerEnv, out1.Directives)
	if _, ok := afterFirst["OLD_VAR"]; ok {
		t.Fatalf("expected OLD_VAR unset after first setup, got %q", afterFirst["OLD_VAR"])
	}

	out2, err := Setup(res, afterFirst)
	if err != nil {
		t.Fatalf("Setup (2nd): %v", err)
	}
	afterSecond := applyDirectives(afterFirst, out2.Directives)
	if _, ok := afterSecond["OLD_VAR"]; ok {
		t.Fatalf("expected OLD_VAR to remain unset after second setup, got %q", afterSecond["OLD_VAR"])
	}
}

func TestSetupIsDeterministicAcrossRuns(t *testing.T) {
	tbl := mustParse(t, `
envSet(BAR_A, ${PRODUCT_DIR}/a)
envSet(BAR_B, ${PRODUCT_DIR}/b)
envSet(BAR_C, ${PRODUCT_DIR}/c)
`)
	res := &resolve.Resolution{
		Order: []resolve.Node{
			{Product: "bar", Version: "1.0", InstallDir: "/opt/bar/1.0", Table: tbl},
		},
	}

	var renders []string
	for i := 0; i < 5; i++ {
		out, err := Setup(res, map[string]string{"PATH": "/usr/bin"})
		if err != nil {
			t.Fatalf("Setup (run %d): %v", i, err)
		}
		var b strings.Builder
		for _, d := range out.Directives {
			fmt.Fprintf(&b, "%d|%s|%s|%s\n", d.Kind, d.Var, d.Value, d.Path)
		}
		renders = append(renders, b.String())
	}
	for i := 1; i < len(renders); i++ {
		if renders[i] != renders[0] {
			t.Fatalf("expected byte-identical directive sequence across runs, run 0:\n%s\nrun %d:\n%s", renders[0], i, renders[i])
		}
	}
}

func TestEncodedRecordExcludesTxnID(t *testing.T) {
	rec := Record{
		Product: "bar",
		Version: "1.0",
		TxnID:   "should-not-survive-the-wire",
		Vars: map[string]VarDelta{
			"BAR_A": {WasSet: false},
			"BAR_B": {WasSet: true, Prior: "old"},
		},
	}
	encoded, err := encodeRecord(rec)
	if err != nil {
		t.Fatalf("encodeRecord: %v", err)
	}
	if strings.Contains(encoded, "should-not-survive-the-wire") {
		t.Fatal("expected TxnID to be excluded from the encoded record")
	}

	decoded, err := decodeRecord(encoded)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if decoded.TxnID != "" {
		t.Fatalf("expected decoded TxnID to be empty, got %q", decoded.TxnID)
	}
	if len(decoded.Vars) != 2 || decoded.Vars["BAR_B"].Prior != "old" {
		t.Fatalf("expected Vars to round-trip, got %+v", decoded.Vars)
	}
}

func TestRequiredInterpolationFailsWhenUnset(t *testing.T) {
	tbl := mustParse(t, `envSet(X, ${!MISSING_VAR})`)
	res := &resolve.Resolution{
		Order: []resolve.Node{{Product: "bar", Version: "1.0", InstallDir: "/opt/bar/1.0", Table: tbl}},
	}
	_, err := Setup(res, map[string]string{})
	if err == nil {
		t.Fatal("expected interpolation error for unset required variable")
	}
}

// applyDirectives is a tiny env simulator used only by tests to chain
// Setup/Unsetup outputs the way a real shell would.
func applyDirectives(base map[string]string, directives []Directive) map[string]string {
	out := make(map[string]string, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, d := range directives {
		switch d.Kind {
		case DirExport:
			out[d.Var] = d.Value
		case DirUnset:
			delete(out, d.Var)
		}
	}
	return out
}
