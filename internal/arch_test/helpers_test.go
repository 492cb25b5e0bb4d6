// Package arch_test holds source-level checks on the internal packages:
// documentation, dependency direction, where third-party libraries may
// appear and what package-level state is allowed.
package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"testing"
)

const (
	modulePath  = "github.com/papapumpkin/citrank"
	internalPfx = modulePath + "/internal/"
)

// pkgFiles is one parsed internal package, non-test files only.
type pkgFiles struct {
	Name  string
	Dir   string
	Fset  *token.FileSet
	Files map[string]*ast.File // keyed by base file name
}

// repoRoot walks up from this file until it finds go.mod.
func repoRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	for dir := filepath.Dir(thisFile); ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		if parent := filepath.Dir(dir); parent == dir {
			t.Fatal("could not find go.mod in any parent directory")
		}
	}
}

// loadInternal parses every internal package except this one.
func loadInternal(t *testing.T) []pkgFiles {
	t.Helper()

	root := filepath.Join(repoRoot(t), "internal")
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("reading %s: %v", root, err)
	}

	var pkgs []pkgFiles
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "arch_test" {
			continue
		}
		p := parsePackage(t, filepath.Join(root, e.Name()))
		if len(p.Files) > 0 {
			pkgs = append(pkgs, p)
		}
	}
	return pkgs
}

func parsePackage(t *testing.T, dir string) pkgFiles {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	p := pkgFiles{
		Name:  filepath.Base(dir),
		Dir:   dir,
		Fset:  token.NewFileSet(),
		Files: make(map[string]*ast.File),
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(p.Fset, filepath.Join(dir, name), nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parsing %s: %v", name, err)
		}
		p.Files[name] = f
	}
	return p
}

// imports returns the sorted, deduplicated import paths of the package.
func (p pkgFiles) imports() []string {
	var out []string
	for _, f := range p.Files {
		for _, imp := range f.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err == nil && !slices.Contains(out, path) {
				out = append(out, path)
			}
		}
	}
	slices.Sort(out)
	return out
}

// internalImports returns the internal package names the package imports.
func (p pkgFiles) internalImports() []string {
	var out []string
	for _, path := range p.imports() {
		if rel, ok := strings.CutPrefix(path, internalPfx); ok {
			name, _, _ := strings.Cut(rel, "/")
			out = append(out, name)
		}
	}
	return out
}

func TestLoadInternal(t *testing.T) {
	t.Parallel()

	names := make(map[string]bool)
	for _, p := range loadInternal(t) {
		names[p.Name] = true
	}
	for _, want := range []string{"config", "graph", "pagerank", "pipeline", "report", "store"} {
		if !names[want] {
			t.Errorf("package %q missing from loadInternal result %v", want, names)
		}
	}
	if names["arch_test"] {
		t.Error("loadInternal should skip arch_test")
	}
}

func TestInternalImports(t *testing.T) {
	t.Parallel()

	p := parsePackage(t, filepath.Join(repoRoot(t), "internal", "pipeline"))
	got := p.internalImports()
	for _, want := range []string{"graph", "manifest", "pagerank", "report", "store", "telemetry"} {
		if !slices.Contains(got, want) {
			t.Errorf("pipeline imports %v, want it to include %q", got, want)
		}
	}
}
