package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan_TypeScriptProject(t *testing.T) {
	tmpDir := t.TempDir()

	writeFile(t, tmpDir, "package.json", `{
  "name": "webapp",
  "scripts": {"test": "vitest run", "build": "tsc -b"},
  "dependencies": {"react": "^18.0.0"}
}`)
	writeFile(t, tmpDir, "src/app.ts", "export {}")
	writeFile(t, tmpDir, "src/util/helpers.ts", "export {}")
	writeFile(t, tmpDir, "node_modules/react/index.js", "module.exports = {}")
	writeFile(t, tmpDir, ".anvil/memory.json", "{}")

	snap, err := Scan(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	if snap.Manifest == nil {
		t.Fatal("manifest not parsed")
	}
	if snap.Manifest.Name != "webapp" {
		t.Errorf("manifest name = %q, want webapp", snap.Manifest.Name)
	}
	if !snap.Manifest.HasScript("test") {
		t.Error("test script not found")
	}
	if snap.Manifest.HasScript("lint") {
		t.Error("phantom lint script reported")
	}

	if !snap.HasFile("src/app.ts") {
		t.Errorf("src/app.ts missing from listing: %v", snap.Files)
	}
	for _, f := range snap.Files {
		if filepath.ToSlash(f) == "node_modules/react/index.js" {
			t.Error("node_modules content was listed")
		}
		if filepath.ToSlash(f) == ".anvil/memory.json" {
			t.Error("state directory content was listed")
		}
	}
}

func TestScan_NoManifest(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "README.md", "hi")

	snap, err := Scan(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Manifest != nil {
		t.Error("manifest reported for project without package.json")
	}
	if snap.Manifest.HasScript("test") {
		t.Error("nil manifest must report no scripts")
	}
}

func TestDetectPackageManager(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"pnpm lockfile", []string{"pnpm-lock.yaml"}, "pnpm"},
		{"pnpm workspace", []string{"pnpm-workspace.yaml"}, "pnpm"},
		{"yarn", []string{"yarn.lock"}, "yarn"},
		{"pnpm beats yarn", []string{"pnpm-lock.yaml", "yarn.lock"}, "pnpm"},
		{"default", nil, "npm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, tmpDir, f, "")
			}
			if got := detectPackageManager(tmpDir); got != tt.want {
				t.Errorf("detectPackageManager = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScriptCommand(t *testing.T) {
	manifest := &Manifest{Scripts: map[string]string{
		"test": "vitest run",
		"lint": "eslint .",
	}}

	tests := []struct {
		manager string
		script  string
		want    string
	}{
		{"npm", "test", "npm test"},
		{"npm", "lint", "npm run lint"},
		{"pnpm", "test", "pnpm test"},
		{"pnpm", "lint", "pnpm lint"},
		{"yarn", "lint", "yarn lint"},
		{"npm", "missing", ""},
	}
	for _, tt := range tests {
		snap := &Snapshot{Manifest: manifest, PackageManager: tt.manager}
		if got := snap.ScriptCommand(tt.script); got != tt.want {
			t.Errorf("ScriptCommand(%s, %s) = %q, want %q", tt.manager, tt.script, got, tt.want)
		}
	}
}

func TestWorkspacePackages(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "pnpm-workspace.yaml", "packages:\n  - './packages/*'\n")
	if err := os.MkdirAll(filepath.Join(tmpDir, "packages", "core"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "packages", "ui"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Files matching the glob are not packages.
	writeFile(t, tmpDir, "packages/README.md", "")

	pkgs, err := workspacePackages(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("got %d packages, want 2: %v", len(pkgs), pkgs)
	}
	want := map[string]bool{"packages/core": true, "packages/ui": true}
	for _, p := range pkgs {
		if !want[p] {
			t.Errorf("unexpected package %q", p)
		}
	}
}

func TestFindRoot(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "pnpm-workspace.yaml", "packages:\n  - './packages/*'\n")
	writeFile(t, tmpDir, "package.json", `{"name": "mono"}`)
	writeFile(t, tmpDir, "packages/core/package.json", `{"name": "core"}`)
	writeFile(t, tmpDir, "packages/core/src/index.ts", "export {}")

	// A package's own manifest does not shadow the workspace root.
	if got := FindRoot(filepath.Join(tmpDir, "packages", "core", "src")); got != tmpDir {
		t.Errorf("FindRoot from package dir = %q, want %q", got, tmpDir)
	}
	if got := FindRoot(tmpDir); got != tmpDir {
		t.Errorf("FindRoot from root = %q, want %q", got, tmpDir)
	}

	plainDir := t.TempDir()
	writeFile(t, plainDir, "package.json", `{"name": "app"}`)
	writeFile(t, plainDir, "src/app.ts", "export {}")
	if got := FindRoot(filepath.Join(plainDir, "src")); got != plainDir {
		t.Errorf("FindRoot single-package = %q, want %q", got, plainDir)
	}

	bareDir := t.TempDir()
	if got := FindRoot(bareDir); got != bareDir {
		t.Errorf("FindRoot without manifest = %q, want %q", got, bareDir)
	}
}

func TestWorkspacePackage(t *testing.T) {
	snap := &Snapshot{WorkspacePackages: []string{"packages/core", "packages/ui"}}

	tests := []struct {
		rel  string
		want string
	}{
		{"packages/core", "packages/core"},
		{"packages/core/src", "packages/core"},
		{"packages/ui", "packages/ui"},
		{"packages/corelib", ""},
		{"src", ""},
		{".", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := snap.WorkspacePackage(tt.rel); got != tt.want {
			t.Errorf("WorkspacePackage(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}

	var nilSnap *Snapshot
	if got := nilSnap.WorkspacePackage("packages/core"); got != "" {
		t.Errorf("nil snapshot returned %q", got)
	}
}
