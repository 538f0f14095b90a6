// Package project inspects a workspace: its file listing, manifest, and
// package manager. The fallback engines consult a Snapshot when choosing
// files to read and validation commands to run.
package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxListedFiles bounds the walk so pathological trees don't blow up the
// snapshot.
const maxListedFiles = 2000

// skipDirs are directory names excluded from the file listing.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".anvil":       true,
}

// Snapshot is a point-in-time view of a project workspace.
type Snapshot struct {
	Root              string
	Files             []string
	Manifest          *Manifest
	PackageManager    string
	WorkspacePackages []string

	// ActiveFile is the editor's focused file, when the host reports one.
	// Project-relative.
	ActiveFile string
}

// FindRoot walks up from dir to the workspace root: the nearest ancestor
// declaring a pnpm workspace, else the nearest with a package.json, else
// dir itself. In a monorepo the packages carry their own manifests, so
// only the workspace file marks the true root.
func FindRoot(dir string) string {
	manifestRoot := ""
	for d := dir; ; {
		if fileExists(filepath.Join(d, "pnpm-workspace.yaml")) {
			return d
		}
		if manifestRoot == "" && fileExists(filepath.Join(d, "package.json")) {
			manifestRoot = d
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	if manifestRoot != "" {
		return manifestRoot
	}
	return dir
}

// Scan builds a Snapshot of the workspace rooted at rootDir.
func Scan(rootDir string) (*Snapshot, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("stat project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", rootDir)
	}

	snap := &Snapshot{Root: rootDir}

	snap.Files, err = listFiles(rootDir)
	if err != nil {
		return nil, err
	}

	snap.Manifest, err = parseManifest(rootDir)
	if err != nil {
		return nil, err
	}

	snap.PackageManager = detectPackageManager(rootDir)

	snap.WorkspacePackages, err = workspacePackages(rootDir)
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// listFiles walks the tree collecting project-relative slash paths, skipping
// dependency and output directories.
func listFiles(rootDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != rootDir && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if len(files) >= maxListedFiles {
			return filepath.SkipAll
		}
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list project files: %w", err)
	}
	return files, nil
}

// detectPackageManager identifies the package manager from lockfiles,
// preferring the more specific managers over npm.
func detectPackageManager(rootDir string) string {
	if fileExists(filepath.Join(rootDir, "pnpm-lock.yaml")) ||
		fileExists(filepath.Join(rootDir, "pnpm-workspace.yaml")) {
		return "pnpm"
	}
	if fileExists(filepath.Join(rootDir, "yarn.lock")) {
		return "yarn"
	}
	return "npm"
}

// ScriptCommand renders the shell command that runs the named manifest
// script with the detected package manager. Returns "" when the manifest
// declares no such script.
func (s *Snapshot) ScriptCommand(name string) string {
	if s == nil || !s.Manifest.HasScript(name) {
		return ""
	}
	switch s.PackageManager {
	case "pnpm":
		return "pnpm " + name
	case "yarn":
		return "yarn " + name
	default:
		// npm has shorthand for a few well-known scripts only.
		switch name {
		case "test", "start", "stop", "restart":
			return "npm " + name
		default:
			return "npm run " + name
		}
	}
}

// WorkspacePackage returns the workspace package containing the given
// project-relative path, or "" when the path is not inside one.
func (s *Snapshot) WorkspacePackage(rel string) string {
	if s == nil || rel == "" || rel == "." {
		return ""
	}
	rel = filepath.ToSlash(rel)
	for _, pkg := range s.WorkspacePackages {
		if rel == pkg || strings.HasPrefix(rel, pkg+"/") {
			return pkg
		}
	}
	return ""
}

// HasFile reports whether the listing contains the exact relative path.
func (s *Snapshot) HasFile(path string) bool {
	if s == nil {
		return false
	}
	for _, f := range s.Files {
		if f == path {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
