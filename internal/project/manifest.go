package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest is the parsed package.json content the fallback engines rely on.
type Manifest struct {
	Name            string            `json:"name"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// HasScript reports whether the manifest declares the named script.
func (m *Manifest) HasScript(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Scripts[name]
	return ok
}

// parseManifest reads and parses package.json from the project root.
// A missing file is not an error; the manifest is simply absent.
func parseManifest(rootDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(rootDir, "package.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read package.json: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}
	return &m, nil
}

// pnpmWorkspace represents the structure of pnpm-workspace.yaml.
type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

// workspacePackages parses pnpm-workspace.yaml and expands its package
// globs into existing directory paths relative to the root. A missing
// workspace file yields an empty list.
func workspacePackages(rootDir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(rootDir, "pnpm-workspace.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pnpm-workspace.yaml: %w", err)
	}

	var ws pnpmWorkspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("parse pnpm-workspace.yaml: %w", err)
	}

	var packages []string
	for _, pattern := range ws.Packages {
		pattern = normalizePackagePath(pattern)
		matches, err := filepath.Glob(filepath.Join(rootDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("expand pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || !info.IsDir() {
				continue
			}
			rel, err := filepath.Rel(rootDir, match)
			if err != nil {
				continue
			}
			packages = append(packages, filepath.ToSlash(rel))
		}
	}
	return packages, nil
}

// normalizePackagePath cleans up a package path by removing a leading "./"
// and a trailing "/".
func normalizePackagePath(path string) string {
	if len(path) >= 2 && path[:2] == "./" {
		path = path[2:]
	}
	if len(path) >= 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}
