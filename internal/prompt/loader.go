// Package prompt loads project-authored instruction files that are layered
// onto the planner and selector prompts.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InstructionsFile is the per-project instructions file name.
const InstructionsFile = "ANVIL.md"

// LoadProjectPrompt reads ANVIL.md from the given directory. Returns empty
// string with nil error if the file does not exist.
func LoadProjectPrompt(workDir string) (string, error) {
	path := filepath.Join(workDir, InstructionsFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read project prompt %s: %w", path, err)
	}

	return string(data), nil
}

// LoadProjectPromptWithPackage loads and merges root and package-specific
// ANVIL.md files. For monorepo projects this combines the repository-level
// instructions with package-specific instructions.
//
// The returned prompt has the format:
//
//	## Repository Instructions
//	<root ANVIL.md content>
//
//	---
//
//	## Package Instructions (<packagePath>)
//	<package ANVIL.md content>
//
// If either file is missing, it is silently skipped. If both are missing,
// returns empty string.
func LoadProjectPromptWithPackage(workDir, packagePath string) (string, error) {
	var parts []string

	rootPrompt, err := LoadProjectPrompt(workDir)
	if err != nil {
		return "", fmt.Errorf("failed to load root project prompt: %w", err)
	}
	if rootPrompt != "" {
		parts = append(parts, "## Repository Instructions\n\n"+rootPrompt)
	}

	if packagePath != "" {
		pkgDir := filepath.Join(workDir, packagePath)
		pkgPrompt, err := LoadProjectPrompt(pkgDir)
		if err != nil {
			return "", fmt.Errorf("failed to load package prompt: %w", err)
		}
		if pkgPrompt != "" {
			parts = append(parts, fmt.Sprintf("## Package Instructions (%s)\n\n%s", packagePath, pkgPrompt))
		}
	}

	if len(parts) == 0 {
		return "", nil
	}

	return strings.Join(parts, "\n\n---\n\n"), nil
}
