// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the message catalogs against the source tree. It scans
// the Go sources for i18n.T("id") calls and reports ids missing from the
// primary locale, ids missing from the other locales and unused ids.
//
// Run it from the repository root:
//
//	go run ./tools/i18n-linter
package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

// Location stores the file and line number of a found message id.
type Location struct {
	Filepath string
	Line     int
}

var usedKeyRe = regexp.MustCompile(`i18n\.T\("([^"]+)"`)

func main() {
	ok, err := lint(projectRoot, filepath.Join(projectRoot, localesDir), os.Stdout)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

// lint writes a report to out and returns false when a message id is
// undefined or missing from a secondary locale. Unused ids only warn.
func lint(root, locales string, out io.Writer) (bool, error) {
	used, err := findUsedKeys(root)
	if err != nil {
		return false, fmt.Errorf("finding used keys: %w", err)
	}
	fmt.Fprintf(out, "Found %d unique message ids in source code.\n", len(used))

	primary, err := loadKeysFromLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		return false, fmt.Errorf("loading primary locale %s: %w", primaryLocale, err)
	}
	files, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		return false, fmt.Errorf("finding locale files: %w", err)
	}

	ok := true

	fmt.Fprintln(out, "\n--- Undefined ids (used in code, not in primary locale) ---")
	undefined := 0
	for _, id := range sortedKeys(used) {
		if _, exists := primary[id]; !exists {
			loc := used[id][0]
			fmt.Fprintf(out, "  - Undefined: %s (%s:%d)\n", id, loc.Filepath, loc.Line)
			undefined++
		}
	}
	if undefined > 0 {
		ok = false
	} else {
		fmt.Fprintln(out, "  None found.")
	}

	fmt.Fprintln(out, "\n--- Missing ids (in primary locale, not in others) ---")
	for _, file := range files {
		if filepath.Base(file) == primaryLocale {
			continue
		}
		secondary, err := loadKeysFromLocale(file)
		if err != nil {
			fmt.Fprintf(out, "  - Error loading %s: %v\n", file, err)
			ok = false
			continue
		}
		missing := 0
		for _, id := range sortedKeys(primary) {
			if _, exists := secondary[id]; !exists {
				fmt.Fprintf(out, "  - Missing in %s: %s\n", filepath.Base(file), id)
				missing++
			}
		}
		if missing > 0 {
			ok = false
		} else {
			fmt.Fprintf(out, "  %s: all ids present.\n", filepath.Base(file))
		}
	}

	fmt.Fprintln(out, "\n--- Orphaned ids (in primary locale, not used in code) ---")
	orphaned := 0
	for _, id := range sortedKeys(primary) {
		if _, exists := used[id]; !exists {
			fmt.Fprintf(out, "  - Orphaned: %s\n", id)
			orphaned++
		}
	}
	if orphaned == 0 {
		fmt.Fprintln(out, "  None found.")
	}

	switch {
	case !ok:
		fmt.Fprintln(out, "\n❌ Found issues that need to be addressed.")
	case orphaned > 0:
		fmt.Fprintln(out, "\n⚠️  Found orphaned ids. Please consider removing them.")
	default:
		fmt.Fprintln(out, "\n✅ All translation files are consistent!")
	}
	return ok, nil
}

// findUsedKeys scans the non-test .go files under root for i18n.T("id")
// calls. The tools directory is skipped.
func findUsedKeys(root string) (map[string][]Location, error) {
	keys := make(map[string][]Location)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "tools" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for i, line := range strings.Split(string(content), "\n") {
			for _, m := range usedKeyRe.FindAllStringSubmatch(line, -1) {
				keys[m[1]] = append(keys[m[1]], Location{Filepath: path, Line: i + 1})
			}
		}
		return nil
	})
	return keys, err
}

// loadKeysFromLocale reads a YAML file and returns a flat set of its ids.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML converts a nested map into dot-separated ids.
func flattenYAML(prefix string, node interface{}, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
