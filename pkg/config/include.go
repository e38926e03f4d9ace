package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// expandIncludes applies every file matched by cfg.Include on top of
// cfg, in sorted order per pattern. Patterns are resolved relative to
// baseDir, the directory of the including file.
func expandIncludes(cfg *Config, baseDir string) error {
	for i, pattern := range cfg.Include {
		resolved := ResolvePath(baseDir, pattern)

		// A plain path must exist; a glob with no matches is fine.
		if !hasGlobMeta(pattern) {
			if err := applyFragment(cfg, resolved, baseDir); err != nil {
				return fmt.Errorf("include[%d]: %w", i, err)
			}
			continue
		}

		matches, err := expandGlob(resolved)
		if err != nil {
			return fmt.Errorf("include[%d] (%s): %w", i, pattern, err)
		}
		sort.Strings(matches)

		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && info.IsDir() {
				continue
			}
			if err := applyFragment(cfg, match, baseDir); err != nil {
				return fmt.Errorf("include[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// applyFragment decodes one include file over cfg. The fragment gets
// the same schema validation and env expansion as the root document,
// but may not itself include further files.
func applyFragment(cfg *Config, path, baseDir string) error {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil || rel == "" {
		rel = path
	}

	data, err := readConfigFile(path)
	if err != nil {
		return err
	}

	includes := cfg.Include
	if err := parseInto(cfg, data); err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	if !slices.Equal(cfg.Include, includes) {
		cfg.Include = includes
		return fmt.Errorf("%s: nested includes are not supported", rel)
	}
	cfg.Include = includes

	return nil
}

// hasGlobMeta reports whether the pattern contains glob metacharacters.
func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// expandGlob expands a glob pattern to matching file paths, using
// doublestar when the pattern needs ** or {a,b} alternation and
// filepath.Glob otherwise.
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") || strings.Contains(pattern, "{") {
		return doublestar.FilepathGlob(pattern)
	}
	return filepath.Glob(pattern)
}
