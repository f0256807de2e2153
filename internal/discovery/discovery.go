// Package discovery resolves command line targets into scannable text.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Target is one unit of input: a file on disk or an inline string.
type Target struct {
	// Name identifies the target in reports and exports.
	Name string
	// Path is empty for inline targets.
	Path string
	Text string
}

// Inline reports whether the target came from the command line rather than a file.
func (t Target) Inline() bool {
	return t.Path == ""
}

// InlineTarget wraps text passed with --string. n is the 1-based position of the flag.
func InlineTarget(n int, text string) Target {
	return Target{
		Name: fmt.Sprintf("<string #%d>", n),
		Text: text,
	}
}

// Load reads the file at path into a Target.
func Load(path string) (Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Target{}, fmt.Errorf("failed to read target %s: %w", path, err)
	}
	return Target{Name: path, Path: path, Text: string(data)}, nil
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery expands directory targets with glob patterns and ignore rules.
type FileDiscovery struct {
	includePatterns []compiledPattern
	ignorePatterns  []compiledPattern
}

// NewFileDiscovery compiles include and ignore patterns.
func NewFileDiscovery(includePatterns, ignorePatterns []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{}

	for _, pattern := range includePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("failed to compile include pattern %q: %w", pattern, err)
		}
		fd.includePatterns = append(fd.includePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("failed to compile ignore pattern %q: %w", pattern, err)
		}
		fd.ignorePatterns = append(fd.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	return fd, nil
}

// Expand turns command line arguments into file paths, in argument order.
// Files are taken as given; directories are walked and filtered by the patterns.
// Arguments that cannot be resolved produce an error and are skipped.
func (fd *FileDiscovery) Expand(args []string) ([]string, []error) {
	var paths []string
	var errs []error

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read target %s: %w", arg, err))
			continue
		}

		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		files, err := fd.DiscoverFiles(arg)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to walk target %s: %w", arg, err))
		}
		paths = append(paths, files...)
	}

	return paths, errs
}

// DiscoverFiles walks rootDir and returns every file selected by the patterns.
// filepath.Walk visits entries in lexical order, so the result is deterministic.
func (fd *FileDiscovery) DiscoverFiles(rootDir string) ([]string, error) {
	files := []string{}

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}

		// Normalize path separators for glob matching
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && fd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.Selects(relPath) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// Selects reports whether a slash-separated path relative to a scanned root
// matches an include pattern and no ignore pattern.
func (fd *FileDiscovery) Selects(relPath string) bool {
	if fd.shouldIgnore(relPath) {
		return false
	}
	return matchesAnyPattern(relPath, fd.includePatterns)
}

// shouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	// Always ignore the .dsconv directory
	if strings.HasPrefix(relPath, ".dsconv/") || relPath == ".dsconv" {
		return true
	}

	if matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix
	// For example, "node_modules" should match pattern "node_modules/**"
	return matchesAnyPattern(relPath+"/**", fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// A root-level path has no slash, so "**/*.c" cannot match "main.c" on its own.
	// Retry with the **/ prefix removed.
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if !strings.HasPrefix(cp.pattern, "**/") {
				continue
			}
			simplified, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/')
			if err == nil && simplified.Match(path) {
				return true
			}
		}
	}

	return false
}
