// Package detect finds the files under a directory that arbor can parse.
//
// Detection is based purely on file names, not contents, and is
// deterministic: the same directory contents always give the same sorted
// result. Build outputs, vendored code and hidden directories are skipped;
// see IgnoredDirs.
package detect

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// IgnoredDirs contains directory name prefixes to skip while walking.
// Prefix matching means "bazel-" matches "bazel-out", "bazel-bin", etc.
var IgnoredDirs = []string{
	".",            // Hidden directories
	"node_modules", // Node.js dependencies
	"__pycache__",  // Python cache
	"vendor",       // Go vendor, other vendored deps
	"target",       // Rust/Maven target
	"build",        // Gradle/generic build output
	"out",          // Generic output
	"dist",         // Distribution output
	"bazel-",       // Bazel output directories
}

// Classifier returns the language of path, or false when no grammar
// covers it.
type Classifier func(path string) (lang string, ok bool)

func ignored(name string) bool {
	for _, prefix := range IgnoredDirs {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func walk(root string, classify Classifier, visit func(path, lang string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// The root itself is never skipped, even when it is ".".
			if path != root && ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if lang, ok := classify(path); ok {
			visit(path, lang)
		}
		return nil
	})
}

// Files returns the parseable files under root in lexical order.
func Files(root string, classify Classifier) ([]string, error) {
	var files []string
	err := walk(root, classify, func(path, _ string) {
		files = append(files, path)
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Languages returns the sorted, deduplicated languages of the files under
// root. A language is detected if at least one file maps to it.
func Languages(root string, classify Classifier) ([]string, error) {
	found := make(map[string]bool)
	err := walk(root, classify, func(_, lang string) {
		found[lang] = true
	})
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(found))
	for lang := range found {
		result = append(result, lang)
	}
	slices.Sort(result)
	return result, nil
}

// Expand replaces each directory in paths with the parseable files under it.
// Files are kept as given, whatever their name, so a caller can still force
// a language for them.
func Expand(paths []string, classify Classifier) ([]string, error) {
	var out []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			// Missing files are reported by whoever opens them.
			out = append(out, path)
			continue
		}
		files, err := Files(path, classify)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}
