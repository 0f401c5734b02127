package local

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern lists every file except the git metadata.
var DefaultPattern = []string{"**", "!.git/**"}

// matcher decides which files below a directory target are scanned.
// Patterns are doublestar globs relative to the target; a leading "!"
// excludes. Entries of the target's .gitignore are excluded as well.
type matcher struct {
	include []string
	exclude []string
}

func newMatcher(root string, patterns []string, logger *slog.Logger) (*matcher, error) {
	m := &matcher{}
	for _, p := range patterns {
		neg := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("local connector: invalid pattern %q", p)
		}
		if neg {
			m.exclude = append(m.exclude, p)
		} else {
			m.include = append(m.include, p)
		}
	}
	ignored, err := readGitIgnore(filepath.Join(root, ".gitignore"))
	if err != nil {
		logger.Warn("could not read .gitignore", "root", root, "err", err)
	}
	m.exclude = append(m.exclude, ignored...)
	return m, nil
}

// match reports whether the file at rel (relative, any separator) is scanned.
func (m *matcher) match(rel string) bool {
	rel = filepath.ToSlash(rel)
	included := false
	for _, p := range m.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			included = true
			break
		}
	}
	return included && !m.excluded(rel)
}

func (m *matcher) excluded(rel string) bool {
	for _, p := range m.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// skipDir reports whether nothing below the directory rel can match.
func (m *matcher) skipDir(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range m.exclude {
		if ok, _ := doublestar.Match(strings.TrimSuffix(p, "/**"), rel); ok && strings.HasSuffix(p, "/**") {
			return true
		}
	}
	return false
}

// walk lists the matching regular files below root in lexical order.
func (m *matcher) walk(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && m.skipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && m.match(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local connector: walk %s: %w", root, err)
	}
	return files, nil
}

// readGitIgnore turns .gitignore entries into exclude globs. Negated
// entries are not supported and skipped. A missing file is not an error.
func readGitIgnore(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		dirOnly := strings.HasSuffix(line, "/")
		line = strings.TrimSuffix(line, "/")
		anchored := strings.HasPrefix(line, "/") || strings.Contains(line, "/")
		line = strings.TrimPrefix(line, "/")
		if line == "" {
			continue
		}
		if !anchored {
			line = "**/" + line
		}
		if !dirOnly {
			out = append(out, line)
		}
		out = append(out, line+"/**")
	}
	return out, sc.Err()
}
