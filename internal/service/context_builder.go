package service

import (
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/timmy/repobrief/internal/domain"
)

const truncationMarker = "\n... (truncated)"

var sectionRule = strings.Repeat("=", 50)

// manifestFiles identify a project's build and dependency metadata.
var manifestFiles = map[string]struct{}{
	"package.json":     {},
	"go.mod":           {},
	"cargo.toml":       {},
	"pyproject.toml":   {},
	"setup.py":         {},
	"pom.xml":          {},
	"build.gradle":     {},
	"build.gradle.kts": {},
	"composer.json":    {},
	"gemfile":          {},
	"mix.exs":          {},
	"pubspec.yaml":     {},
}

var testSegments = map[string]struct{}{
	"test": {}, "tests": {}, "__tests__": {}, "spec": {}, "specs": {}, "testdata": {},
}

var sourceDirs = []string{"src/", "lib/", "internal/", "pkg/", "cmd/", "app/"}

// FilePriority ranks a path for inclusion in the context; higher is more important.
func FilePriority(p string) int {
	lower := strings.ToLower(p)
	base := path.Base(lower)
	root := !strings.Contains(lower, "/")

	switch {
	case root && isManifest(base):
		return 100
	case root && (base == "readme" || strings.HasPrefix(base, "readme.")):
		return 90
	case root && base == "tsconfig.json":
		return 85
	case strings.Contains(base, ".eslintrc"):
		return 80
	case isManifest(base), strings.Contains(lower, "config"):
		return 70
	case strings.HasPrefix(base, "index."), strings.HasPrefix(base, "main."), strings.HasPrefix(base, "app."):
		return 65
	case isTestPath(lower, base):
		return 30
	case hasSourceDir(lower):
		return 50
	case strings.HasSuffix(lower, ".md"):
		return 45
	default:
		return 40
	}
}

func isManifest(base string) bool {
	_, ok := manifestFiles[base]
	return ok
}

func isTestPath(lower, base string) bool {
	for _, seg := range strings.Split(lower, "/") {
		if _, ok := testSegments[seg]; ok {
			return true
		}
	}
	return strings.Contains(base, "_test.") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.HasPrefix(base, "test_")
}

func hasSourceDir(lower string) bool {
	for _, dir := range sourceDirs {
		if strings.HasPrefix(lower, dir) || strings.Contains(lower, "/"+dir) {
			return true
		}
	}
	return false
}

// SortByPriority returns a copy of files ordered by FilePriority, highest first.
// Equal priorities keep their input order.
func SortByPriority(files []domain.CandidateFile) []domain.CandidateFile {
	sorted := append([]domain.CandidateFile(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return FilePriority(sorted[i].Path) > FilePriority(sorted[j].Path)
	})
	return sorted
}

// BuildContext packs files into one text blob, highest priority first.
// Each section is "FILE: <path>", a rule line, then the content. Lengths are in
// characters: no body exceeds MaxCharsPerFile and the result never exceeds
// MaxTotalChars. Once the budget cannot hold another header plus one character,
// the remaining files are left out.
func BuildContext(files []domain.CandidateFile, budget domain.ContextBudget) string {
	var b strings.Builder
	used := 0
	for _, f := range SortByPriority(files) {
		header := "FILE: " + f.Path + "\n" + sectionRule + "\n"
		overhead := utf8.RuneCountInString(header) + 2
		room := budget.MaxTotalChars - used - overhead
		if room <= 0 {
			break
		}
		body := truncateWithMarker(f.Content, min(budget.MaxCharsPerFile, room))

		b.WriteString(header)
		b.WriteString(body)
		b.WriteString("\n\n")
		used += overhead + utf8.RuneCountInString(body)
	}
	return strings.TrimSpace(b.String())
}

// truncateWithMarker cuts s to at most limit characters, marker included.
func truncateWithMarker(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	markerLen := utf8.RuneCountInString(truncationMarker)
	if limit <= markerLen {
		return truncateRunes(s, limit)
	}
	return truncateRunes(s, limit-markerLen) + truncationMarker
}

// BuildFileListSummary lists every path grouped by directory. Root files come
// first without a heading; directories follow in sorted order.
func BuildFileListSummary(paths []string) string {
	byDir := make(map[string][]string)
	var root []string
	for _, p := range paths {
		dir := path.Dir(p)
		if dir == "." {
			root = append(root, p)
			continue
		}
		byDir[dir] = append(byDir[dir], p)
	}
	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var b strings.Builder
	b.WriteString("## Complete File List\n\n")
	for _, p := range root {
		b.WriteString("- " + p + "\n")
	}
	for _, d := range dirs {
		b.WriteString("\n### " + d + "/\n")
		for _, p := range byDir[d] {
			b.WriteString("- " + p + "\n")
		}
	}
	return b.String()
}
