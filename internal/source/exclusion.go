package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultExcludedNames are path segments that drop a file when any segment of its path equals one.
// Entries containing "/" match a run of consecutive segments.
var defaultExcludedNames = []string{
	// dependencies and lockfiles
	"node_modules", ".npm", ".yarn", ".pnp", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"vendor", "go.sum", "Cargo.lock", "composer.lock", "Gemfile.lock", "Pipfile.lock", "poetry.lock", "pubspec.lock",

	// build output
	"dist", "build", "out", "target", ".next", ".vercel", ".turbo", ".expo", ".expo-shared",
	"coverage", "htmlcov", ".coverage", "coverage.xml", "CMakeFiles", "CMakeCache.txt", "Debug", "Release",
	"intermediates", ".cxx", ".gradle", ".dart_tool", ".fvm", ".mvn", "__pycache__",
	".pytest_cache", ".mypy_cache", ".tox", ".forge-cache", ".ccls-cache",
	"cypress/screenshots", "cypress/videos", "ios/Pods", "ios/build", "android/app/build", "build/contracts",

	// environments and secrets
	".env", ".env.local", ".env.development", ".env.production", ".env.test", ".venv", "venv", "local.properties",

	// logs and OS files
	"npm-debug.log", "yarn-error.log", "pnpm-debug.log", ".DS_Store", "Thumbs.db",

	// VCS and CI metadata
	".git", ".gitignore", ".github", ".gitlab", ".circleci", ".husky",

	// editor and IDE config
	".vscode", ".idea", ".vs", ".settings", ".classpath", ".factorypath", ".project",

	// generated wrappers and databases
	"gradlew", "gradlew.bat", "ganache-db", "ganache_data", ".openzeppelin", "db.sqlite3", "favicon.ico",
}

// defaultExcludedExtensions are matched as path suffixes.
var defaultExcludedExtensions = []string{
	// media
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico", ".bmp", ".pdf",
	".ttf", ".woff", ".woff2", ".otf", ".eot",
	".mp4", ".mp3", ".wav", ".mov", ".avi",

	// archives and packages
	".zip", ".rar", ".tar.gz", ".tgz", ".7z", ".apk", ".aab", ".ipa", ".jar", ".war", ".ear",

	// compiled objects
	".pyc", ".pyo", ".pyd", ".class", ".dex",
	".o", ".a", ".so", ".dll", ".dylib", ".exe", ".bin", ".elf", ".obj", ".ilk", ".pdb", ".exp", ".lib",
	".min.js", ".map",

	// scratch and data files
	".swp", ".swo", ".bak", ".log", ".out", ".tmp", ".cache",
	".sqlite3", ".db", ".db-journal",
}

// ExclusionPolicy decides which repository paths never reach the pipeline.
// Matching is case-sensitive.
type ExclusionPolicy struct {
	names      map[string]struct{}
	fragments  []string
	extensions []string
}

// NewExclusionPolicy builds a policy from segment names and extension suffixes.
// A trailing "/" on a name is ignored.
func NewExclusionPolicy(names, extensions []string) *ExclusionPolicy {
	p := &ExclusionPolicy{names: make(map[string]struct{})}
	p.add(names, extensions)
	return p
}

// DefaultExclusionPolicy returns the built-in denylist.
func DefaultExclusionPolicy() *ExclusionPolicy {
	return NewExclusionPolicy(defaultExcludedNames, defaultExcludedExtensions)
}

// With returns a copy of p extended with more rules.
func (p *ExclusionPolicy) With(names, extensions []string) *ExclusionPolicy {
	c := &ExclusionPolicy{
		names:      make(map[string]struct{}, len(p.names)+len(names)),
		fragments:  append([]string(nil), p.fragments...),
		extensions: append([]string(nil), p.extensions...),
	}
	for n := range p.names {
		c.names[n] = struct{}{}
	}
	c.add(names, extensions)
	return c
}

// WithSubstrings returns a copy of p that also excludes the given path segments.
func (p *ExclusionPolicy) WithSubstrings(names ...string) *ExclusionPolicy {
	return p.With(names, nil)
}

// WithExtensions returns a copy of p that also excludes the given suffixes.
func (p *ExclusionPolicy) WithExtensions(extensions ...string) *ExclusionPolicy {
	return p.With(nil, extensions)
}

func (p *ExclusionPolicy) add(names, extensions []string) {
	for _, n := range names {
		n = strings.Trim(n, "/")
		if n == "" {
			continue
		}
		if strings.Contains(n, "/") {
			p.fragments = append(p.fragments, "/"+n+"/")
			continue
		}
		p.names[n] = struct{}{}
	}
	for _, ext := range extensions {
		if ext != "" {
			p.extensions = append(p.extensions, ext)
		}
	}
}

// Excluded reports whether path matches any rule.
func (p *ExclusionPolicy) Excluded(path string) bool {
	for _, ext := range p.extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	trimmed := strings.Trim(path, "/")
	for _, seg := range strings.Split(trimmed, "/") {
		if _, ok := p.names[seg]; ok {
			return true
		}
	}
	padded := "/" + trimmed + "/"
	for _, frag := range p.fragments {
		if strings.Contains(padded, frag) {
			return true
		}
	}
	return false
}

type exclusionFile struct {
	Substrings []string `yaml:"substrings"`
	Names      []string `yaml:"names"`
	Extensions []string `yaml:"extensions"`
}

// LoadExclusionFile extends the default policy with rules from a YAML file:
//
//	substrings: [fixtures, testdata/golden]
//	extensions: [.snap]
//
// "names" is accepted as an alias of "substrings". Unknown keys are an error.
func LoadExclusionFile(path string) (*ExclusionPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exclusion file: %w", err)
	}
	var f exclusionFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse exclusion file %s: %w", path, err)
	}
	return DefaultExclusionPolicy().With(append(f.Substrings, f.Names...), f.Extensions), nil
}
