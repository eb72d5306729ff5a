package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultExclusionPolicy(t *testing.T) {
	p := DefaultExclusionPolicy()
	tests := []struct {
		path     string
		excluded bool
	}{
		{"src/index.ts", false},
		{"README.md", false},
		{"go.mod", false},
		{"layout/outline.go", false},
		{"node_modules/react/index.js", true},
		{"web/node_modules/x.js", true},
		{"dist/bundle.js", true},
		{"assets/logo.png", true},
		{"archive.tar.gz", true},
		{".github/workflows/ci.yml", true},
		{"ios/Pods/Lib/a.h", true},
		{"ios/App/a.swift", false},
		{"package-lock.json", true},
		{"static/app.min.js", true},
		// case-sensitive
		{"Node_Modules/x.js", false},
		{"image.PNG", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.excluded, p.Excluded(tt.path))
		})
	}
}

func TestExclusionPolicyWithDoesNotMutateBase(t *testing.T) {
	base := NewExclusionPolicy([]string{"tmp"}, []string{".bak"})
	ext := base.With([]string{"fixtures/", "testdata/golden"}, []string{".snap"})

	assert.True(t, ext.Excluded("pkg/fixtures/a.json"))
	assert.True(t, ext.Excluded("testdata/golden/out.txt"))
	assert.False(t, ext.Excluded("testdata/input.txt"))
	assert.True(t, ext.Excluded("ui/__snapshots__/x.snap"))
	assert.True(t, ext.Excluded("tmp/x.go"))

	assert.False(t, base.Excluded("pkg/fixtures/a.json"))
	assert.False(t, base.Excluded("x.snap"))
}

func TestPathMatchingSeveralRulesIsExcluded(t *testing.T) {
	p := NewExclusionPolicy([]string{"dist", "build"}, []string{".map"})
	assert.True(t, p.Excluded("dist/build/app.js.map"))
}

func TestLoadExclusionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclude.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names:\n  - fixtures\nextensions:\n  - .snap\n"), 0o644))

	p, err := LoadExclusionFile(path)
	require.NoError(t, err)
	assert.True(t, p.Excluded("fixtures/a.txt"))
	assert.True(t, p.Excluded("a.snap"))
	assert.True(t, p.Excluded("node_modules/a.js"))

	_, err = LoadExclusionFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadExclusionFileKeys(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"substrings", "substrings: [fixtures]\nextensions: [.snap]\n", false},
		{"names alias", "names: [fixtures]\nextensions: [.snap]\n", false},
		{"unknown key", "patterns: [fixtures]\n", true},
		{"empty file", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "exclude.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			p, err := LoadExclusionFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, p.Excluded("node_modules/a.js"))
			if tt.body != "" {
				assert.True(t, p.Excluded("fixtures/a.go"))
				assert.True(t, p.Excluded("x.snap"))
			}
		})
	}
}

func TestWithSubstringsAndExtensions(t *testing.T) {
	p := NewExclusionPolicy(nil, nil).WithSubstrings("fixtures").WithExtensions(".snap")
	assert.True(t, p.Excluded("pkg/fixtures/a.json"))
	assert.True(t, p.Excluded("a.snap"))
	assert.False(t, p.Excluded("pkg/a.json"))
}
