package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/repobrief/internal/domain"
	"github.com/timmy/repobrief/internal/source"
)

// stubHost serves a fixed tree and counts content downloads.
type stubHost struct {
	files   map[string]string
	order   []string
	listErr error
	limit   int

	mu      sync.Mutex
	fetched []string
}

func newStubHost(pairs ...string) *stubHost {
	h := &stubHost{files: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		h.files[pairs[i]] = pairs[i+1]
		h.order = append(h.order, pairs[i])
	}
	return h
}

func (h *stubHost) ListTree(ctx context.Context, repo domain.RepoRef) ([]domain.TreeEntry, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	entries := make([]domain.TreeEntry, 0, len(h.order))
	for _, p := range h.order {
		entries = append(entries, domain.TreeEntry{Path: p, ContentRef: p, Size: len(h.files[p])})
	}
	return entries, nil
}

func (h *stubHost) FetchContent(ctx context.Context, ref string) ([]byte, error) {
	h.mu.Lock()
	h.fetched = append(h.fetched, ref)
	h.mu.Unlock()
	body, ok := h.files[ref]
	if !ok {
		return nil, fmt.Errorf("no content for %s", ref)
	}
	return []byte(body), nil
}

func (h *stubHost) MaxFileBytes() int { return h.limit }

func (h *stubHost) fetchCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fetched)
}

// stubGenerator records the prompt it was given.
type stubGenerator struct {
	out string
	err error

	mu      sync.Mutex
	prompts []string
}

func (g *stubGenerator) Model() string { return "stub" }

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.out, g.err
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func stageRecorder() (*[]Stage, ProgressFunc) {
	var (
		mu     sync.Mutex
		stages []Stage
	)
	return &stages, func(s Stage) error {
		mu.Lock()
		defer mu.Unlock()
		stages = append(stages, s)
		return nil
	}
}

var testRepo = domain.RepoRef{Host: "host", Owner: "owner", Name: "repo"}

func TestPipelineRunEndToEnd(t *testing.T) {
	host := newStubHost(
		"README.md", "# repo\nA small tool.",
		"main.go", "package main\n\nfunc main() {}\n",
		"logo.png", "not really an image",
	)
	embedder, err := NewFileEmbedder(&fakeEmbedding{dims: 4}, FileEmbedderConfig{})
	require.NoError(t, err)
	gen := &stubGenerator{out: "# repo\n\nGenerated."}

	p := NewPipeline(source.NewFetcher(host, nil), embedder, gen, DefaultPipelineConfig())
	stages, report := stageRecorder()
	res, err := p.Run(context.Background(), testRepo, report)
	require.NoError(t, err)

	assert.Equal(t, "# repo\n\nGenerated.", res.Content)
	assert.Equal(t, 2, res.FileCount)
	assert.ElementsMatch(t, []string{"README.md", "main.go"}, res.SelectedPaths)
	assert.Contains(t, res.Context, "FILE: README.md")
	assert.Contains(t, res.Context, "FILE: main.go")
	assert.NotContains(t, res.Context, "logo.png")
	assert.Equal(t, 2, host.fetchCount())

	assert.Equal(t, []Stage{
		StageTreeListed, StageContentsFetched, StageEmbedded,
		StageSelected, StageContextBuilt, StageGenerated,
	}, *stages)

	require.Equal(t, 1, gen.calls())
	assert.Contains(t, gen.prompts[0], "Repository: repo")
	assert.Contains(t, gen.prompts[0], "- main.go")
}

func TestPipelineWithoutEmbedderSelectsByPriority(t *testing.T) {
	host := newStubHost(
		"docs/guide.md", "guide",
		"src/util.go", "package util",
		"go.mod", "module x",
		"README.md", "# x",
		"tests/util_test.go", "package util",
	)
	cfg := DefaultPipelineConfig()
	cfg.Selection.TopK = 2

	stages, report := stageRecorder()
	res, err := NewPipeline(source.NewFetcher(host, nil), nil, &stubGenerator{out: "ok"}, cfg).
		Run(context.Background(), testRepo, report)
	require.NoError(t, err)
	assert.Equal(t, []string{"go.mod", "README.md"}, res.SelectedPaths)
	assert.Contains(t, *stages, StageEmbedded)
}

func TestPipelineLimitsCandidates(t *testing.T) {
	host := newStubHost(
		"a.txt", "a", "b.txt", "b", "c.txt", "c", "package.json", "{}", "e.txt", "e",
	)
	cfg := DefaultPipelineConfig()
	cfg.MaxCandidates = 2

	res, err := NewPipeline(source.NewFetcher(host, nil), nil, &stubGenerator{out: "ok"}, cfg).
		Run(context.Background(), testRepo, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, host.fetchCount())
	assert.Equal(t, 5, res.FileCount)
	assert.Equal(t, []string{"package.json", "a.txt"}, res.SelectedPaths)
}

func TestPipelineCompressesOversizedFiles(t *testing.T) {
	long := ""
	for i := 0; i < 400; i++ {
		long += fmt.Sprintf("Sentence number %d talks about topic %d. ", i, i%7)
	}
	host := newStubHost("notes.txt", long)
	cfg := DefaultPipelineConfig()
	cfg.CompressOverChars = 2000
	cfg.Budget = domain.ContextBudget{MaxCharsPerFile: 100000, MaxTotalChars: 100000}

	res, err := NewPipeline(source.NewFetcher(host, nil), nil, &stubGenerator{out: "ok"}, cfg).
		Run(context.Background(), testRepo, nil)
	require.NoError(t, err)
	assert.Less(t, len([]rune(res.Context)), 2200)
}

func TestPipelineStopsWhenReportFails(t *testing.T) {
	host := newStubHost("main.go", "package main")
	gen := &stubGenerator{out: "ok"}
	stop := errors.New("job gone")

	_, err := NewPipeline(source.NewFetcher(host, nil), nil, gen, DefaultPipelineConfig()).
		Run(context.Background(), testRepo, func(s Stage) error {
			if s == StageContentsFetched {
				return stop
			}
			return nil
		})
	assert.ErrorIs(t, err, stop)
	assert.Zero(t, gen.calls())
}

func TestPipelineCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	host := newStubHost("main.go", "package main")
	_, err := NewPipeline(source.NewFetcher(host, nil), nil, &stubGenerator{out: "ok"}, DefaultPipelineConfig()).
		Run(ctx, testRepo, nil)
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Zero(t, host.fetchCount())
}

func TestPipelineSourceUnavailable(t *testing.T) {
	host := newStubHost()
	host.listErr = errors.New("connection refused")

	_, err := NewPipeline(source.NewFetcher(host, nil), nil, &stubGenerator{out: "ok"}, DefaultPipelineConfig()).
		Run(context.Background(), testRepo, nil)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestPipelineGenerationFailure(t *testing.T) {
	host := newStubHost("main.go", "package main")
	gen := &stubGenerator{err: errors.New("model overloaded")}

	_, err := NewPipeline(source.NewFetcher(host, nil), nil, gen, DefaultPipelineConfig()).
		Run(context.Background(), testRepo, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
	assert.NotErrorIs(t, err, domain.ErrCancelled)
}

func TestPipelineSkipsOversizedCandidates(t *testing.T) {
	host := newStubHost(
		"package.json", strings.Repeat("x", 500),
		"a.txt", "a",
		"b.txt", "b",
	)
	host.limit = 100
	cfg := DefaultPipelineConfig()
	cfg.MaxCandidates = 2

	res, err := NewPipeline(source.NewFetcher(host, nil), nil, &stubGenerator{out: "ok"}, cfg).
		Run(context.Background(), testRepo, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, res.SelectedPaths)
	assert.Equal(t, 2, host.fetchCount())
	assert.Equal(t, 3, res.FileCount)
}

func TestPipelineAllDownloadsFail(t *testing.T) {
	host := newStubHost("main.go", "package main")
	host.files = map[string]string{}
	gen := &stubGenerator{out: "ok"}

	_, err := NewPipeline(source.NewFetcher(host, nil), nil, gen, DefaultPipelineConfig()).
		Run(context.Background(), testRepo, nil)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Zero(t, gen.calls())
}
