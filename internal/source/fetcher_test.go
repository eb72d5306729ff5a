package source

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/repobrief/internal/domain"
)

type fakeHost struct {
	entries  []domain.TreeEntry
	contents map[string]string
	listErr  error
}

func (f *fakeHost) ListTree(ctx context.Context, repo domain.RepoRef) ([]domain.TreeEntry, error) {
	return f.entries, f.listErr
}

func (f *fakeHost) FetchContent(ctx context.Context, ref string) ([]byte, error) {
	body, ok := f.contents[ref]
	if !ok {
		return nil, fmt.Errorf("404 for %s", ref)
	}
	return []byte(body), nil
}

func entry(path string) domain.TreeEntry {
	return domain.TreeEntry{Path: path, ContentRef: "ref:" + path}
}

func TestListFilesAppliesPolicy(t *testing.T) {
	host := &fakeHost{entries: []domain.TreeEntry{
		{Path: "src", IsDir: true},
		entry("src/main.go"),
		entry("node_modules/x/index.js"),
		entry("logo.png"),
		entry("README.md"),
	}}
	files, err := NewFetcher(host, nil).ListFiles(context.Background(), domain.RepoRef{Owner: "o", Name: "r"})
	require.NoError(t, err)
	assert.Equal(t, []domain.TreeEntry{entry("src/main.go"), entry("README.md")}, files)
}

func TestListFilesEmptyRepository(t *testing.T) {
	files, err := NewFetcher(&fakeHost{}, nil).ListFiles(context.Background(), domain.RepoRef{Owner: "o", Name: "r"})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListFilesWrapsSourceUnavailable(t *testing.T) {
	host := &fakeHost{listErr: errors.New("dial tcp: refused")}
	_, err := NewFetcher(host, nil).ListFiles(context.Background(), domain.RepoRef{Owner: "o", Name: "r"})
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))
}

func TestFetchContentsSkipsFailuresAndKeepsOrder(t *testing.T) {
	host := &fakeHost{contents: map[string]string{
		"ref:a.go":   "package a",
		"ref:c.go":   "package c",
		"ref:bin.go": "\xff\xfe\x00",
	}}
	files, err := NewFetcher(host, nil).FetchContents(context.Background(), []domain.TreeEntry{
		entry("a.go"), entry("missing.go"), entry("bin.go"), entry("c.go"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "c.go"}, domain.Paths(files))
	assert.Equal(t, "package c", files[1].Content)
}

func TestFetchContentsHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFetcher(&fakeHost{}, nil).FetchContents(ctx, []domain.TreeEntry{entry("a.go")})
	assert.True(t, errors.Is(err, domain.ErrCancelled))
}

type limitedHost struct {
	fakeHost
	limit   int
	fetched []string
}

func (h *limitedHost) MaxFileBytes() int { return h.limit }

func (h *limitedHost) FetchContent(ctx context.Context, ref string) ([]byte, error) {
	h.fetched = append(h.fetched, ref)
	return h.fakeHost.FetchContent(ctx, ref)
}

func TestFetchContentsSkipsOversizedWithoutDownloading(t *testing.T) {
	host := &limitedHost{
		fakeHost: fakeHost{contents: map[string]string{"ref:small.go": "package a", "ref:huge.sql": "..."}},
		limit:    100,
	}
	small := entry("small.go")
	small.Size = 9
	huge := entry("huge.sql")
	huge.Size = 50 << 20

	f := NewFetcher(host, nil)
	assert.True(t, f.Fetchable(small))
	assert.False(t, f.Fetchable(huge))

	files, err := f.FetchContents(context.Background(), []domain.TreeEntry{huge, small})
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go"}, domain.Paths(files))
	assert.Equal(t, []string{"ref:small.go"}, host.fetched)
}

func TestFetchableWithoutSizeLimit(t *testing.T) {
	e := entry("a.go")
	e.Size = 1 << 30
	assert.True(t, NewFetcher(&fakeHost{}, nil).Fetchable(e))
}

func TestFetchContentsAllDownloadsFailed(t *testing.T) {
	host := &fakeHost{contents: map[string]string{}}
	_, err := NewFetcher(host, nil).FetchContents(context.Background(), []domain.TreeEntry{entry("a.go"), entry("b.go")})
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))

	files, err := NewFetcher(host, nil).FetchContents(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}
