package source

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/timmy/repobrief/internal/domain"
	"github.com/timmy/repobrief/internal/logger"
	"golang.org/x/sync/errgroup"
)

// sizeLimited is implemented by clients that refuse blobs above a size.
type sizeLimited interface {
	MaxFileBytes() int
}

// Fetcher lists a repository through a HostingClient and applies the exclusion policy.
type Fetcher struct {
	client HostingClient
	policy *ExclusionPolicy
}

// Fetchable reports whether e can be downloaded within the client's size limit.
// Entries with an unknown size are attempted.
func (f *Fetcher) Fetchable(e domain.TreeEntry) bool {
	limited, ok := f.client.(sizeLimited)
	if !ok || limited.MaxFileBytes() <= 0 {
		return true
	}
	return e.Size <= limited.MaxFileBytes()
}

// NewFetcher creates a Fetcher. A nil policy uses DefaultExclusionPolicy.
func NewFetcher(client HostingClient, policy *ExclusionPolicy) *Fetcher {
	if policy == nil {
		policy = DefaultExclusionPolicy()
	}
	return &Fetcher{client: client, policy: policy}
}

// ListFiles returns the non-excluded files of repo in listing order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - repo: repository to list.
// Returns:
//   - []domain.TreeEntry: eligible files; directories are dropped.
//   - error: wraps domain.ErrSourceUnavailable on hosting failures.
func (f *Fetcher) ListFiles(ctx context.Context, repo domain.RepoRef) ([]domain.TreeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}

	start := time.Now()
	entries, err := f.client.ListTree(ctx, repo)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: list %s: %v", domain.ErrSourceUnavailable, repo.FullName(), err)
	}

	files := make([]domain.TreeEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || f.policy.Excluded(e.Path) {
			continue
		}
		files = append(files, e)
	}

	logger.With(logger.Fields{"listed": len(entries)}).
		WithCount(len(files)).
		WithDuration(start).
		Info(ctx, "Listed repository tree")
	return files, nil
}

// FetchContents downloads every entry concurrently and joins before returning.
// Files that fail to download, are over the size limit, or are not UTF-8 text
// are skipped. The result keeps the order of entries. If entries is non-empty
// and nothing could be downloaded the call fails with domain.ErrSourceUnavailable.
func (f *Fetcher) FetchContents(ctx context.Context, entries []domain.TreeEntry) ([]domain.CandidateFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}

	slots := make([]*domain.CandidateFile, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		if !f.Fetchable(e) {
			logger.CtxDebug(ctx, "Skipping %s: %d bytes is over the size limit", e.Path, e.Size)
			continue
		}
		g.Go(func() error {
			body, err := f.client.FetchContent(ctx, e.ContentRef)
			if err != nil {
				logger.CtxWarn(ctx, "Skipping %s: %v", e.Path, err)
				return nil
			}
			if len(body) == 0 || !utf8.Valid(body) {
				logger.CtxDebug(ctx, "Skipping %s: empty or binary content", e.Path)
				return nil
			}
			slots[i] = &domain.CandidateFile{Path: e.Path, Content: string(body)}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}

	files := make([]domain.CandidateFile, 0, len(entries))
	for _, s := range slots {
		if s != nil {
			files = append(files, *s)
		}
	}
	if len(entries) > 0 && len(files) == 0 {
		return nil, fmt.Errorf("%w: none of %d files could be downloaded", domain.ErrSourceUnavailable, len(entries))
	}
	return files, nil
}
