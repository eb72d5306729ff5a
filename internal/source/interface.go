package source

import (
	"context"

	"github.com/timmy/repobrief/internal/domain"
)

// HostingClient is the repository hosting API. Listing never fetches file contents.
type HostingClient interface {
	// ListTree returns every node of the repository's default branch, recursively.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - repo: parsed repository reference.
	// Returns:
	//   - []domain.TreeEntry: all files and directories; empty for an empty repository.
	//   - error: wraps domain.ErrSourceUnavailable if the API is unreachable or the repository is missing.
	ListTree(ctx context.Context, repo domain.RepoRef) ([]domain.TreeEntry, error)

	// FetchContent downloads the raw bytes behind a TreeEntry.ContentRef.
	FetchContent(ctx context.Context, contentRef string) ([]byte, error)
}
