// Package github implements source.HostingClient against the GitHub REST API
// and raw.githubusercontent.com.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	gogithub "github.com/google/go-github/v68/github"
	"github.com/timmy/repobrief/internal/domain"
	"github.com/timmy/repobrief/internal/logger"
)

const (
	defaultRawBaseURL   = "https://raw.githubusercontent.com"
	defaultMaxFileBytes = 1 << 20
)

// Config holds GitHub client settings.
type Config struct {
	Token        string        // optional; unauthenticated calls are rate-limited harder
	APIBaseURL   string        // REST API root, defaults to api.github.com
	RawBaseURL   string        // raw content root
	Timeout      time.Duration // per request
	MaxFileBytes int           // larger files are rejected
}

// Client lists trees with go-github and downloads blobs with resty.
type Client struct {
	api          *gogithub.Client
	raw          *resty.Client
	rawBaseURL   string
	maxFileBytes int
}

// NewClient creates a GitHub hosting client.
// Parameters:
//   - cfg: client configuration; zero values fall back to public GitHub defaults.
// Returns:
//   - *Client: ready client.
//   - error: non-nil if APIBaseURL cannot be parsed.
func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	api := gogithub.NewClient(&http.Client{Timeout: timeout})
	if cfg.Token != "" {
		api = api.WithAuthToken(cfg.Token)
	}
	if cfg.APIBaseURL != "" {
		base := cfg.APIBaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github api base url: %w", err)
		}
		api.BaseURL = u
	}

	raw := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "repobrief")
	if cfg.Token != "" {
		raw.SetAuthToken(cfg.Token)
	}

	rawBase := strings.TrimSuffix(cfg.RawBaseURL, "/")
	if rawBase == "" {
		rawBase = defaultRawBaseURL
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxFileBytes
	}

	return &Client{api: api, raw: raw, rawBaseURL: rawBase, maxFileBytes: maxBytes}, nil
}

// ListTree resolves the default branch and returns its recursive tree.
// An empty repository yields an empty listing.
func (c *Client) ListTree(ctx context.Context, repo domain.RepoRef) ([]domain.TreeEntry, error) {
	meta, _, err := c.api.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: get repository %s: %v", domain.ErrSourceUnavailable, repo.FullName(), err)
	}
	branch := meta.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}

	tree, _, err := c.api.Git.GetTree(ctx, repo.Owner, repo.Name, branch, true)
	if err != nil {
		var ghErr *gogithub.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusConflict {
			// GitHub answers 409 for repositories without commits.
			return []domain.TreeEntry{}, nil
		}
		return nil, fmt.Errorf("%w: get tree %s@%s: %v", domain.ErrSourceUnavailable, repo.FullName(), branch, err)
	}
	if tree.GetTruncated() {
		logger.CtxWarn(ctx, "Tree listing for %s was truncated by the API", repo.FullName())
	}

	entries := make([]domain.TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		switch e.GetType() {
		case "blob":
			entries = append(entries, domain.TreeEntry{
				Path:       e.GetPath(),
				ContentRef: c.rawURL(repo, branch, e.GetPath()),
				Size:       e.GetSize(),
			})
		case "tree":
			entries = append(entries, domain.TreeEntry{Path: e.GetPath(), IsDir: true})
		}
	}
	return entries, nil
}

// FetchContent downloads a raw file URL produced by ListTree.
// The body is streamed and reading stops one byte past the size limit.
func (c *Client) FetchContent(ctx context.Context, contentRef string) ([]byte, error) {
	resp, err := c.raw.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(contentRef)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrSourceUnavailable, contentRef, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("%w: fetch %s: status %d", domain.ErrSourceUnavailable, contentRef, resp.StatusCode())
	}
	if n := resp.RawResponse.ContentLength; n > int64(c.maxFileBytes) {
		return nil, fmt.Errorf("fetch %s: %d bytes exceeds limit of %d", contentRef, n, c.maxFileBytes)
	}

	data, err := io.ReadAll(io.LimitReader(body, int64(c.maxFileBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrSourceUnavailable, contentRef, err)
	}
	if len(data) > c.maxFileBytes {
		return nil, fmt.Errorf("fetch %s: exceeds limit of %d bytes", contentRef, c.maxFileBytes)
	}
	return data, nil
}

// MaxFileBytes is the largest blob FetchContent accepts.
func (c *Client) MaxFileBytes() int {
	return c.maxFileBytes
}

func (c *Client) rawURL(repo domain.RepoRef, ref, path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join([]string{c.rawBaseURL, repo.Owner, repo.Name, url.PathEscape(ref), strings.Join(segments, "/")}, "/")
}
