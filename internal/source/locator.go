package source

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/timmy/repobrief/internal/domain"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ParseLocator parses "https://<host>/<owner>/<repo>[.git][/...]".
// Any host is accepted; owner and repo must be plain path segments.
// Errors wrap domain.ErrInvalidReference.
func ParseLocator(raw string) (domain.RepoRef, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return domain.RepoRef{}, fmt.Errorf("%w: %v", domain.ErrInvalidReference, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return domain.RepoRef{}, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidReference, u.Scheme)
	}
	if u.Host == "" {
		return domain.RepoRef{}, fmt.Errorf("%w: missing host", domain.ErrInvalidReference)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return domain.RepoRef{}, fmt.Errorf("%w: expected /<owner>/<repo> in %q", domain.ErrInvalidReference, raw)
	}
	owner := parts[0]
	name := strings.TrimSuffix(parts[1], ".git")
	if !namePattern.MatchString(owner) || !namePattern.MatchString(name) || name == "." || name == ".." {
		return domain.RepoRef{}, fmt.Errorf("%w: bad owner or repository name in %q", domain.ErrInvalidReference, raw)
	}

	return domain.RepoRef{Host: u.Host, Owner: owner, Name: name}, nil
}
