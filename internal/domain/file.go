package domain

import (
	"fmt"
	"unicode/utf8"
)

// RepoRef identifies a hosted repository.
type RepoRef struct {
	Host  string
	Owner string
	Name  string
}

// FullName returns "owner/name".
func (r RepoRef) FullName() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

// TreeEntry is one node of a recursive repository listing.
// ContentRef is an opaque handle accepted by the hosting client's content fetch.
type TreeEntry struct {
	Path       string
	IsDir      bool
	ContentRef string
	Size       int
}

// CandidateFile is a fetched file owned by a single pipeline run.
type CandidateFile struct {
	Path    string
	Content string
}

// Len returns the content length in characters.
func (f CandidateFile) Len() int {
	return utf8.RuneCountInString(f.Content)
}

// EmbeddedFile pairs a candidate with its embedding.
// All vectors produced in one run share the same dimension.
type EmbeddedFile struct {
	CandidateFile
	Vector []float32
}

// Paths returns the paths of files in order.
func Paths(files []CandidateFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
