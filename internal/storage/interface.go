package storage

import (
	"context"
	"io"
	"path"
)

// ObjectStorage publishes finished summaries as downloadable objects.
type ObjectStorage interface {
	// Upload writes an object under key, replacing any previous version.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the URL readers use to fetch key.
	GetURL(key string) string
}

// ArtifactKey is the object key of the summary produced by a job.
func ArtifactKey(prefix, jobID string) string {
	return path.Join(prefix, jobID+".md")
}
