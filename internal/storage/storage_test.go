package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/repobrief/internal/config"
)

func TestArtifactKey(t *testing.T) {
	assert.Equal(t, "briefs/abc.md", ArtifactKey("briefs", "abc"))
	assert.Equal(t, "briefs/abc.md", ArtifactKey("briefs/", "abc"))
	assert.Equal(t, "abc.md", ArtifactKey("", "abc"))
}

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"", StorageTypeS3},
		{"https://acct.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.us-west-2.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectStorageType(tt.endpoint), tt.endpoint)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "localhost:9000", normalizeEndpoint("http://localhost:9000/some/path"))
	assert.Equal(t, "acct.r2.cloudflarestorage.com", normalizeEndpoint("https://acct.r2.cloudflarestorage.com"))
	assert.Equal(t, "", normalizeEndpoint(""))
}

func TestNewStorageDisabled(t *testing.T) {
	s, err := NewStorage(context.Background(), &config.StorageConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = NewStorage(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestNewStorageRejectsUnknownType(t *testing.T) {
	_, err := NewStorage(context.Background(), &config.StorageConfig{Enabled: true, Type: "ftp", Bucket: "b"})
	assert.Error(t, err)
}

func TestS3URLs(t *testing.T) {
	ctx := context.Background()

	withPublic, err := NewS3Storage(ctx, &S3Config{
		Endpoint: "https://acct.r2.cloudflarestorage.com", Bucket: "b", AccessKey: "k", SecretKey: "s",
		PublicURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, StorageTypeR2, withPublic.storeType)
	assert.Equal(t, "https://cdn.example.com/briefs/x.md", withPublic.GetURL("briefs/x.md"))

	compatible, err := NewS3Storage(ctx, &S3Config{
		Endpoint: "localhost:9000", Bucket: "b", AccessKey: "k", SecretKey: "s",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/b/briefs/x.md", compatible.GetURL("briefs/x.md"))

	aws, err := NewS3Storage(ctx, &S3Config{Bucket: "b", Region: "eu-west-1", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/briefs/x.md", aws.GetURL("briefs/x.md"))
}

func TestMinIOURL(t *testing.T) {
	s, err := NewMinIOStorage(&MinIOConfig{Endpoint: "localhost:9000", Bucket: "briefs", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/briefs/a/b.md", s.GetURL("a/b.md"))
}
