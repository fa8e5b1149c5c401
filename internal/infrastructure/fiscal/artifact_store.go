package fiscal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FSArtifactStore keeps fiscal artifacts on the local filesystem under a base
// directory, mirroring the artifact key layout as directories.
type FSArtifactStore struct {
	baseDir string
}

// NewFSArtifactStore creates a store rooted at baseDir
func NewFSArtifactStore(baseDir string) (*FSArtifactStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FSArtifactStore{baseDir: baseDir}, nil
}

// Put implements fiscal.ArtifactStore
func (s *FSArtifactStore) Put(_ context.Context, key, _ string, data []byte) error {
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	return nil
}

// Get implements fiscal.ArtifactStore
func (s *FSArtifactStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, nil
}

// S3API is the subset of the S3 client the store uses
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ArtifactStore keeps fiscal artifacts in an S3 bucket. Production
// deployments point this at the archival bucket; the filesystem store covers
// local development.
type S3ArtifactStore struct {
	client S3API
	bucket string
}

// NewS3ArtifactStore creates a store writing to the given bucket
func NewS3ArtifactStore(client S3API, bucket string) *S3ArtifactStore {
	return &S3ArtifactStore{client: client, bucket: bucket}
}

// Put implements fiscal.ArtifactStore
func (s *S3ArtifactStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3 object %s: %w", key, err)
	}
	return nil
}

// Get implements fiscal.ArtifactStore
func (s *S3ArtifactStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s: %w", key, err)
	}
	return data, nil
}
