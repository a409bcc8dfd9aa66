// Package collections finds and removes private image folders whose
// collection no longer exists.
package collections

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const imagesDir = "images"

// FolderStore lists and removes the per-collection image folders.
type FolderStore interface {
	ListFolders(ctx context.Context) ([]string, error)
	RemoveFolder(ctx context.Context, name string) error
}

// FilesystemStore keeps folders under <root>/images.
type FilesystemStore struct {
	root string
}

func NewFilesystemStore(root string) *FilesystemStore {
	return &FilesystemStore{root: filepath.Join(root, imagesDir)}
}

func (s *FilesystemStore) ListFolders(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.root, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// RemoveFolder only removes empty folders.
func (s *FilesystemStore) RemoveFolder(ctx context.Context, name string) error {
	if err := os.Remove(filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("failed to remove folder %s: %w", name, err)
	}
	return nil
}

// S3Store keeps folders as images/<name>/ prefixes in a bucket.
type S3Store struct {
	client *minio.Client
	bucket string
}

func NewS3Store(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*S3Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &S3Store{
		client: client,
		bucket: bucket,
	}, nil
}

func (s *S3Store) ListFolders(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: imagesDir + "/"}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list folders: %w", object.Err)
		}
		name := strings.TrimPrefix(object.Key, imagesDir+"/")
		if i := strings.Index(name, "/"); i > 0 {
			seen[name[:i]] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RemoveFolder deletes every object under the folder prefix. A failed
// listing is reported even when nothing was handed to RemoveObjects.
func (s *S3Store) RemoveFolder(ctx context.Context, name string) error {
	prefix := fmt.Sprintf("%s/%s/", imagesDir, name)

	objects := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	go func() {
		defer close(listErr)
		defer close(objects)
		for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if object.Err != nil {
				listErr <- fmt.Errorf("failed to list %s: %w", prefix, object.Err)
				return
			}
			select {
			case objects <- object:
			case <-ctx.Done():
				listErr <- ctx.Err()
				return
			}
		}
	}()

	var errs []error
	for result := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("failed to remove %s: %w", result.ObjectName, result.Err))
	}
	if err := <-listErr; err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
