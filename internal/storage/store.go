package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"
)

// File areas used by the assignment module.
const (
	AreaSubmissionFiles = "submission_files"
	AreaFeedbackFiles   = "feedback_files"
	AreaOnlineText      = "submissions_onlinetext"
)

// Component identifies this module's files inside the shared store.
const Component = "mod_assign"

// AreaKey addresses one file area: all files one item owns within a context.
// A zero ItemID addresses every item of the area, which lets DeleteArea wipe
// a whole area during cascade deletes.
type AreaKey struct {
	ContextID uint
	Component string
	Area      string
	ItemID    uint
}

// Prefix renders the object key prefix for the area.
func (k AreaKey) Prefix() string {
	if k.ItemID == 0 {
		return fmt.Sprintf("%d/%s/%s/", k.ContextID, k.Component, k.Area)
	}
	return fmt.Sprintf("%d/%s/%s/%d/", k.ContextID, k.Component, k.Area, k.ItemID)
}

// StoredFile describes one blob in a file area.
type StoredFile struct {
	Name     string
	Size     int64
	Modified time.Time
}

// FileStore is the area-scoped blob store the module consumes. Internals
// (replication, quotas, cleanup) belong to the backing service.
type FileStore interface {
	Put(ctx context.Context, key AreaKey, name string, r io.Reader, size int64) error
	List(ctx context.Context, key AreaKey) ([]StoredFile, error)
	Open(ctx context.Context, key AreaKey, name string) (io.ReadCloser, error)
	DeleteArea(ctx context.Context, key AreaKey) error
}

// CountFiles returns how many blobs an area holds.
func CountFiles(ctx context.Context, store FileStore, key AreaKey) (int, error) {
	files, err := store.List(ctx, key)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// ZipArea packs every file of the given areas into a single zip archive,
// with each entry placed under its directory name. Used for the
// download-all-submissions action.
func ZipArea(ctx context.Context, store FileStore, entries map[string]AreaKey) ([]byte, error) {
	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)

	for dir, key := range entries {
		files, err := store.List(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("list area %s: %w", key.Prefix(), err)
		}
		for _, file := range files {
			reader, err := store.Open(ctx, key, file.Name)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", file.Name, err)
			}
			writer, err := archive.Create(dir + "/" + file.Name)
			if err != nil {
				reader.Close()
				return nil, err
			}
			if _, err := io.Copy(writer, reader); err != nil {
				reader.Close()
				return nil, err
			}
			reader.Close()
		}
	}

	if err := archive.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
