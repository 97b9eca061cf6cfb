package services

import (
	"context"
	"io"
	"time"
)

// FileRef describes one stored upload: where it lives in the blob store and
// what the client originally called it.
type FileRef struct {
	Location     string
	OriginalName string
	Size         int64
	ContentType  string
}

// ArchiveMember is one (source, entry name) pair for the zip builder.
type ArchiveMember struct {
	Location  string
	EntryName string
}

// BlobStore abstracts the storage area holding uploads and generated archives.
// Keys are slash-separated relative paths such as "uploads/abc/123_foto.jpg".
type BlobStore interface {
	// Save writes the reader's bytes under key. size may be -1 when unknown.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Open returns a reader for the blob and its size. Missing keys return
	// ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Writer returns a write handle for key. The blob is usable only after
	// Close returns nil.
	Writer(ctx context.Context, key string) (io.WriteCloser, error)

	Remove(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)

	// RemoveOlderThan deletes blobs under prefix whose modification time is
	// before cutoff. Returns the number of blobs removed.
	RemoveOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int, error)
}

// MediaFetcher retrieves an attachment from a messaging platform by media ID.
type MediaFetcher interface {
	Fetch(ctx context.Context, mediaID string) (*FetchedMedia, error)
}

// FetchedMedia is a downloaded attachment ready to be stored.
type FetchedMedia struct {
	Body     io.ReadCloser
	MimeType string
	Filename string
	Size     int64
}
