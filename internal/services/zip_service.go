package services

import (
	"archive/zip"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"time"
)

// ZipService builds zip archives.
type ZipService interface {
	Build(ctx context.Context, archiveKey string, members []ArchiveMember) error
}

// DefaultZipService streams blobs from a store into a zip archive written
// back to the same store.
type DefaultZipService struct {
	store BlobStore
}

// NewDefaultZipService creates a new zip service.
func NewDefaultZipService(store BlobStore) *DefaultZipService {
	return &DefaultZipService{store: store}
}

// Build writes a zip archive under archiveKey containing each member's bytes
// under its entry name, in order, with maximum compression. Sources are
// streamed, never loaded whole into memory. Duplicate entry names are kept
// as-is; on extraction the last entry wins.
//
// Build returns nil only after the archive writer is finalized and the
// underlying store handle is closed, so a client may download the archive
// immediately. On any error the partial output is removed best-effort and the
// caller must treat the archive as nonexistent.
func (z *DefaultZipService) Build(ctx context.Context, archiveKey string, members []ArchiveMember) error {
	out, err := z.store.Writer(ctx, archiveKey)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", archiveKey, err)
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	abort := func(cause error) error {
		zw.Close()
		out.Close()
		z.store.Remove(context.WithoutCancel(ctx), archiveKey)
		return cause
	}

	for _, member := range members {
		if err := ctx.Err(); err != nil {
			return abort(fmt.Errorf("archive build canceled: %w", err))
		}

		src, _, err := z.store.Open(ctx, member.Location)
		if err != nil {
			return abort(fmt.Errorf("failed to open archive member %s: %w", member.Location, err))
		}

		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     member.EntryName,
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err != nil {
			src.Close()
			return abort(fmt.Errorf("failed to create archive entry %s: %w", member.EntryName, err))
		}

		if _, err := io.Copy(entry, src); err != nil {
			src.Close()
			return abort(fmt.Errorf("failed to write archive entry %s: %w", member.EntryName, err))
		}
		src.Close()
	}

	if err := zw.Close(); err != nil {
		out.Close()
		z.store.Remove(context.WithoutCancel(ctx), archiveKey)
		return fmt.Errorf("failed to finalize archive %s: %w", archiveKey, err)
	}

	// The archive exists only once the store handle reports a clean close.
	if err := out.Close(); err != nil {
		z.store.Remove(context.WithoutCancel(ctx), archiveKey)
		return fmt.Errorf("failed to flush archive %s: %w", archiveKey, err)
	}

	return nil
}
