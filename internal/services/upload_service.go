package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"fotozip/internal/logging"
)

// allowedMIMETypes and allowedExtensions form the allow-list enforced on the
// stateless compress endpoint and the webhook. The session endpoints accept
// any type.
var allowedMIMETypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/pdf",
	"application/zip",
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
	".zip":  true,
}

// UploadPolicy constrains one upload batch. Zero values mean unbounded.
type UploadPolicy struct {
	MaxFiles      int
	MaxFileSize   int64
	RestrictTypes bool
}

// UploadService validates multipart uploads and writes them to the blob
// store under collision-resistant names.
type UploadService struct {
	store BlobStore
}

// NewUploadService creates a new upload service.
func NewUploadService(store BlobStore) *UploadService {
	return &UploadService{store: store}
}

// SaveMultipart validates every part against the policy before any write,
// then stores each part under "uploads/<scope>/<storage name>". The returned
// refs preserve part order. If a write fails mid-batch, files already written
// are removed best-effort and the error is returned.
func (s *UploadService) SaveMultipart(ctx context.Context, scope string, headers []*multipart.FileHeader, policy UploadPolicy) ([]FileRef, error) {
	if len(headers) == 0 {
		return nil, NewValidationError(CodeNoFiles, "No se recibió ningún archivo.")
	}
	if policy.MaxFiles > 0 && len(headers) > policy.MaxFiles {
		return nil, NewValidationError(CodeTooManyFiles,
			fmt.Sprintf("Demasiados archivos: máximo %d por petición.", policy.MaxFiles))
	}

	for _, h := range headers {
		if err := validateHeader(h, policy); err != nil {
			return nil, err
		}
	}

	refs := make([]FileRef, 0, len(headers))
	for _, h := range headers {
		ref, err := s.saveOne(ctx, scope, h, policy)
		if err != nil {
			s.removeAll(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// SaveMedia stores a single fetched attachment under "uploads/<scope>/...".
func (s *UploadService) SaveMedia(ctx context.Context, scope string, media *FetchedMedia, policy UploadPolicy) (FileRef, error) {
	defer media.Body.Close()

	if policy.RestrictTypes && !mimetype.EqualsAny(media.MimeType, allowedMIMETypes...) {
		return FileRef{}, NewValidationError(CodeInvalidFileType,
			fmt.Sprintf("Tipo de archivo no permitido: %s", media.MimeType))
	}
	if policy.MaxFileSize > 0 && media.Size > policy.MaxFileSize {
		return FileRef{}, NewValidationError(CodeFileTooLarge,
			fmt.Sprintf("El archivo supera el tamaño máximo de %s.", humanize.IBytes(uint64(policy.MaxFileSize))))
	}

	name := media.Filename
	if name == "" {
		name = "adjunto" + extensionForMIME(media.MimeType)
	}

	key := path.Join("uploads", SanitizeFilename(scope), StorageName(name))
	body := capped(media.Body, policy.MaxFileSize)
	if err := s.store.Save(ctx, key, body, media.Size, media.MimeType); err != nil {
		return FileRef{}, err
	}

	return FileRef{
		Location:     key,
		OriginalName: name,
		Size:         media.Size,
		ContentType:  media.MimeType,
	}, nil
}

func (s *UploadService) saveOne(ctx context.Context, scope string, h *multipart.FileHeader, policy UploadPolicy) (FileRef, error) {
	f, err := h.Open()
	if err != nil {
		return FileRef{}, fmt.Errorf("failed to open uploaded file %s: %w", h.Filename, err)
	}
	defer f.Close()

	var reader io.Reader = f
	contentType := h.Header.Get("Content-Type")

	if policy.RestrictTypes {
		// Sniff actual content; the declared type was already checked but
		// can lie.
		head := make([]byte, 3072)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return FileRef{}, fmt.Errorf("failed to read uploaded file %s: %w", h.Filename, err)
		}
		detected := mimetype.Detect(head[:n])
		if !mimeAllowed(detected) {
			return FileRef{}, NewValidationError(CodeInvalidFileType,
				fmt.Sprintf("Tipo de archivo no permitido: %s", detected.String()))
		}
		contentType = detected.String()
		reader = io.MultiReader(bytes.NewReader(head[:n]), f)
	}

	key := path.Join("uploads", SanitizeFilename(scope), StorageName(h.Filename))
	if err := s.store.Save(ctx, key, capped(reader, policy.MaxFileSize), h.Size, contentType); err != nil {
		return FileRef{}, err
	}

	logging.Debug("stored upload", "key", key, "size", humanize.IBytes(uint64(h.Size)))

	return FileRef{
		Location:     key,
		OriginalName: h.Filename,
		Size:         h.Size,
		ContentType:  contentType,
	}, nil
}

func (s *UploadService) removeAll(ctx context.Context, refs []FileRef) {
	for _, ref := range refs {
		if err := s.store.Remove(ctx, ref.Location); err != nil && !errors.Is(err, ErrNotFound) {
			logging.Warn("failed to clean up orphaned upload", "key", ref.Location, "error", err)
		}
	}
}

func validateHeader(h *multipart.FileHeader, policy UploadPolicy) error {
	if policy.MaxFileSize > 0 && h.Size > policy.MaxFileSize {
		return NewValidationError(CodeFileTooLarge,
			fmt.Sprintf("El archivo %s supera el tamaño máximo de %s.",
				h.Filename, humanize.IBytes(uint64(policy.MaxFileSize))))
	}
	if !policy.RestrictTypes {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(h.Filename))
	if !allowedExtensions[ext] {
		return NewValidationError(CodeInvalidFileType,
			fmt.Sprintf("Extensión no permitida: %s", h.Filename))
	}
	if declared := h.Header.Get("Content-Type"); declared != "" {
		if !mimetype.EqualsAny(declared, allowedMIMETypes...) {
			return NewValidationError(CodeInvalidFileType,
				fmt.Sprintf("Tipo de archivo no permitido: %s", declared))
		}
	}
	return nil
}

func mimeAllowed(mt *mimetype.MIME) bool {
	for _, allowed := range allowedMIMETypes {
		if mt.Is(allowed) {
			return true
		}
	}
	return false
}

func extensionForMIME(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(mime, "image/png"):
		return ".png"
	case strings.HasPrefix(mime, "image/gif"):
		return ".gif"
	case strings.HasPrefix(mime, "application/pdf"):
		return ".pdf"
	case strings.HasPrefix(mime, "application/zip"):
		return ".zip"
	default:
		return ".bin"
	}
}

// capReader errors once more than limit bytes pass through, so an over-limit
// part fails the write instead of being silently truncated.
type capReader struct {
	r         io.Reader
	remaining int64
}

func capped(r io.Reader, limit int64) io.Reader {
	if limit <= 0 {
		return r
	}
	return &capReader{r: r, remaining: limit}
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, NewValidationError(CodeFileTooLarge, "El archivo supera el tamaño máximo permitido.")
	}
	return n, err
}
