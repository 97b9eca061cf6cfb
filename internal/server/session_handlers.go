package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"fotozip/internal/logging"
	"fotozip/internal/services"
)

// iniciarHandler resets the session for the resolved key, discarding any
// accumulated file list. Files already on disk stay put.
func (s *Server) iniciarHandler(c *gin.Context) {
	key := s.resolveSessionKey(c)
	s.registry.Reset(key)
	logging.Info("session reset", "chatId", key)
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": fmt.Sprintf("Sesión iniciada para %s.", key),
		"chatId":  key,
	})
}

// uploadHandler accepts multipart parts under the "fotos" field and appends
// them to the resolved session. The session path has no type allow-list.
func (s *Server) uploadHandler(c *gin.Context) {
	key := s.resolveSessionKey(c)

	form, err := c.MultipartForm()
	if err != nil {
		s.sessionError(c, http.StatusBadRequest, "No se pudo leer el formulario multipart.")
		return
	}
	files := form.File["fotos"]
	if len(files) == 0 {
		s.sessionError(c, http.StatusBadRequest, "No se recibió ningún archivo en el campo 'fotos'.")
		return
	}

	refs, err := s.uploads.SaveMultipart(c.Request.Context(), key, files, services.UploadPolicy{})
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			s.sessionError(c, http.StatusBadRequest, ve.Message)
			return
		}
		logging.Error("failed to store uploads", "chatId", key, "error", err)
		s.sessionError(c, http.StatusInternalServerError, s.internalMessage(err))
		return
	}

	total := s.registry.Append(key, refs)
	logging.Info("uploads accepted", "chatId", key, "received", len(refs), "total", total)

	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"chatId":         key,
		"recibidasAhora": len(refs),
		"totalSesion":    total,
	})
}

// comprimirHandler dispatches POST /comprimir: a multipart body with a
// "files" field runs the stateless variant, anything else the session one.
func (s *Server) comprimirHandler(c *gin.Context) {
	if form, err := c.MultipartForm(); err == nil && len(form.File["files"]) > 0 {
		s.comprimirStateless(c, form.File["files"])
		return
	}
	s.comprimirSessionHandler(c)
}

// comprimirSessionHandler builds an archive from the session's accumulated
// files and streams it back. The session is consumed on success; on failure
// the file list is restored so the client can retry.
func (s *Server) comprimirSessionHandler(c *gin.Context) {
	key := s.resolveSessionKey(c)

	refs, ok := s.registry.TakeForBuild(key)
	if !ok {
		s.sessionError(c, http.StatusBadRequest, "No hay fotos cargadas para este chatId.")
		return
	}

	name := services.ArchiveName(key)
	archiveKey := path.Join("archives", name)

	if err := s.zips.Build(c.Request.Context(), archiveKey, members(refs)); err != nil {
		s.registry.Restore(key, refs)
		logging.Error("archive build failed", "chatId", key, "archive", name, "error", err)
		s.sessionError(c, http.StatusInternalServerError, s.internalMessage(err))
		return
	}

	logging.Info("archive built", "chatId", key, "archive", name, "files", len(refs))
	s.streamArchive(c, archiveKey, name)
}

// descargarHandler streams a previously built archive as an attachment.
func (s *Server) descargarHandler(c *gin.Context) {
	name := c.Param("filename")
	if name == "" || name != path.Base(name) || name == "." || name == ".." {
		s.statelessError(c, http.StatusNotFound, services.CodeNotFound, "Archivo no encontrado.")
		return
	}

	archiveKey := path.Join("archives", name)
	if !s.streamArchive(c, archiveKey, name) {
		return
	}

	if s.cfg.DeleteAfterDownload {
		// Best effort, off the request path.
		go func() {
			if err := s.store.Remove(context.Background(), archiveKey); err != nil &&
				!errors.Is(err, services.ErrNotFound) {
				logging.Warn("failed to delete archive after download", "archive", name, "error", err)
			}
		}()
	}
}

// streamArchive serves the blob under archiveKey as a zip attachment.
// Returns false when the response was an error.
func (s *Server) streamArchive(c *gin.Context, archiveKey, name string) bool {
	rc, size, err := s.store.Open(c.Request.Context(), archiveKey)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.statelessError(c, http.StatusNotFound, services.CodeNotFound, "Archivo no encontrado.")
			return false
		}
		logging.Error("failed to open archive", "archive", name, "error", err)
		s.statelessError(c, http.StatusInternalServerError, services.CodeInternal, s.internalMessage(err))
		return false
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, size, "application/zip", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
	})
	return true
}

// members maps session refs to archive entries, original names becoming the
// in-archive names. Duplicate basenames collide; last entry wins on extract.
func members(refs []services.FileRef) []services.ArchiveMember {
	out := make([]services.ArchiveMember, 0, len(refs))
	for _, ref := range refs {
		entry := ref.OriginalName
		if entry == "" {
			entry = path.Base(ref.Location)
		}
		out = append(out, services.ArchiveMember{
			Location:  ref.Location,
			EntryName: path.Base(entry),
		})
	}
	return out
}
