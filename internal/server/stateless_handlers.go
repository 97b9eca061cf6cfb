package server

import (
	"mime/multipart"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"fotozip/internal/logging"
	"fotozip/internal/services"
)

// comprimirStateless compresses a single request's files immediately and
// returns a download link. The allow-list and the per-file size cap apply
// here, unlike on the session path.
func (s *Server) comprimirStateless(c *gin.Context, files []*multipart.FileHeader) {
	policy := services.UploadPolicy{
		MaxFiles:      s.cfg.MaxFilesPerRequest,
		MaxFileSize:   s.cfg.MaxFileSize,
		RestrictTypes: true,
	}

	refs, err := s.uploads.SaveMultipart(c.Request.Context(), "stateless", files, policy)
	if err != nil {
		s.failUpload(c, err)
		return
	}

	name := services.StatelessArchiveName()
	archiveKey := path.Join("archives", name)

	if err := s.zips.Build(c.Request.Context(), archiveKey, members(refs)); err != nil {
		logging.Error("stateless archive build failed", "archive", name, "error", err)
		s.statelessError(c, http.StatusInternalServerError, services.CodeInternal, s.internalMessage(err))
		return
	}

	logging.Info("stateless archive built", "archive", name, "files", len(refs))

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Archivos comprimidos correctamente.",
		"downloadUrl": "/descargar/" + name,
		"filename":    name,
		"fileCount":   len(refs),
	})
}
