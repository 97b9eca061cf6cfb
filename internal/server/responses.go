package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fotozip/internal/logging"
	"fotozip/internal/services"
)

// sessionError writes the session-variant error shape: {ok:false, error}.
func (s *Server) sessionError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"ok": false, "error": message})
}

// statelessError writes the stateless-variant error shape:
// {success:false, error, code}.
func (s *Server) statelessError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"success": false, "error": message, "code": code})
}

// internalMessage hides error detail from clients unless dev mode is on.
func (s *Server) internalMessage(err error) string {
	if s.cfg.DevMode {
		return err.Error()
	}
	return "Error interno del servidor."
}

// failUpload converts an intake error into the right response class for the
// stateless shape.
func (s *Server) failUpload(c *gin.Context, err error) {
	if ve, ok := services.AsValidation(err); ok {
		s.statelessError(c, http.StatusBadRequest, ve.Code, ve.Message)
		return
	}
	logging.Error("upload intake failed", "error", err)
	s.statelessError(c, http.StatusInternalServerError, services.CodeInternal, s.internalMessage(err))
}
