package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fotozip/internal/config"
	"fotozip/internal/logging"
	"fotozip/internal/services"
)

// Server holds the handler dependencies: every piece of shared state is
// injected here instead of living in package globals.
type Server struct {
	cfg      *config.Config
	store    services.BlobStore
	registry *services.SessionRegistry
	uploads  *services.UploadService
	zips     services.ZipService
	media    services.MediaFetcher
}

// New creates a server with all dependencies.
func New(
	cfg *config.Config,
	store services.BlobStore,
	registry *services.SessionRegistry,
	uploads *services.UploadService,
	zips services.ZipService,
	media services.MediaFetcher,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		registry: registry,
		uploads:  uploads,
		zips:     zips,
		media:    media,
	}
}

// Router builds the gin engine with CORS, panic recovery and all routes.
func (s *Server) Router() *gin.Engine {
	if !s.cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.Error("panic recovered in handler", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Error interno del servidor.",
			"code":    services.CodeInternal,
		})
	}))
	router.Use(cors.New(s.corsConfig()))

	router.GET("/", s.healthHandler)
	router.GET("/iniciar", s.iniciarHandler)
	router.POST("/iniciar", s.iniciarHandler)
	router.POST("/upload", s.uploadHandler)
	router.GET("/comprimir", s.comprimirSessionHandler)
	router.POST("/comprimir", s.comprimirHandler)
	router.GET("/descargar/:filename", s.descargarHandler)
	router.GET("/webhook/whatsapp", s.webhookVerifyHandler)
	router.POST("/webhook/whatsapp", s.webhookHandler)

	return router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Disposition", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.CORSAllowedOrigins) == 1 && s.cfg.CORSAllowedOrigins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.CORSAllowedOrigins
	}
	return cfg
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "fotozip"})
}

// resolveSessionKey picks the session key from the request: body field first,
// then query parameter, then the fixed default.
func (s *Server) resolveSessionKey(c *gin.Context) string {
	if key := c.PostForm("chatId"); key != "" {
		return key
	}
	if key := c.Query("chatId"); key != "" {
		return key
	}
	return services.DefaultSessionKey
}
