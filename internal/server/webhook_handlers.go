package server

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"fotozip/internal/logging"
	"fotozip/internal/services"
)

// webhookPayload mirrors the WhatsApp Cloud API notification shape, reduced
// to the fields this service reads.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Statuses []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"statuses"`
				Messages []webhookMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
		Caption  string `json:"caption"`
	} `json:"image"`
	Document *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
		Filename string `json:"filename"`
	} `json:"document"`
}

// webhookVerifyHandler answers the platform's subscription handshake: the
// challenge is echoed only when the mode and verify token match.
func (s *Server) webhookVerifyHandler(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && s.cfg.WhatsAppVerifyToken != "" && token == s.cfg.WhatsAppVerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.AbortWithStatus(http.StatusForbidden)
}

// webhookHandler processes inbound notifications. Status updates are
// acknowledged and dropped; attached media becomes a one-file upload that is
// zipped immediately; text messages are echoed. Everything answers 200
// unless something internal breaks.
func (s *Server) webhookHandler(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logging.Warn("unparseable webhook payload", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	msg, ok := firstMessage(&payload)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	switch msg.Type {
	case "text":
		var text string
		if msg.Text != nil {
			text = msg.Text.Body
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "echo": text})

	case "image", "document":
		s.handleWebhookMedia(c, msg)

	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (s *Server) handleWebhookMedia(c *gin.Context, msg *webhookMessage) {
	var mediaID, filename string
	switch {
	case msg.Image != nil:
		mediaID = msg.Image.ID
	case msg.Document != nil:
		mediaID = msg.Document.ID
		filename = msg.Document.Filename
	}
	if mediaID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx := c.Request.Context()

	media, err := s.media.Fetch(ctx, mediaID)
	if err != nil {
		logging.Error("failed to fetch webhook media", "mediaId", mediaID, "error", err)
		s.statelessError(c, http.StatusInternalServerError, services.CodeInternal, s.internalMessage(err))
		return
	}
	if media.Filename == "" {
		media.Filename = filename
	}

	policy := services.UploadPolicy{
		MaxFileSize:   s.cfg.MaxFileSize,
		RestrictTypes: true,
	}
	ref, err := s.uploads.SaveMedia(ctx, "whatsapp/"+msg.From, media, policy)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			// Not our caller's fault that a contact sent an odd attachment;
			// acknowledge and report the rejection.
			c.JSON(http.StatusOK, gin.H{"status": "rejected", "reason": ve.Message})
			return
		}
		logging.Error("failed to store webhook media", "mediaId", mediaID, "error", err)
		s.statelessError(c, http.StatusInternalServerError, services.CodeInternal, s.internalMessage(err))
		return
	}

	name := services.ArchiveName(msg.From)
	archiveKey := path.Join("archives", name)

	if err := s.zips.Build(ctx, archiveKey, members([]services.FileRef{ref})); err != nil {
		logging.Error("failed to build webhook archive", "mediaId", mediaID, "error", err)
		s.statelessError(c, http.StatusInternalServerError, services.CodeInternal, s.internalMessage(err))
		return
	}

	logging.Info("webhook media archived", "from", msg.From, "archive", name)

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"downloadUrl": "/descargar/" + name,
		"filename":    name,
	})
}

func firstMessage(p *webhookPayload) (*webhookMessage, bool) {
	for i := range p.Entry {
		for j := range p.Entry[i].Changes {
			value := &p.Entry[i].Changes[j].Value
			if len(value.Statuses) > 0 {
				return nil, false
			}
			if len(value.Messages) > 0 {
				return &value.Messages[0], true
			}
		}
	}
	return nil, false
}
