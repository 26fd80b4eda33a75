package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nanobanana/internal/generation"
	"nanobanana/internal/session"
)

// generateRequest is the POST /api/generate body. Attachment data rides as
// base64 strings, decoded by encoding/json into the []byte fields.
type generateRequest struct {
	Mode        string                 `json:"mode" binding:"required"`
	Prompt      string                 `json:"prompt"`
	Model       string                 `json:"model"`
	Attachment  *generation.Attachment `json:"attachment"`
	Face        *generation.Attachment `json:"face"`
	Target      *generation.Attachment `json:"target"`
	AspectRatio string                 `json:"aspectRatio"`
	Resolution  string                 `json:"resolution"`
	ImageSize   string                 `json:"imageSize"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := session.ParseMode(body.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.deps.Orchestrator.Submit(c.Request.Context(), session.Submission{
		Mode:       mode,
		Prompt:     body.Prompt,
		Model:      body.Model,
		Attachment: body.Attachment,
		Face:       body.Face,
		Target:     body.Target,
		Shape: generation.Shape{
			AspectRatio: body.AspectRatio,
			Resolution:  body.Resolution,
			ImageSize:   body.ImageSize,
		},
	})
	if err != nil {
		if generation.IsValidationError(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message_id": id})
}

func (s *Server) handleHistory(c *gin.Context) {
	mode, err := session.ParseMode(c.Param("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": s.deps.History.Snapshot(mode)})
}

func (s *Server) handleMedia(c *gin.Context) {
	media, ok := s.deps.Media.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found or evicted"})
		return
	}
	c.Data(http.StatusOK, media.MIMEType, media.Data)
}
