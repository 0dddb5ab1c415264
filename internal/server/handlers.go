package server

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"speechwriter/internal/catalog"
	"speechwriter/internal/speech"
)

type generateSpeechBody struct {
	Topic              *string  `json:"topic" binding:"required"`
	DurationMinutes    *int     `json:"duration_minutes" binding:"required"`
	Style              *string  `json:"style"`
	KeyPoints          []string `json:"key_points"`
	Language           *string  `json:"language"`
	CustomInstructions *string  `json:"custom_instructions"`
}

func (b generateSpeechBody) request() speech.Request {
	req := speech.NewRequest(*b.Topic, *b.DurationMinutes)
	if b.Style != nil {
		req.Style = *b.Style
	}
	if b.Language != nil {
		req.Language = *b.Language
	}
	req.KeyPoints = b.KeyPoints
	req.CustomInstructions = b.CustomInstructions
	return req
}

type styleBody struct {
	Name        *string `json:"name" binding:"required"`
	Description *string `json:"description" binding:"required"`
}

func (b styleBody) style() speech.Style {
	return speech.Style{Name: *b.Name, Description: *b.Description}
}

type narrateBody struct {
	Text  string `json:"text" binding:"required"`
	Voice string `json:"voice"`
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model_ready": s.generator.Ready()})
}

func (s *Service) handleGenerateSpeech(c *gin.Context) {
	var body generateSpeechBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeValidationError(c, err)
		return
	}
	styles, err := s.styles.All(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	text, err := s.generator.GenerateSpeech(c.Request.Context(), body.request(), styles)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"speech": text})
}

// Omitted fields take their default value, not the live one: the update is
// always a full replacement.
func (s *Service) handleSetModelSettings(c *gin.Context) {
	params := speech.DefaultParams()
	if err := c.ShouldBindJSON(&params); err != nil {
		writeValidationError(c, err)
		return
	}
	s.params.Replace(params)
	slog.Info("generation parameters replaced",
		"temperature", params.Temperature,
		"topP", params.TopP,
		"topK", params.TopK,
		"maxLength", params.MaxLength,
		"maxNewTokens", params.MaxNewTokens,
		"repetitionPenalty", params.RepetitionPenalty,
		"doSample", params.DoSample,
	)
	c.Status(http.StatusOK)
}

func (s *Service) handleGetModelSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.params.Current())
}

func (s *Service) handleNarrate(c *gin.Context) {
	if s.narration == nil || s.narration.Client == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": "narration is not configured"})
		return
	}
	var body narrateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeValidationError(c, err)
		return
	}
	voice := strings.TrimSpace(body.Voice)
	if voice == "" {
		voice = s.narration.Voice
	}
	var audio bytes.Buffer
	if err := s.narration.Client.TTS(c.Request.Context(), s.narration.Model, voice, body.Text, &audio); err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", audio.Bytes())
}

func (s *Service) handleAddStyles(c *gin.Context) {
	var bodies []styleBody
	if err := c.ShouldBindJSON(&bodies); err != nil {
		writeValidationError(c, err)
		return
	}
	styles := make([]speech.Style, 0, len(bodies))
	for _, b := range bodies {
		styles = append(styles, b.style())
	}
	added, err := s.styles.Add(c.Request.Context(), styles)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Стили добавлены", "styles": added})
}

func (s *Service) handleGetStyles(c *gin.Context) {
	styles, err := s.styles.All(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"styles": styles})
}

func (s *Service) handleUpdateStyle(c *gin.Context) {
	var body styleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeValidationError(c, err)
		return
	}
	style, err := s.styles.Update(c.Request.Context(), body.style())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Стиль обновлен", "style": style})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, speech.ErrInvalidStyle), errors.Is(err, catalog.ErrDuplicateStyle):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrStyleNotFound):
		return http.StatusNotFound
	case errors.Is(err, speech.ErrModelNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Request.URL.Path, "status", status, "err", err, "requestID", c.GetString("requestID"))
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}

func writeValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
}
