package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-editor/internal/domain/course"
	"github.com/yungbote/neurobridge-editor/internal/editor"
	"github.com/yungbote/neurobridge-editor/internal/http/response"
	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
)

type EditHandler struct {
	log    *logger.Logger
	editor Editor
}

func NewEditHandler(log *logger.Logger, ed Editor) *EditHandler {
	return &EditHandler{
		log:    log.With("handler", "EditHandler"),
		editor: ed,
	}
}

func (h *EditHandler) respond(c *gin.Context, err error) {
	if err != nil {
		var ce *editor.CommitError
		if errors.As(err, &ce) {
			c.JSON(response.StatusFor(err), gin.H{
				"error": response.APIError{Message: err.Error(), Code: "commit_failed"},
				"edit":  h.editor.EditStatus(),
			})
			return
		}
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"edit": h.editor.EditStatus()})
}

// POST /api/classes/:id/edit
func (h *EditHandler) EnterClassEdit(c *gin.Context) {
	h.respond(c, h.editor.EnterEdit(c.Param("id")))
}

type titleRequest struct {
	Title *string `json:"title" binding:"required"`
}

// POST /api/edit/title
func (h *EditHandler) SetTitle(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.respond(c, h.editor.SetTitle(*req.Title))
}

type conceptRequest struct {
	Text string `json:"text"`
}

// POST /api/edit/concepts
func (h *EditHandler) AddConcept(c *gin.Context) {
	var req conceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.respond(c, h.editor.AddConcept(req.Text))
}

// DELETE /api/edit/concepts/:index
func (h *EditHandler) RemoveConcept(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_index", err)
		return
	}
	h.respond(c, h.editor.RemoveConcept(idx))
}

// POST /api/edit/commit
func (h *EditHandler) Commit(c *gin.Context) {
	h.respond(c, h.editor.Commit(c.Request.Context()))
}

// POST /api/edit/cancel
func (h *EditHandler) Cancel(c *gin.Context) {
	h.respond(c, h.editor.Cancel())
}

// POST /api/classes/:id/slides/:slideId/edit
func (h *EditHandler) EnterSlideEdit(c *gin.Context) {
	h.respond(c, h.editor.EnterSlideEdit(c.Param("id"), c.Param("slideId")))
}

type slidePatchRequest struct {
	Title           *string `json:"title"`
	Content         *string `json:"content"`
	VoiceoverScript *string `json:"voiceover_script"`
	VisualPrompt    *string `json:"visual_prompt"`
	Example         *string `json:"example"`
	ImageURL        *string `json:"image_url" binding:"omitempty,url"`
}

// PATCH /api/edit/slide
func (h *EditHandler) SetSlideField(c *gin.Context) {
	var req slidePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.respond(c, h.editor.SetSlideField(course.SlidePatch(req)))
}

// POST /api/edit/slide/commit
func (h *EditHandler) CommitSlide(c *gin.Context) {
	h.respond(c, h.editor.CommitSlide(c.Request.Context()))
}

// POST /api/edit/slide/cancel
func (h *EditHandler) CancelSlide(c *gin.Context) {
	h.respond(c, h.editor.CancelSlide())
}
