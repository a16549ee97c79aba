package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-editor/internal/domain/course"
	"github.com/yungbote/neurobridge-editor/internal/editor"
	"github.com/yungbote/neurobridge-editor/internal/http/response"
	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
)

// Editor is the editor session surface the local API drives.
type Editor interface {
	CourseID() string
	Snapshot() editor.View
	Select(classID string) error
	Publish(ctx context.Context) error
	AddSlide(ctx context.Context, classID string, draft course.Slide) (course.Slide, error)

	EditStatus() editor.EditStatus
	EnterEdit(classID string) error
	SetTitle(title string) error
	AddConcept(text string) error
	RemoveConcept(index int) error
	Commit(ctx context.Context) error
	Cancel() error

	EnterSlideEdit(classID, slideID string) error
	SetSlideField(patch course.SlidePatch) error
	CommitSlide(ctx context.Context) error
	CancelSlide() error
}

type CourseHandler struct {
	log    *logger.Logger
	editor Editor
}

func NewCourseHandler(log *logger.Logger, ed Editor) *CourseHandler {
	return &CourseHandler{
		log:    log.With("handler", "CourseHandler"),
		editor: ed,
	}
}

// GET /api/course
func (h *CourseHandler) GetCourse(c *gin.Context) {
	response.RespondOK(c, h.editor.Snapshot())
}

type selectClassRequest struct {
	ClassID string `json:"class_id" binding:"required"`
}

// POST /api/course/select
func (h *CourseHandler) SelectClass(c *gin.Context) {
	var req selectClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.editor.Select(req.ClassID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"current_class_id": req.ClassID})
}

// POST /api/course/publish
func (h *CourseHandler) Publish(c *gin.Context) {
	if err := h.editor.Publish(c.Request.Context()); err != nil {
		h.log.Warn("Publish failed", "course_id", h.editor.CourseID(), "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": h.editor.Snapshot().Course})
}

type addSlideRequest struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	VoiceoverScript string `json:"voiceover_script"`
	VisualPrompt    string `json:"visual_prompt"`
	Example         string `json:"example"`
	ImageURL        string `json:"image_url" binding:"omitempty,url"`
}

// POST /api/classes/:id/slides
func (h *CourseHandler) AddSlide(c *gin.Context) {
	var req addSlideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	slide, err := h.editor.AddSlide(c.Request.Context(), c.Param("id"), course.Slide{
		Title:           req.Title,
		Content:         req.Content,
		VoiceoverScript: req.VoiceoverScript,
		VisualPrompt:    req.VisualPrompt,
		Example:         req.Example,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"slide": slide})
}
