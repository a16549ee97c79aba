package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-editor/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps an editor error to its HTTP status by kind.
func RespondAPIError(c *gin.Context, err error) {
	kind := apierr.KindOf(err)
	RespondError(c, StatusFor(err), codeFor(kind), err)
}

func StatusFor(err error) int {
	switch apierr.KindOf(err) {
	case apierr.KindNotFound:
		return http.StatusNotFound
	case apierr.KindLoad:
		return http.StatusUnprocessableEntity
	case apierr.KindConflict:
		return http.StatusConflict
	case apierr.KindSave, apierr.KindPublish:
		if s := apierr.StatusOf(err); s >= 400 && s < 500 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	case apierr.KindFetch:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func codeFor(kind apierr.Kind) string {
	if kind == "" {
		return "internal_error"
	}
	return string(kind)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
