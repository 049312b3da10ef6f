package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"saiblibrary/internal/services"
)

// envelope is the shape of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var errRouteNotFound = &services.Error{Kind: services.KindNotFound, Reason: "route", Message: "route not found"}

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindInvalidArgument:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response. Internal errors are logged and replaced by a
// generic message.
func fail(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := statusFor(kind)
	if kind == services.KindInternal {
		loggerFrom(c).Error("request failed", "err", err, "req_id", c.GetString(requestIDKey))
		c.AbortWithStatusJSON(status, envelope{Success: false, Message: "internal server error"})
		return
	}
	var e *services.Error
	errors.As(err, &e)
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: e.Message})
}

// badRequest reports a malformed body or path parameter.
func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{Success: false, Message: message})
}

// bind decodes the JSON body into req and reports a 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, bindingMessage(err))
		return false
	}
	return true
}

// pathID parses a uuid path parameter and reports a 400 on failure.
func pathID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		badRequest(c, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}
