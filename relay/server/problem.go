package server

import (
	"fmt"
	"net/http"

	"github.com/ZanzyTHEbar/ai-counselor/relay/domain"
	"github.com/gin-gonic/gin"
)

// problem is the JSON error body shared by every route.
type problem struct {
	Type          string                `json:"type"`
	Title         string                `json:"title"`
	Detail        string                `json:"detail,omitempty"`
	InvalidParams []domain.InvalidParam `json:"invalidParams,omitempty"`
}

func badRequestHeader(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, problem{
		Type:   "BAD_REQUEST",
		Title:  "invalid Request Header.",
		Detail: detail,
	})
}

func badRequestBody(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, problem{
		Type:   "BAD_REQUEST",
		Title:  "invalid Request Body.",
		Detail: detail,
	})
}

func unprocessable(c *gin.Context, params []domain.InvalidParam) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, problem{
		Type:          "UNPROCESSABLE_ENTITY",
		Title:         "validation Error.",
		InvalidParams: params,
	})
}

func tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, problem{
		Type:  "TOO_MANY_REQUESTS",
		Title: "too many requests, please retry later.",
	})
}

func notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, problem{
		Type:   "NOT_FOUND",
		Title:  "Resource not found.",
		Detail: fmt.Sprintf("%s not found.", c.Request.URL.String()),
	})
}

// internalError hides the cause from the client. The status is 200 when
// statusOK is set, matching what existing clients expect.
func internalError(c *gin.Context, statusOK bool) {
	status := http.StatusInternalServerError
	if statusOK {
		status = http.StatusOK
	}
	c.AbortWithStatusJSON(status, problem{
		Type:  "INTERNAL_SERVER_ERROR",
		Title: "an unexpected error has occurred.",
	})
}
