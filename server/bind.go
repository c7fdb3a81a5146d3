package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fastllm/gateway/api"
)

// bindJSON decodes the request body into obj. Unlike the teacher's own
// bindJSON, it does not call DisallowUnknownFields: the gateway's wire
// contract silently ignores keys it doesn't recognize rather than
// rejecting the whole request.
func bindJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil {
		return api.ErrInvalidRequest("missing request body")
	}
	if err := json.NewDecoder(c.Request.Body).Decode(obj); err != nil {
		return api.ErrInvalidRequest("invalid request body: %v", err)
	}
	return nil
}

// writeError renders err as the OpenAI-compatible {"error": {...}} body. A
// plain error that isn't an api.StatusError is treated as an internal
// error and its message is not echoed back to the client.
func writeError(c *gin.Context, err error) {
	statusErr, ok := err.(api.StatusError)
	if !ok {
		statusErr = api.StatusError{StatusCode: http.StatusInternalServerError, Type: api.ErrTypeInternal, Message: "internal server error"}
	}
	c.JSON(statusErr.StatusCode, api.NewErrorResponse(statusErr))
}

func requestID() string {
	return "fastllm-" + newUUID()
}

// writeConversionError renders an error from converting a wire request into
// the gateway's internal types. api.ValidateOptions already returns a
// properly typed api.StatusError with Param set; anything else, including
// the stop-sequence parser's errors, is a generic malformed-body error.
func writeConversionError(c *gin.Context, err error) {
	if statusErr, ok := err.(api.StatusError); ok {
		writeError(c, statusErr)
		return
	}
	writeError(c, api.ErrInvalidRequest("%v", err))
}
