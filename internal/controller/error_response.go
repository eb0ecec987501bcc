package controller

import (
	"net/http"

	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the body sent to the client when an operation fails.
type ErrorResponse struct {
	Kind    errorcode.Kind `json:"kind"`
	Message string         `json:"message"`
	Details []string       `json:"details,omitempty"`
}

// NewErrorResponse converts an error into a response body. Unclassified errors are reported as internal errors.
func NewErrorResponse(err error) *ErrorResponse {
	if e, ok := errorcode.As(err); ok {
		return &ErrorResponse{Kind: e.Kind, Message: err.Error(), Details: e.Details}
	}

	return &ErrorResponse{Kind: errorcode.KindInternal, Message: err.Error()}
}

// HTTPStatusOf maps an error kind to an HTTP status code.
func HTTPStatusOf(kind errorcode.Kind) int {
	switch kind {
	case errorcode.KindBadRequest:
		return http.StatusBadRequest
	case errorcode.KindEnrollment:
		return http.StatusUnauthorized
	case errorcode.KindNotFound:
		return http.StatusNotFound
	case errorcode.KindRegistration:
		return http.StatusConflict
	case errorcode.KindEndorsement, errorcode.KindCommit, errorcode.KindConfigTranslation:
		return http.StatusBadGateway
	case errorcode.KindSubprocessTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	resp := NewErrorResponse(err)
	status := HTTPStatusOf(resp.Kind)
	if status >= http.StatusInternalServerError {
		log.Errorf("%v %v: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	c.AbortWithStatusJSON(status, resp)
}

func abortWithParameterErrors(c *gin.Context, pel *ParameterErrorList) {
	c.AbortWithStatusJSON(http.StatusBadRequest, &ErrorResponse{
		Kind:    errorcode.KindBadRequest,
		Message: "参数不合法",
		Details: *pel,
	})
}
