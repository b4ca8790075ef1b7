// Package callable serves RPC-style functions. Each function is posted a
// {"data": ...} envelope and answers {"result": ...} or {"error": ...}.
package callable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/email"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/sms"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Status is a callable error code
type Status string

const (
	StatusInvalidArgument    Status = "INVALID_ARGUMENT"
	StatusFailedPrecondition Status = "FAILED_PRECONDITION"
	StatusNotFound           Status = "NOT_FOUND"
	StatusUnauthenticated    Status = "UNAUTHENTICATED"
	StatusPermissionDenied   Status = "PERMISSION_DENIED"
	StatusInternal           Status = "INTERNAL"
	StatusUnavailable        Status = "UNAVAILABLE"
)

var httpStatus = map[Status]int{
	StatusInvalidArgument:    http.StatusBadRequest,
	StatusFailedPrecondition: http.StatusBadRequest,
	StatusNotFound:           http.StatusNotFound,
	StatusUnauthenticated:    http.StatusUnauthorized,
	StatusPermissionDenied:   http.StatusForbidden,
	StatusInternal:           http.StatusInternalServerError,
	StatusUnavailable:        http.StatusServiceUnavailable,
}

// Error is a coded failure returned to the caller
type Error struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Status, e.Message) }

// Errorf builds a coded error
func Errorf(status Status, format string, args ...interface{}) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Func handles one callable function. data is the raw "data" member.
type Func func(ctx context.Context, data json.RawMessage) (interface{}, error)

type request struct {
	Data json.RawMessage `json:"data"`
}

// Handle adapts fn to the callable envelope
func Handle(name string, fn Func, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, Errorf(StatusInvalidArgument, "request body must be a JSON object with a data field"))
			return
		}
		if len(req.Data) == 0 || string(req.Data) == "null" {
			writeError(c, Errorf(StatusInvalidArgument, "data is required"))
			return
		}

		result, err := fn(c.Request.Context(), req.Data)
		if err != nil {
			coded := toError(err)
			entry := logger.WithFields(logrus.Fields{
				"function": name,
				"status":   coded.Status,
			}).WithError(err)
			if coded.Status == StatusInternal || coded.Status == StatusUnavailable {
				entry.Error("Callable function failed")
			} else {
				entry.Warn("Callable function rejected request")
			}
			writeError(c, coded)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}

// decode unmarshals data into v, reporting malformed input as INVALID_ARGUMENT
func decode(data json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return Errorf(StatusInvalidArgument, "invalid data: %v", err)
	}
	return nil
}

func toError(err error) *Error {
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		return Errorf(StatusInvalidArgument, "%s", verr.Error())
	}
	if errors.Is(err, email.ErrNotConfigured) || errors.Is(err, sms.ErrNotConfigured) {
		return Errorf(StatusFailedPrecondition, "%s", err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Errorf(StatusUnavailable, "request timed out")
	}
	return Errorf(StatusInternal, "%s", err.Error())
}

func writeError(c *gin.Context, e *Error) {
	code, ok := httpStatus[e.Status]
	if !ok {
		code = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(code, gin.H{"error": e})
}
