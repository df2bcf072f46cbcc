package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Harborview-Hotels/service-booking/internal/platform/domain"
)

// envelope is the standard JSON response shape.
type envelope struct {
	Data  interface{} `json:"data,omitempty"`
	Error *errBody    `json:"error,omitempty"`
	Meta  *meta       `json:"meta,omitempty"`
}

type errBody struct {
	Message   string                 `json:"message"`
	Conflicts []domain.BookingWindow `json:"conflicts,omitempty"`
}

type meta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Success writes a 200 response with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Data: data})
}

// Created writes a 201 response with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Data: data})
}

// Paginated writes a 200 response with items and paging metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, envelope{
		Data: items,
		Meta: &meta{Total: total, Page: page, Limit: limit},
	})
}

// BadRequest writes a 400 response with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{Error: &errBody{Message: message}})
}

// Error maps a domain error to the appropriate HTTP status. Unrecognized
// errors become opaque 500s; the concrete failure stays in the server log.
func Error(c *gin.Context, err error) {
	var (
		validation    *domain.ValidationError
		conflict      *domain.ConflictError
		transition    *domain.InvalidTransitionError
		notCancelable *domain.NotCancellableError
		notFound      *domain.NotFoundError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, envelope{Error: &errBody{Message: validation.Message}})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, envelope{Error: &errBody{
			Message:   conflict.Message,
			Conflicts: conflict.Windows,
		}})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, envelope{Error: &errBody{Message: transition.Error()}})
	case errors.As(err, &notCancelable):
		c.JSON(http.StatusConflict, envelope{Error: &errBody{Message: notCancelable.Reason}})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, envelope{Error: &errBody{Message: notFound.Error()}})
	default:
		c.JSON(http.StatusInternalServerError, envelope{Error: &errBody{Message: "internal server error"}})
	}
}
