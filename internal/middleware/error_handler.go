package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/The-Nikhil-Pandey/clinxchat-api/pkg/errors"
)

// ErrorHandler maps tagged service errors collected on the context into a
// single JSON error response with the right status code.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		body := gin.H{
			"error": err.Error(),
			"code":  apperrors.KindOf(err).String(),
		}
		var appErr *apperrors.Error
		if apperrors.As(err, &appErr) && appErr.Kind == apperrors.KindCapacity {
			body["current"] = appErr.Current
			body["limit"] = appErr.Limit
		}
		c.JSON(apperrors.HTTPStatusFromError(err), body)
	}
}
