package middleware

import (
	"fmt"
	"log/slog"

	"github.com/gamassss/click-tracker/internal/logger"
	"github.com/gamassss/click-tracker/pkg/apperror"
	"github.com/gamassss/click-tracker/pkg/response"
	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into the standard internal error body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.FromContext(c.Request.Context()).Error("Handler panicked",
			slog.String("panic", fmt.Sprint(rec)),
			slog.String("path", c.Request.URL.Path),
		)
		response.Error(c, apperror.Internal(fmt.Errorf("panic: %v", rec), "An internal error occurred."))
	})
}
