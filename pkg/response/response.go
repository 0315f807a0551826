package response

import (
	"net/http"

	"github.com/gamassss/click-tracker/pkg/apperror"
	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func JSON(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

func Error(c *gin.Context, err error) {
	appErr := apperror.From(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(appErr.Status, ErrorResponse{
		Error: ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}

func ValidationErrors(c *gin.Context, errors []ValidationError) {
	message := "Invalid request body."
	if len(errors) > 0 {
		message = errors[0].Message
	}
	Error(c, apperror.BadRequest("%s", message))
}

func BadRequest(c *gin.Context, message string) {
	Error(c, apperror.BadRequest("%s", message))
}

func NotFound(c *gin.Context, message string) {
	Error(c, apperror.NotFound("%s", message))
}
