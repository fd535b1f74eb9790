package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-appimages/internal/api/shared/errors"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, errors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, errors.NewNotFoundError(message, details...))
}

// respondPayloadTooLarge responds with a payload too large error
func respondPayloadTooLarge(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusRequestEntityTooLarge, errors.NewPayloadTooLargeError(message, details...))
}

// respondUnsupportedMediaType responds with an unsupported media type error
func respondUnsupportedMediaType(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusUnsupportedMediaType, errors.NewUnsupportedMediaTypeError(message, details...))
}

// respondRenditionError responds with an unprocessable entity error
func respondRenditionError(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusUnprocessableEntity, errors.NewRenditionError(message, details...))
}

// respondTimeout responds with a gateway timeout error
func respondTimeout(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusGatewayTimeout, errors.NewTimeoutError(message, details...))
}

// respondInternalError responds with an internal server error
func respondInternalError(c *gin.Context, err error, message string, details ...string) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, errors.NewInternalError(message, details...))
}
