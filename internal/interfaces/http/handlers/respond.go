package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/xcybeamer/storefront-backend/internal/domain/checkout"
	"github.com/xcybeamer/storefront-backend/internal/domain/license"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

// RegisterValidators adds the storefront's custom binding tags to v
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("key_type", func(fl validator.FieldLevel) bool {
		_, err := license.ParseKeyType(fl.Field().String())
		return err == nil
	})
}

// respondError writes err as {"error", "code"} with the status of its code.
// Errors that are not application errors are hidden behind a 500.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	appErr := apperror.As(err)
	if appErr == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": apperror.MetadataFor(apperror.CodeInternal).PublicMessage,
			"code":  apperror.CodeInternal,
		})
		return
	}

	body := gin.H{
		"error": appErr.PublicMessage(),
		"code":  appErr.Code(),
	}
	if oos, ok := checkout.AsOutOfStock(err); ok {
		body["error"] = oos.Error()
		body["product_id"] = oos.ProductID
	}

	c.JSON(apperror.MetadataFor(appErr.Code()).HTTPStatus, body)
}

// respondBindError reports a malformed request body
func respondBindError(c *gin.Context, err error) {
	_ = c.Error(err)

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "Request body too large",
			"code":  apperror.CodeValidation,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"code":    apperror.CodeValidation,
		"details": err.Error(),
	})
}
