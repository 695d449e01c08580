package handler

import (
	"errors"
	"net/http"

	"billing-backend/internal/billing"
	"billing-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// statusFor maps service errors onto HTTP statuses through the billing
// sentinels.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, billing.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, billing.ErrOverpayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, billing.ErrInvalidTransition),
		errors.Is(err, billing.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, billing.ErrIntegrity):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func abortWith(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, response.Error(status, err.Error()))
}

func currentUserID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	id, _ := userID.(string)
	return id
}
