package response

import (
	"errors"

	"ticketing/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError writes err using the status and code of the error taxonomy.
// Typed errors contribute their payload so clients can re-render seat maps
// or show the missing credit amount.
func RespondError(c *gin.Context, message string, err error) {
	code := apperrors.HTTPStatus(err)
	detail := ErrorDetail{Code: apperrors.Code(err), Message: err.Error()}

	var unavailable *apperrors.SeatUnavailableError
	var expired *apperrors.HoldExpiredError
	var credits *apperrors.InsufficientCreditsError
	var inconsistency *apperrors.InventoryInconsistencyError
	switch {
	case errors.As(err, &unavailable):
		detail.Seats = unavailable.Seats
	case errors.As(err, &expired):
		detail.Seats = expired.Seats
	case errors.As(err, &credits):
		detail.Required = &credits.Required
		detail.Available = &credits.Available
	case errors.As(err, &inconsistency):
		detail.Seats = inconsistency.MissingSeats
	}

	if code >= 500 {
		// internal details stay in the logs
		detail.Message = message
	}

	RespondJSON(c, "error", code, message, nil, detail)
}
