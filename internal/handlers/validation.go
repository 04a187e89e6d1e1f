package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/response"
	appValidator "github.com/charlesng35/catalogadmin/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When binding or validation fails an error response is written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	if err := validateRequest(dest); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

// validateRequest runs the struct rules of dest and converts failures into a
// field-keyed validation error.
func validateRequest(dest any) error {
	err := appValidator.ValidateStruct(dest)
	if err == nil {
		return nil
	}
	var failures appValidator.ValidationErrors
	if errors.As(err, &failures) {
		return appErrors.NewValidation(failures.Fields())
	}
	return appErrors.NewBadRequest("invalid request payload")
}

// checkLimits runs the struct rules of limits and merges failures into fields.
func checkLimits(fields appErrors.FieldErrors, limits any) {
	err := appValidator.ValidateStruct(limits)
	if err == nil {
		return
	}
	var failures appValidator.ValidationErrors
	if !errors.As(err, &failures) {
		fields.Add("payload", "The payload is invalid.")
		return
	}
	for field, messages := range failures.Fields() {
		for _, message := range messages {
			fields.Add(field, message)
		}
	}
}
