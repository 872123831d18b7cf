package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"turfbook/pkg/model"
	"turfbook/pkg/timeutil"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

type TurfValidator struct {
	validate *validator.Validate
}

func NewTurfValidator() *TurfValidator {
	v := validator.New()

	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return timeutil.IsHHMM(fl.Field().String())
	})

	return &TurfValidator{
		validate: v,
	}
}

func (v *TurfValidator) Validate(turf *model.Turf) error {
	if err := v.validate.Struct(turf); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return v.validateOperatingHours(turf.OperatingHours)
}

func (v *TurfValidator) ValidateUpdate(updates *model.TurfUpdate) error {
	if err := v.validate.Struct(updates); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if updates.OperatingHours != nil {
		return v.validateOperatingHours(*updates.OperatingHours)
	}
	return nil
}

func (v *TurfValidator) validateOperatingHours(hours model.OperatingHours) error {
	open, err := timeutil.ParseMinutes(hours.Open)
	if err != nil {
		return ValidationErrors{{Field: "OperatingHours.Open", Message: "must be HH:MM"}}
	}
	closeAt, err := timeutil.ParseMinutes(hours.Close)
	if err != nil {
		return ValidationErrors{{Field: "OperatingHours.Close", Message: "must be HH:MM"}}
	}
	if closeAt <= open {
		return ValidationErrors{{Field: "OperatingHours", Message: "close time must be after open time"}}
	}
	return nil
}

func (v *TurfValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: err.Error(),
		})
	}

	return validationErrors
}
