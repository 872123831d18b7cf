package validator

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"turfbook/pkg/model"
	"turfbook/pkg/timeutil"
)

var bookingRefRegex = regexp.MustCompile(`^SB\d{10}$`)

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

type BookingValidator struct {
	validate *validator.Validate
}

func NewBookingValidator() *BookingValidator {
	v := validator.New()

	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return timeutil.IsHHMM(fl.Field().String())
	})
	_ = v.RegisterValidation("bookingref", func(fl validator.FieldLevel) bool {
		return bookingRefRegex.MatchString(fl.Field().String())
	})

	return &BookingValidator{
		validate: v,
	}
}

func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: err.Error(),
		})
	}

	return validationErrors
}
