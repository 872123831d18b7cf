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

type SlotValidator struct {
	validate *validator.Validate
}

func NewSlotValidator() *SlotValidator {
	v := validator.New()

	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return timeutil.IsHHMM(fl.Field().String())
	})

	return &SlotValidator{
		validate: v,
	}
}

func (v *SlotValidator) Validate(slot *model.Slot) error {
	if err := v.validate.Struct(slot); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	start, err := timeutil.ParseMinutes(slot.StartTime)
	if err != nil {
		return ValidationErrors{{Field: "StartTime", Message: "must be HH:MM"}}
	}
	end, err := timeutil.ParseMinutes(slot.EndTime)
	if err != nil {
		return ValidationErrors{{Field: "EndTime", Message: "must be HH:MM"}}
	}
	if end <= start {
		return ValidationErrors{{Field: "EndTime", Message: "must be after start time"}}
	}

	return nil
}

func (v *SlotValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: err.Error(),
		})
	}

	return validationErrors
}
