package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"turfbook/pkg/model"
	"turfbook/pkg/upi"
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

type PaymentValidator struct {
	validate *validator.Validate
}

func NewPaymentValidator() *PaymentValidator {
	v := validator.New()

	_ = v.RegisterValidation("upiref", func(fl validator.FieldLevel) bool {
		return upi.IsValidTxnRef(fl.Field().String())
	})

	return &PaymentValidator{
		validate: v,
	}
}

func (v *PaymentValidator) Validate(payment *model.Payment) error {
	if err := v.validate.Struct(payment); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return nil
}

func (v *PaymentValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: err.Error(),
		})
	}

	return validationErrors
}
