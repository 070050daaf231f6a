package finance

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/academy/backend/internal/domain/finance"
	"github.com/academy/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RegisterValidations adds the finance-specific tags to v:
//
//	decimal_gt0   decimal.Decimal strictly greater than zero
//	decimal_gte0  decimal.Decimal not negative
//	bill_status   a known BillStatus
//	recurrence    a known Recurrence
//	bill_type     a known BillType
//	delete_scope  a known DeletionScope
func RegisterValidations(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	rules := map[string]validator.Func{
		"decimal_gt0": func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && d.IsPositive()
		},
		"decimal_gte0": func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && !d.IsNegative()
		},
		"bill_status": func(fl validator.FieldLevel) bool {
			return finance.BillStatus(fl.Field().String()).IsValid()
		},
		"recurrence": func(fl validator.FieldLevel) bool {
			return finance.Recurrence(fl.Field().String()).IsValid()
		},
		"bill_type": func(fl validator.FieldLevel) bool {
			return finance.BillType(fl.Field().String()).IsValid()
		},
		"delete_scope": func(fl validator.FieldLevel) bool {
			return finance.DeletionScope(fl.Field().String()).IsValid()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// NewValidator returns a validator that reports json field names and knows
// the finance tags
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := RegisterValidations(v); err != nil {
		// tags are static; a failure here is a programming error
		panic(err)
	}
	return v
}

// validationError converts validator output into a VALIDATION_ERROR
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.WrapDomainError(shared.CodeValidation, "invalid request", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return shared.NewValidationError(strings.Join(msgs, "; "))
}
