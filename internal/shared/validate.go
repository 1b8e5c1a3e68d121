package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the process wide validator with the custom tags registered.
//
//	jdate    Jalali "YYYY/MM/DD" string
//	dgte=N   decimal.Decimal >= N
//	dgt=N    decimal.Decimal > N
//	dlte=N   decimal.Decimal <= N
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
		_ = v.RegisterValidation("jdate", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true
			}
			_, err := ParseDate(s)
			return err == nil
		})
		_ = v.RegisterValidation("dgte", decimalRule(func(d, bound decimal.Decimal) bool { return d.GreaterThanOrEqual(bound) }))
		_ = v.RegisterValidation("dgt", decimalRule(func(d, bound decimal.Decimal) bool { return d.GreaterThan(bound) }))
		_ = v.RegisterValidation("dlte", decimalRule(func(d, bound decimal.Decimal) bool { return d.LessThanOrEqual(bound) }))
		validate = v
	})
	return validate
}

// decimalValue exposes decimals to the validator as their string form; a null
// NullDecimal becomes "" and passes every decimal rule.
func decimalValue(field reflect.Value) any {
	switch v := field.Interface().(type) {
	case decimal.Decimal:
		return v.String()
	case decimal.NullDecimal:
		if !v.Valid {
			return ""
		}
		return v.Decimal.String()
	}
	return nil
}

func decimalRule(cmp func(d, bound decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		if raw == "" {
			return true
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return cmp(d, bound)
	}
}

// ValidateStruct runs tag validation and converts failures into ValidationErrors.
func ValidateStruct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("", err.Error())
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, NewValidationError(fieldPath(fe), describe(fe)))
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("needs at least %s entries", fe.Param())
	case "jdate":
		return "must be a YYYY/MM/DD date"
	case "dgte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "dgt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "dlte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
