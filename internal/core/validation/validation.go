// Package validation wraps go-playground/validator and converts its errors
// into VALIDATION_ERROR application errors.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/types"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		Configure(instance)
	})
	return instance
}

// Configure reports json field names and registers the decimal rules
// dpos (> 0), dnonneg (>= 0), qty (fits NUMERIC(10,3) and is > 0) and
// pct (0 to 100, two places).
// It is also applied to gin's binding engine.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("dpos", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && d.IsPositive()
	})
	_ = v.RegisterValidation("qty", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && types.CheckQuantity(d) == nil
	})
	_ = v.RegisterValidation("pct", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && types.CheckPercent(d) == nil
	})
	_ = v.RegisterValidation("dnonneg", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && !d.IsNegative()
	})
}

// Struct validates s and returns an *apperror.AppError on failure.
func Struct(s any) error {
	return FromError(Validator().Struct(s))
}

// FromError converts validator errors into a validation AppError with one
// detail per failing field. Other errors are returned unchanged.
func FromError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	appErr := apperror.NewValidation("request validation failed")
	for _, fe := range verrs {
		appErr = appErr.WithDetail(fieldPath(fe), message(fe))
	}
	return appErr
}

// fieldPath drops the root struct name: "CreateInput.items[0].qty" -> "items[0].qty".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "unique":
		return "must not contain duplicates"
	case "dpos":
		return "must be greater than 0"
	case "qty":
		return "must be greater than 0, below 10000000 and have at most 3 decimal places"
	case "pct":
		return "must be between 0 and 100 with at most 2 decimal places"
	case "dnonneg":
		return "must not be negative"
	case "email":
		return "must be a valid email address"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
