package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/orderflow/backend/internal/infrastructure/logger"
	"github.com/orderflow/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// Binding tags for decimal.Decimal fields
const (
	TagDecimalGT0  = "decimal_gt0"
	TagDecimalGTE0 = "decimal_gte0"
)

var decimalRules = map[string]func(decimal.Decimal) bool{
	TagDecimalGT0:  decimal.Decimal.IsPositive,
	TagDecimalGTE0: func(d decimal.Decimal) bool { return !d.IsNegative() },
}

// SetupValidator teaches gin's validator about decimal.Decimal and makes
// error fields use their json (or form) names
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	v.RegisterTagNameFunc(wireName)
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	var errs []error
	for tag, rule := range decimalRules {
		errs = append(errs, v.RegisterValidation(tag, decimalRule(rule)))
	}
	return errors.Join(errs...)
}

func wireName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		}
		return name
	}
	return ""
}

// decimalRule sees the string form registered by RegisterCustomTypeFunc
func decimalRule(rule func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && rule(d)
	}
}

// FormatValidationErrors turns a binding error into the validation envelope.
// Errors that are not field errors (malformed JSON) are reported on "body".
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		details = make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	case err != nil:
		details = []dto.ValidationDetail{{Field: "body", Message: err.Error()}}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError aborts with 400
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, c.GetString(logger.RequestIDKey)))
}

var fixedMessages = map[string]string{
	"required":     "This field is required",
	"uuid":         "Invalid UUID format",
	TagDecimalGT0:  "Must be a decimal greater than 0",
	TagDecimalGTE0: "Must be a decimal greater than or equal to 0",
}

var paramMessages = map[string]string{
	"oneof": "Must be one of: %s",
	"gt":    "Must be greater than %s",
	"gte":   "Must be greater than or equal to %s",
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fixedMessages[fe.Tag()]; ok {
		return msg
	}
	if format, ok := paramMessages[fe.Tag()]; ok {
		return fmt.Sprintf(format, fe.Param())
	}
	switch fe.Tag() {
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("Must be %s %s characters", bound, fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("Must contain %s %s entries", bound, fe.Param())
		}
		return fmt.Sprintf("Must be %s %s", bound, fe.Param())
	}
	return "Invalid value"
}
