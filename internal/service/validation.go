package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var inputValidator = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validateInput runs struct tag validation and reports every failing field
func validateInput(input interface{}) error {
	err := inputValidator.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return newDomainError(ErrInvalidInput, Problem{Code: ProblemInvalidField, Message: err.Error()})
	}
	problems := make([]Problem, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fieldPath(fe.Namespace())
		problems = append(problems, Problem{
			Code:    ProblemInvalidField,
			Field:   field,
			Message: fmt.Sprintf("%s failed %s", field, describeTag(fe)),
		})
	}
	return newDomainError(ErrInvalidInput, problems...)
}

// fieldPath drops the struct name: CreateOrderInput.items[0].product_id -> items[0].product_id
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
