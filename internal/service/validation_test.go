package service

import (
	"errors"
	"testing"
)

type validationSample struct {
	CustomerID uint   `json:"customer_id" validate:"required"`
	Method     string `json:"method" validate:"omitempty,oneof=cash transfer"`
	Items      []struct {
		ProductID uint `json:"product_id" validate:"required"`
	} `json:"items" validate:"required,min=1,dive"`
}

func TestValidateInputCollectsEveryField(t *testing.T) {
	sample := validationSample{Method: "barter"}
	err := validateInput(sample)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want invalid input got %v", err)
	}
	problems := ProblemsOf(err)
	fields := map[string]bool{}
	for _, p := range problems {
		fields[p.Field] = true
	}
	for _, want := range []string{"customer_id", "method", "items"} {
		if !fields[want] {
			t.Fatalf("missing problem for %s: %+v", want, problems)
		}
	}
}

func TestValidateInputNestedPath(t *testing.T) {
	sample := validationSample{CustomerID: 1}
	sample.Items = append(sample.Items, struct {
		ProductID uint `json:"product_id" validate:"required"`
	}{})
	problems := ProblemsOf(validateInput(sample))
	if len(problems) != 1 || problems[0].Field != "items[0].product_id" {
		t.Fatalf("unexpected problems: %+v", problems)
	}
}
