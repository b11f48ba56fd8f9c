package entities

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/tansive/restspec/internal/common/apperrors"
)

// ErrInvalidEntity is returned by the Validate methods.
var ErrInvalidEntity apperrors.Error = apperrors.New("invalid entity")

var (
	entityValidator *validator.Validate
	validatorOnce   sync.Once
)

// V returns the validator shared by all entities.
func V() *validator.Validate {
	validatorOnce.Do(func() {
		entityValidator = validator.New(validator.WithRequiredStructEnabled())
		entityValidator.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return entityValidator
}

func validateStruct(v any) error {
	err := V().Struct(v)
	if err == nil {
		return nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag()))
		}
	}
	return ErrInvalidEntity.Msg(strings.Join(msgs, "; "))
}
