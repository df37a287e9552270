package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	errs "youcube/errors"

	"github.com/go-playground/validator/v10"
)

// Typed requests are built once the Schema accepted the raw message.
// Value constraints are expressed as validator tags.

type GetChunkRequest struct {
	ChunkIndex int64  `json:"chunkindex" validate:"gte=0"`
	ID         string `json:"id"`
}

type GetVidRequest struct {
	Tracker int64  `json:"tracker" validate:"gte=0"`
	ID      string `json:"id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type RequestMediaRequest struct {
	URL    string `json:"url" validate:"required,max=2048"`
	Width  *int   `json:"width" validate:"omitempty,gt=0"`
	Height *int   `json:"height" validate:"omitempty,gt=0"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest reports the first violated constraint in field order.
func validateRequest(v *validator.Validate, request any) error {
	err := v.Struct(request)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}
	fe := validationErrors[0]
	return fmt.Errorf("%w: %s", errs.ErrInvalidField, describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be a non-negative int", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be a positive int", fe.Field())
	case "required":
		return fmt.Sprintf("%s must not be empty", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
