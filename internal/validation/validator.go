// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/basketrec/internal/recommend/candidate"
)

// CodeValidationError is the API error code for rejected input.
const CodeValidationError = "VALIDATION_ERROR"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one rejected field. Field uses the json name, with an index
// suffix for slice elements ("basket[3]").
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Value   any
	Message string
}

// RequestValidationError collects every FieldError of one struct.
type RequestValidationError struct {
	Fields []FieldError
}

// Error joins the field messages.
func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.Fields))
	for i := range ve.Fields {
		messages[i] = ve.Fields[i].Message
	}
	return strings.Join(messages, "; ")
}

// APIError mirrors models.APIError to avoid an import cycle.
type APIError struct {
	Code    string
	Message string
	Details map[string]any
}

// ToAPIError renders the errors in the VALIDATION_ERROR format. A single
// error puts field, tag and value in Details; several errors list them under
// "fields".
func (ve *RequestValidationError) ToAPIError() *APIError {
	switch len(ve.Fields) {
	case 0:
		return &APIError{Code: CodeValidationError, Message: "Validation failed"}
	case 1:
		fe := ve.Fields[0]
		return &APIError{
			Code:    CodeValidationError,
			Message: fe.Message,
			Details: map[string]any{"field": fe.Field, "tag": fe.Tag, "value": fe.Value},
		}
	}

	fields := make([]map[string]any, len(ve.Fields))
	for i, fe := range ve.Fields {
		fields[i] = map[string]any{"field": fe.Field, "tag": fe.Tag, "message": fe.Message}
	}
	return &APIError{
		Code:    CodeValidationError,
		Message: ve.Error(),
		Details: map[string]any{"fields": fields},
	}
}

// GetValidator returns the shared validator with the custom tags registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		if err := validate.RegisterValidation("time_bucket", func(fl validator.FieldLevel) bool {
			return candidate.ValidTimeBucket(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register time_bucket validator: %v", err))
		}
	})
	return validate
}

// ValidateStruct validates s and returns nil or the collected field errors.
// Input that is not a struct yields a single error on field "unknown".
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &RequestValidationError{Fields: make([]FieldError, len(fieldErrs))}
	for i, fe := range fieldErrs {
		out.Fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: message(fe),
		}
	}
	return out
}

var comparisons = map[string]string{
	"gt":  "greater than",
	"gte": "greater than or equal to",
	"lt":  "less than",
	"lte": "less than or equal to",
}

func message(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch tag := fe.Tag(); tag {
	case "required":
		return field + " is required"
	case "time_bucket":
		return field + " must be one of: " + strings.Join(candidate.TimeBuckets, ", ")
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "unique":
		return field + " must not contain duplicates"
	case "min", "max":
		bound := "at least"
		if tag == "max" {
			bound = "at most"
		}
		return fmt.Sprintf("%s must be %s %s%s", field, bound, param, unit(fe.Kind()))
	default:
		if cmp, ok := comparisons[tag]; ok {
			return fmt.Sprintf("%s must be %s %s", field, cmp, param)
		}
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

func unit(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	default:
		return ""
	}
}
