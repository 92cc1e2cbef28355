package service

import (
	"reflect"
	"strings"

	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their json names and knows the article categories
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("category", ValidateCategory)
	return v
}

// ValidateCategory accepts only known article categories
func ValidateCategory(fl validator.FieldLevel) bool {
	return models.Category(fl.Field().String()).Valid()
}
