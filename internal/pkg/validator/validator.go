package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// Korean mobile numbers, with or without hyphens: 010-1234-5678 / 01012345678.
var krPhonePattern = regexp.MustCompile(`^01[016789]-?\d{3,4}-?\d{4}$`)

func krPhone(fl validator.FieldLevel) bool {
	return krPhonePattern.MatchString(fl.Field().String())
}

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("krphone", krPhone)
}

// RegisterGinTags makes the custom tags usable in gin binding tags. Call it
// once before the router handles requests.
func RegisterGinTags() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("krphone", krPhone)
	}
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		errors[err.Field()] = err.Tag()
	}
	return errors
}
