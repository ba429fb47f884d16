package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a validator with the portal's custom tags registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// notblank rejects strings that are empty once surrounding whitespace is
	// trimmed. "required" alone accepts "   ".
	v.RegisterValidation("notblank", notBlank)

	// report json field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return v
}

func notBlank(fl validatorv10.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}
