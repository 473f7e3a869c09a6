package validation

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ClockLayouts are the accepted time of day formats, the first is canonical
var ClockLayouts = []string{"15:04:05", "15:04"}

// New returns a validator that reports fields by their `label` tag and knows
// the "clock" rule for time of day strings.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, ok := ParseClock(fl.Field().String())
		return ok
	})
	return v
}

// ParseClock parses a time of day in any of ClockLayouts
func ParseClock(s string) (time.Time, bool) {
	for _, layout := range ClockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Message turns a validation failure into the client facing text. Missing
// fields are listed together, other failures name the first bad field.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}

	var missing []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
	}
	if len(missing) > 0 {
		return "Missing required fields: " + strings.Join(missing, ", ")
	}
	return "Invalid " + verrs[0].Field()
}
