package realtime

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// check validates v and converts the first failure into a ValidationError.
func check(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		reason := "failed " + f.Tag()
		if f.Param() != "" {
			reason += "=" + f.Param()
		}
		return &ValidationError{Field: toSnake(f.Field()), Reason: reason}
	}
	return &ValidationError{Field: "input", Reason: err.Error()}
}

func toSnake(s string) string {
	var b strings.Builder
	lower := false
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			if lower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
			lower = false
		} else {
			lower = true
		}
		b.WriteRune(r)
	}
	return b.String()
}
