package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SignUpRequest is the validated input of a registration.
type SignUpRequest struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=8,max=72"`
	DisplayName string `validate:"required,min=1,max=64"`
}

// SignInRequest is the validated input of a login.
type SignInRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// ProfileUpdate carries the optional fields of a profile update; nil means
// unchanged. An empty AvatarURL or Bio clears the field.
type ProfileUpdate struct {
	DisplayName *string `validate:"omitnil,min=1,max=64"`
	Username    *string `validate:"omitnil,min=3,max=32,alphanum_dot"`
	AvatarURL   *string `validate:"omitnil,max=2048,eq=|url"`
	Bio         *string `validate:"omitnil,max=280"`
}

// NameInput validates a group or channel name.
type NameInput struct {
	Name string `validate:"required,max=64"`
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.DisplayName == nil && p.Username == nil && p.AvatarURL == nil && p.Bio == nil
}

func init() {
	_ = validate.RegisterValidation("alphanum_dot", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			default:
				return false
			}
		}
		return true
	})
}

// FieldErrors maps a field name to a short reason. It is returned for
// validation failures so callers can render inline feedback.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for field, reason := range f {
		parts = append(parts, field+": "+reason)
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// Validate checks v against its struct tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = reason(fe)
	}
	return out
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url", "eq=|url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "alphanum_dot":
		return "may only contain lowercase letters, digits, '_' and '.'"
	default:
		return "is invalid"
	}
}
