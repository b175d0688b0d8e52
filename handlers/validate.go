package handlers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Ceasar-x/sschool/models"
	"github.com/go-playground/validator/v10"
)

const maxPasswordBytes = 72

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	rules := map[string]validator.Func{
		"schoolemail": func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		},
		// bcrypt rejects inputs longer than maxPasswordBytes.
		"passwordmax": func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= maxPasswordBytes
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

// tagMessages maps a failed validator tag to the message shown to the caller.
// Tags are checked in ruleOrder so that "required" wins over format checks
// regardless of struct field order.
type tagMessages map[string]string

var ruleOrder = []string{"required", "schoolemail", "min", "passwordmax", "oneof"}

const (
	msgInvalidEmail  = "Please provide a valid email address"
	msgShortPassword = "Password must be at least 6 characters long"
	msgLongPassword  = "Password must be at most 72 bytes long"
	msgInvalidRole   = "Role must be either student or admin"
)

func validateRequest(req any, msgs tagMessages) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, tag := range ruleOrder {
		for _, fe := range fieldErrs {
			if fe.Tag() == tag {
				if msg, ok := msgs[tag]; ok {
					return models.NewValidationError(msg)
				}
			}
		}
	}
	return models.NewValidationError("Invalid request")
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// trimOrDrop trims *p and clears p when nothing is left.
func trimOrDrop(p **string) {
	if *p == nil {
		return
	}
	v := strings.TrimSpace(**p)
	if v == "" {
		*p = nil
		return
	}
	*p = &v
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
