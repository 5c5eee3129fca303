// Package schemavalidator holds the shared validator instance and the custom
// validation tags used by catalog configuration structs.
package schemavalidator

import (
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	v    *validator.Validate
	once sync.Once
)

// V returns the process wide validator with the custom tags registered.
func V() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterValidation("noSpaces", noSpacesValidator)
		v.RegisterValidation("locationURI", locationURIValidator)
		v.RegisterValidation("kerberosPrincipal", kerberosPrincipalValidator)
	})
	return v
}

var noSpacesRe = regexp.MustCompile(`^[^\s]+$`)

func noSpacesValidator(fl validator.FieldLevel) bool {
	return noSpacesRe.MatchString(fl.Field().String())
}

// locationURIValidator accepts absolute URIs with a scheme, and absolute local
// paths.
func locationURIValidator(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.HasPrefix(s, "/") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && (u.Host != "" || strings.HasPrefix(u.Path, "/"))
}

// primary[/instance]@REALM
var principalRe = regexp.MustCompile(`^[^/@\s]+(/[^/@\s]+)?@[^@\s]+$`)

func kerberosPrincipalValidator(fl validator.FieldLevel) bool {
	return principalRe.MatchString(fl.Field().String())
}

// ErrorMessage flattens validator errors into one readable line.
func ErrorMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	var parts []string
	for _, fe := range verrs {
		msg := fe.Field() + " failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}
