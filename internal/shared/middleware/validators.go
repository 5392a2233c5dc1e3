package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	seatIDPattern    = regexp.MustCompile(`^[A-Za-z]{1,8}[0-9]{1,4}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:.]{8,128}$`)
)

// RegisterValidators adds the seatid and sessionid binding tags to gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("seatid", func(fl validator.FieldLevel) bool {
		return seatIDPattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("sessionid", func(fl validator.FieldLevel) bool {
		return sessionIDPattern.MatchString(fl.Field().String())
	})
}
