package model

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// The role binding tag accepts any self-registrable role. Admin accounts are
// provisioned out of band, never through the register endpoint.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			r := Role(fl.Field().String())
			return r.Valid() && r != RoleAdmin
		})
	}
}
