package services

import (
	"github.com/go-playground/validator/v10"
)

// validate is the shared struct validator for service inputs.
var validate = validator.New()
