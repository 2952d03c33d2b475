package config

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Validate checks struct tag constraints (required fields, enums, URL
// shape) across the whole configuration tree.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
