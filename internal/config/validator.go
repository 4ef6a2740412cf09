// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load()` calls `validateStruct` immediately after it unmarshals the merged
// Koanf tree.  Any tag mismatch or validation error aborts startup, so the
// binary never runs with partial or malformed configuration.
//
// Field tags cover the simple bounds.  Cross-field rules live here as
// struct-level validators:
//
//   • forms.enabled requires forms.schema_url.
//   • database.max_idle must not exceed database.max_open.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(formsRules, Forms{})
	val.RegisterStructValidation(databaseRules, Database{})
	return val
}

func formsRules(sl validator.StructLevel) {
	f := sl.Current().Interface().(Forms)
	if f.Enabled && f.SchemaURL == "" {
		sl.ReportError(f.SchemaURL, "SchemaURL", "schema_url", "required_with_enabled", "")
	}
}

func databaseRules(sl validator.StructLevel) {
	d := sl.Current().Interface().(Database)
	if d.MaxIdle > d.MaxOpen {
		sl.ReportError(d.MaxIdle, "MaxIdle", "max_idle", "ltefield_max_open", "")
	}
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
