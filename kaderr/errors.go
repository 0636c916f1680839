// Package kaderr holds error types shared across packages.
package kaderr

import "fmt"

// ConfigurationError is returned when a component's configuration is invalid.
type ConfigurationError struct {
	Component string
	Err       error
}

var _ error = (*ConfigurationError)(nil)

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("configuration error: %s", e.Component)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Component, e.Err.Error())
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
