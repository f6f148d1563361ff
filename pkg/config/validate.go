package config

import (
	"fmt"
	"strings"
)

// OneOf returns an error when value, compared case-insensitively, is not
// among the allowed values. The name is used verbatim in the error so
// callers control how the field is reported.
func OneOf(name, value string, allowed ...string) error {
	lowered := strings.ToLower(value)
	for _, candidate := range allowed {
		if lowered == candidate {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of [%s], got %q", name, strings.Join(allowed, ", "), value)
}
