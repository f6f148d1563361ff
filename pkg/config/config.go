// Package config loads configuration structs from a YAML file overlaid
// with environment variables, driven by the env, yaml and default struct
// tags. The environment always wins over the file, and defaults fill
// whatever is still unset afterwards.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Validator lets a config struct attach its own validation. When the
// loaded type implements it, Validate runs after loading completes.
type Validator interface {
	Validate() error
}

// GetConfigFromEnvVars fills dest from environment variables and default
// tags alone.
func GetConfigFromEnvVars[T any](dest *T) error {
	val := reflect.ValueOf(dest).Elem()

	overridden := make(map[string]bool)
	if err := applyEnv(val, val.Type(), overridden); err != nil {
		return err
	}
	if err := applyDefaults(val, val.Type(), overridden); err != nil {
		var zero T
		*dest = zero
		return err
	}

	if validator, ok := any(*dest).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// GetConfig loads dest from the YAML file at filepath, then overlays
// environment variables. An empty filepath skips the file entirely. With
// allowFileErrors, an unreadable or malformed file degrades to loading
// from the environment alone.
func GetConfig[T any](dest *T, filepath string, allowFileErrors bool) error {
	if filepath != "" {
		data, err := os.ReadFile(filepath)
		if err != nil {
			if !allowFileErrors {
				return fmt.Errorf("failed to read file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, dest); err != nil {
			if !allowFileErrors {
				return fmt.Errorf("failed to unmarshal YAML: %w", err)
			}
		}
	}
	return GetConfigFromEnvVars(dest)
}

// applyEnv walks the struct and assigns every field whose env variable is
// set, recording which fields came from the environment so a later default
// never clobbers an explicit zero.
func applyEnv(val reflect.Value, typ reflect.Type, overridden map[string]bool) error {
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, fieldType.Type, overridden); err != nil {
				return err
			}
			continue
		}

		name := fieldType.Tag.Get("env")
		if name == "" {
			continue
		}
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		if err := setScalar(field, raw); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
		overridden[typ.Name()+"."+fieldType.Name] = true
	}
	return nil
}

// applyDefaults fills fields that are still zero and were not set from the
// environment. Bad default tags are collected rather than aborting the walk.
func applyDefaults(val reflect.Value, typ reflect.Type, overridden map[string]bool) error {
	var result error
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyDefaults(field, fieldType.Type, overridden); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}

		raw := fieldType.Tag.Get("default")
		if raw == "" || !field.IsZero() || overridden[typ.Name()+"."+fieldType.Name] {
			continue
		}
		if err := setScalar(field, raw); err != nil {
			result = multierror.Append(result, fmt.Errorf("default for %s: %w", fieldType.Name, err))
		}
	}
	return result
}

// setScalar assigns a string value to a config field. Only the scalar
// kinds the engine's config structs use are supported.
func setScalar(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		duration, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		field.SetInt(int64(duration))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", raw, err)
		}
		field.SetInt(value)
	case reflect.Float64:
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", raw, err)
		}
		field.SetFloat(value)
	case reflect.Bool:
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", raw, err)
		}
		field.SetBool(value)
	default:
		return fmt.Errorf("unsupported config field kind %s", field.Kind())
	}
	return nil
}
