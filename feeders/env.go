package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// PrefixedEnvFeeder reads environment variables named <PREFIX>_<env tag>.
// Nested structs are walked; fields without an env tag are left untouched.
type PrefixedEnvFeeder struct {
	Prefix string
	lookup func(string) (string, bool)
}

// NewPrefixedEnvFeeder creates a feeder reading <prefix>_* variables.
func NewPrefixedEnvFeeder(prefix string) PrefixedEnvFeeder {
	return PrefixedEnvFeeder{Prefix: prefix, lookup: os.LookupEnv}
}

// WithLookup returns a copy reading variables through lookup instead of the
// process environment.
func (f PrefixedEnvFeeder) WithLookup(lookup func(string) (string, bool)) PrefixedEnvFeeder {
	f.lookup = lookup
	return f
}

// Feed populates structure, which must be a pointer to a struct.
func (f PrefixedEnvFeeder) Feed(structure interface{}) error {
	if strings.TrimSpace(f.Prefix) == "" {
		return ErrEnvEmptyPrefix
	}
	inputType := reflect.TypeOf(structure)
	if inputType == nil || inputType.Kind() != reflect.Ptr || inputType.Elem().Kind() != reflect.Struct {
		return ErrEnvInvalidStructure
	}
	lookup := f.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return processStructFields(reflect.ValueOf(structure).Elem(), strings.ToUpper(f.Prefix), lookup)
}

// processStructFields iterates through struct fields
func processStructFields(rv reflect.Value, prefix string, lookup func(string) (string, bool)) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)
		if !fieldType.IsExported() {
			continue
		}

		if err := processField(field, &fieldType, prefix, lookup); err != nil {
			return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

// processField handles a single struct field
func processField(field reflect.Value, fieldType *reflect.StructField, prefix string, lookup func(string) (string, bool)) error {
	envTag, hasTag := fieldType.Tag.Lookup("env")

	switch field.Kind() {
	case reflect.Struct:
		if !hasTag {
			return processStructFields(field, prefix, lookup)
		}
	case reflect.Pointer:
		if !field.IsZero() && field.Elem().Kind() == reflect.Struct {
			return processStructFields(field.Elem(), prefix, lookup)
		}
		return nil
	case reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return nil
	}

	if !hasTag {
		return nil
	}
	name := prefix + "_" + strings.ToUpper(envTag)
	value, ok := lookup(name)
	if !ok || value == "" {
		return nil
	}
	return setFieldValue(field, value)
}

// setFieldValue converts and sets a field value
func setFieldValue(field reflect.Value, strValue string) error {
	if !field.CanSet() {
		return ErrEnvFieldCannotBeSet
	}

	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String {
		parts := strings.Split(strValue, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
		return nil
	}

	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(strValue)
		if err != nil {
			return fmt.Errorf("cannot convert value to duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	convertedValue, err := cast.FromType(strValue, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
	}

	field.Set(reflect.ValueOf(convertedValue).Convert(field.Type()))
	return nil
}
