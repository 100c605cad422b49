package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// envBinding ties one settable config field to the variable named by its env tag
type envBinding struct {
	name  string
	path  string
	field reflect.Value
}

// collectEnvBindings walks nested structs and returns every field carrying an env tag
func collectEnvBindings(v reflect.Value, prefix string) []envBinding {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var bindings []envBinding
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field, meta := v.Field(i), t.Field(i)
		path := prefix + meta.Name
		if field.Kind() == reflect.Struct && field.Type() != durationType {
			bindings = append(bindings, collectEnvBindings(field, path+".")...)
			continue
		}
		if name := meta.Tag.Get("env"); name != "" {
			bindings = append(bindings, envBinding{name: name, path: path, field: field})
		}
	}
	return bindings
}

// applyEnv overrides every tagged field whose variable is set
func applyEnv(target interface{}) error {
	for _, b := range collectEnvBindings(reflect.ValueOf(target), "") {
		raw, ok := os.LookupEnv(b.name)
		if !ok {
			continue
		}
		if err := assign(b.field, raw); err != nil {
			return fmt.Errorf("%s (%s): %w", b.name, b.path, err)
		}
	}
	return nil
}

// assign parses raw into field according to the field's type. Slices of
// strings are read as comma separated lists.
func assign(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.String:
		field.SetString(raw)

	case field.Kind() >= reflect.Int && field.Kind() <= reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		items := make([]string, 0)
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
