package binder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

func bindToStruct(v any, tagName string, values map[string][]string, bindErr error) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", bindErr)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a pointer to struct", bindErr)
	}
	return bindFields(rv, tagName, values, bindErr)
}

func bindFields(rv reflect.Value, tagName string, values map[string][]string, bindErr error) error {
	rt := rv.Type()
	for i := range rv.NumField() {
		field := rv.Field(i)
		sf := rt.Field(i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			if err := bindFields(field, tagName, values, bindErr); err != nil {
				return err
			}
			continue
		}
		if !field.CanSet() {
			continue
		}

		name, skip := fieldName(sf, tagName)
		if skip {
			continue
		}
		vals := values[name]
		if len(vals) == 0 {
			continue
		}
		if err := setValue(field, vals); err != nil {
			return fmt.Errorf("%w: field %s: %v", bindErr, sf.Name, err)
		}
	}
	return nil
}

func fieldName(sf reflect.StructField, tagName string) (string, bool) {
	tag := sf.Tag.Get(tagName)
	switch tag {
	case "":
		return strings.ToLower(sf.Name), false
	case "-":
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	return name, false
}

func setValue(field reflect.Value, vals []string) error {
	switch field.Kind() {
	case reflect.Pointer:
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return setValue(field.Elem(), vals)
	case reflect.Slice:
		slice := reflect.MakeSlice(field.Type(), len(vals), len(vals))
		for i, s := range vals {
			if err := setValue(slice.Index(i), []string{s}); err != nil {
				return err
			}
		}
		field.Set(slice)
		return nil
	}

	s := vals[0]
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := parseBool(s)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q", s)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q", s)
		}
		field.SetUint(n)
	default:
		return fmt.Errorf("unsupported type %s", field.Kind())
	}
	return nil
}

// parseBool accepts strconv forms plus the checkbox values "on" and "yes".
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes":
		return true, nil
	case "off", "no", "":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid bool value %q", s)
	}
	return b, nil
}
