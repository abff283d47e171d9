package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// DecodeFields copies cell values into the struct pointed to by target.
// Struct fields are matched by their json tag, which should carry the
// Airtable field name ("Due date"). Cell values are coerced where the
// column type and the Go type drift apart: numbers, booleans and lookups
// become strings for string fields, and numeric strings become numbers for
// numeric fields.
func DecodeFields(fields map[string]any, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}
	if rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode target must point to a struct, got %T", target)
	}
	coerced := coerceObject(fields, rv.Elem().Type())
	data, err := json.Marshal(coerced)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func coerceObject(values map[string]any, structType reflect.Type) map[string]any {
	out := make(map[string]any, len(values))
	for name, value := range values {
		field, ok := fieldByTag(structType, name)
		if !ok {
			out[name] = value
			continue
		}
		out[name] = coerce(value, field.Type)
	}
	return out
}

func coerce(value any, target reflect.Type) any {
	if value == nil {
		return nil
	}
	for target.Kind() == reflect.Ptr {
		target = target.Elem()
	}
	switch target.Kind() {
	case reflect.String:
		return cellText(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if s, ok := value.(string); ok {
			if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return n
			}
		}
	case reflect.Slice:
		if list, ok := value.([]any); ok {
			out := make([]any, len(list))
			for i, item := range list {
				out[i] = coerce(item, target.Elem())
			}
			return out
		}
	case reflect.Struct:
		if m, ok := value.(map[string]any); ok {
			return coerceObject(m, target)
		}
	}
	return value
}

// cellText renders a cell as text. Lookup and multiple select cells are
// joined with ", ".
func cellText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, cellText(item))
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func fieldByTag(structType reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if tag == name {
			return field, true
		}
	}
	return reflect.StructField{}, false
}
