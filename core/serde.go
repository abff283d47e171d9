package core

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/bndr/gotabulate"
)

const maxCellSize = 85

//  ######################################################
//              FUNCTION PARAMS
//  ######################################################

// Params represents a generic set of key-value parameters,
// used for constructing query strings or request bodies.
type Params map[string]any

// ToQuery serializes the Params into a query string. Nested maps and slices
// use bracket notation (sort[0][field]=name, fields[]=a), nil becomes an
// empty value and spaces are encoded as '+'. Keys are emitted in sorted order.
// Composite values are first reduced to their JSON form, so structs are
// encoded by their json tags, the same way ValidateParams sees them.
func (pr Params) ToQuery() string {
	var parts []string
	add := func(key, value string) {
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}
	for _, key := range sortedKeys(pr) {
		buildQueryParams(key, plainValue(pr[key]), add)
	}
	return strings.Join(parts, "&")
}

// plainValue converts structs and containers of them to maps and slices.
// Byte slices and values that fail to encode are left as they are.
func plainValue(value any) any {
	if !isComposite(value) {
		return value
	}
	if b, ok := value.([]byte); ok {
		return b
	}
	plain, err := jsonValue(value)
	if err != nil {
		return value
	}
	return plain
}

// Clone returns a shallow copy. Nested values are shared.
func (pr Params) Clone() Params {
	clone := make(Params, len(pr))
	for key, value := range pr {
		clone[key] = value
	}
	return clone
}

// Update merges other into pr. Existing keys are kept unless override is true.
func (pr Params) Update(other Params, override bool) {
	for key, value := range other {
		if _, exists := pr[key]; exists && !override {
			continue
		}
		pr[key] = value
	}
}

// Without removes the specified keys from the Params map.
func (pr Params) Without(keys ...string) {
	for _, key := range keys {
		delete(pr, key)
	}
}

func buildQueryParams(prefix string, value any, add func(key, value string)) {
	if value == nil {
		add(prefix, "")
		return
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			add(prefix, "")
			return
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			add(prefix, string(rv.Bytes()))
			return
		}
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			if strings.HasSuffix(prefix, "[]") {
				add(prefix, scalarString(item))
				continue
			}
			index := ""
			if isComposite(item) {
				index = strconv.Itoa(i)
			}
			buildQueryParams(fmt.Sprintf("%s[%s]", prefix, index), item, add)
		}
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		byKey := make(map[string]reflect.Value, rv.Len())
		for _, k := range rv.MapKeys() {
			ks := fmt.Sprint(k.Interface())
			keys = append(keys, ks)
			byKey[ks] = rv.MapIndex(k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buildQueryParams(fmt.Sprintf("%s[%s]", prefix, k), byKey[k].Interface(), add)
		}
	default:
		add(prefix, scalarString(rv.Interface()))
	}
}

func isComposite(value any) bool {
	if value == nil {
		return false
	}
	switch reflect.Indirect(reflect.ValueOf(value)).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		return true
	}
	return false
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

//  ######################################################
//              RETURN TYPES
//  ######################################################

// Renderable is an interface implemented by types that can render themselves
// into a human-readable string format, typically for CLI display or logging.
type Renderable interface {
	PrettyTable() string
	PrettyJson(indent ...string) string
}

// Record represents a single JSON object as a key-value map: a response
// body, a record payload or a mapping of field name to cell value.
type Record map[string]any

// RecordSet represents a list of Record objects.
type RecordSet []Record

// ToRecord converts a decoded JSON value to a Record when it is an object.
func ToRecord(value any) (Record, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(m), true
}

// GetString returns the string value under key, or "" when missing or not a string.
func (r Record) GetString(key string) string {
	s, _ := r[key].(string)
	return s
}

// Object returns the nested object under key.
func (r Record) Object(key string) (Record, bool) {
	return ToRecord(r[key])
}

// Objects returns the array of objects under key. A missing key yields an
// empty slice; a present value that is not an array of objects is an error.
func (r Record) Objects(key string) (RecordSet, error) {
	raw, ok := r[key]
	if !ok || raw == nil {
		return RecordSet{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected type for %s field: %T", key, raw)
	}
	set := make(RecordSet, 0, len(list))
	for _, item := range list {
		rec, ok := ToRecord(item)
		if !ok {
			return nil, fmt.Errorf("unexpected type in %s array: %T", key, item)
		}
		set = append(set, rec)
	}
	return set, nil
}

// PrettyTable prints a single Record as a two column table.
func (r Record) PrettyTable() string {
	if len(r) == 0 {
		return "<>"
	}
	var rows [][]any
	for _, key := range sortedKeys(r) {
		rows = append(rows, []any{key, cellString(r[key])})
	}
	t := gotabulate.Create(rows)
	t.SetHeaders([]string{"attr", "value"})
	t.SetAlign("left")
	t.SetWrapStrings(true)
	t.SetMaxCellSize(maxCellSize)
	return t.Render("grid")
}

// PrettyJson prints the Record as JSON, optionally indented
func (r Record) PrettyJson(indent ...string) string {
	return prettyJson(r, indent...)
}

// PrettyTable renders the set as one table with a column per key.
// Columns named "id" come first, the rest are sorted.
func (rs RecordSet) PrettyTable() string {
	if len(rs) == 0 {
		return "[]"
	}
	columns := rs.columns()
	rows := make([][]any, 0, len(rs))
	for _, rec := range rs {
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i] = cellString(rec[col])
		}
		rows = append(rows, row)
	}
	t := gotabulate.Create(rows)
	t.SetHeaders(columns)
	t.SetAlign("left")
	t.SetWrapStrings(true)
	t.SetMaxCellSize(maxCellSize)
	t.SetEmptyString("-")
	return t.Render("grid")
}

// PrettyJson prints the RecordSet as JSON, optionally indented
func (rs RecordSet) PrettyJson(indent ...string) string {
	return prettyJson(rs, indent...)
}

func (rs RecordSet) Empty() bool {
	return len(rs) == 0
}

func (rs RecordSet) columns() []string {
	seen := make(map[string]struct{})
	var rest []string
	hasID := false
	for _, rec := range rs {
		for key := range rec {
			if key == "id" {
				hasID = true
				continue
			}
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				rest = append(rest, key)
			}
		}
	}
	sort.Strings(rest)
	if hasID {
		return append([]string{"id"}, rest...)
	}
	return rest
}

func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return scalarString(v)
	}
}

func prettyJson(value any, indent ...string) string {
	var b []byte
	var err error
	if len(indent) > 0 {
		b, err = json.MarshalIndent(value, "", indent[0])
	} else {
		b, err = json.Marshal(value)
	}
	if err != nil {
		return fmt.Sprintf("failed to marshal JSON: %v", err)
	}
	return string(b)
}
