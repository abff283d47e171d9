package core

import (
	"encoding/json"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// paramValidator checks a single list parameter against an OpenAPI schema.
type paramValidator struct {
	schema  *openapi3.Schema
	message string
}

func (v paramValidator) check(value any) bool {
	normalized, err := jsonValue(value)
	if err != nil {
		return false
	}
	return v.schema.VisitJSON(normalized) == nil
}

var paramValidators = buildParamValidators()

func buildParamValidators() map[string]paramValidator {
	arrayOfStrings := func() *openapi3.Schema {
		return openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
	}

	sortItem := openapi3.NewObjectSchema().
		WithProperty("field", openapi3.NewStringSchema()).
		WithProperty("direction", openapi3.NewStringSchema().WithEnum("asc", "desc"))
	sortItem.Required = []string{"field"}

	return map[string]paramValidator{
		ParamFields: {
			schema:  arrayOfStrings(),
			message: "the value for `fields` should be an array of strings",
		},
		ParamFilterByFormula: {
			schema:  openapi3.NewStringSchema(),
			message: "the value for `filterByFormula` should be a string",
		},
		ParamMaxRecords: {
			schema:  openapi3.NewFloat64Schema(),
			message: "the value for `maxRecords` should be a number",
		},
		ParamPageSize: {
			schema:  openapi3.NewFloat64Schema(),
			message: "the value for `pageSize` should be a number",
		},
		ParamOffset: {
			schema:  openapi3.NewStringSchema(),
			message: "the value for `offset` should be a string",
		},
		ParamSort: {
			schema: openapi3.NewArraySchema().WithItems(sortItem),
			message: "the value for `sort` should be an array of sort objects. " +
				"Each sort object must have a string `field` value, " +
				"and an optional `direction` value that is \"asc\" or \"desc\".",
		},
		ParamView: {
			schema:  openapi3.NewStringSchema(),
			message: "the value for `view` should be a string",
		},
		ParamCellFormat: {
			schema:  openapi3.NewStringSchema().WithEnum("json", "string"),
			message: "the value for `cellFormat` should be \"json\" or \"string\"",
		},
		ParamTimeZone: {
			schema:  openapi3.NewStringSchema(),
			message: "the value for `timeZone` should be a string",
		},
		ParamUserLocale: {
			schema:  openapi3.NewStringSchema(),
			message: "the value for `userLocale` should be a string",
		},
		ParamReturnFieldsByFieldId: {
			schema:  openapi3.NewBoolSchema(),
			message: "the value for `returnFieldsByFieldId` should be a boolean",
		},
		ParamRecordMetadata: {
			schema:  arrayOfStrings(),
			message: "the value for `recordMetadata` should be an array of strings",
		},
	}
}

// ParamsValidation is the result of ValidateParams.
type ParamsValidation struct {
	// ValidParams holds recognized keys whose values passed validation, unchanged.
	ValidParams Params
	// IgnoredKeys lists unrecognized keys, sorted.
	IgnoredKeys []string
	// Errors holds one message per recognized key that failed, ordered by key.
	Errors []string
}

// Ok reports whether no recognized key failed validation.
func (v ParamsValidation) Ok() bool {
	return len(v.Errors) == 0
}

// ValidateParams partitions raw list parameters into valid, ignored and
// failing keys. Unknown keys are tolerated. It never fails itself.
func ValidateParams(params Params) ParamsValidation {
	result := ParamsValidation{
		ValidParams: make(Params),
		IgnoredKeys: []string{},
		Errors:      []string{},
	}
	for _, key := range sortedKeys(params) {
		value := params[key]
		validator, known := paramValidators[key]
		if !known {
			result.IgnoredKeys = append(result.IgnoredKeys, key)
			continue
		}
		if validator.check(value) {
			result.ValidParams[key] = value
		} else {
			result.Errors = append(result.Errors, validator.message)
		}
	}
	return result
}

// KnownParams returns the recognized parameter names, sorted.
func KnownParams() []string {
	names := make([]string, 0, len(paramValidators))
	for name := range paramValidators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// jsonValue round-trips a Go value through encoding/json so typed slices,
// ints and structs look the way the validators expect.
func jsonValue(value any) (any, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
