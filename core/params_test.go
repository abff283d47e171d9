package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name        string
		params      Params
		wantValid   []string
		wantIgnored []string
		wantErrors  []string
	}{
		{
			name: "all recognized",
			params: Params{
				"fields":                []string{"Name", "Notes"},
				"filterByFormula":       "NOT({Name} = '')",
				"maxRecords":            100,
				"pageSize":              10.0,
				"offset":                "itr123/rec456",
				"sort":                  []map[string]any{{"field": "Name", "direction": "desc"}, {"field": "Notes"}},
				"view":                  "Grid view",
				"cellFormat":            "string",
				"timeZone":              "Europe/Paris",
				"userLocale":            "fr",
				"returnFieldsByFieldId": true,
				"recordMetadata":        []any{"commentCount"},
			},
			wantValid: []string{
				"cellFormat", "fields", "filterByFormula", "maxRecords", "offset", "pageSize",
				"recordMetadata", "returnFieldsByFieldId", "sort", "timeZone", "userLocale", "view",
			},
		},
		{
			name:        "unknown keys are ignored",
			params:      Params{"view": "Grid view", "colour": "red", "callback": "x"},
			wantValid:   []string{"view"},
			wantIgnored: []string{"callback", "colour"},
		},
		{
			name:       "fields must be strings",
			params:     Params{"fields": []any{"Name", 3}},
			wantErrors: []string{"the value for `fields` should be an array of strings"},
		},
		{
			name:       "fields must be an array",
			params:     Params{"fields": "Name"},
			wantErrors: []string{"the value for `fields` should be an array of strings"},
		},
		{
			name:       "numbers are not strings",
			params:     Params{"maxRecords": "10", "pageSize": nil},
			wantErrors: []string{"the value for `maxRecords` should be a number", "the value for `pageSize` should be a number"},
		},
		{
			name:       "sort direction",
			params:     Params{"sort": []any{map[string]any{"field": "Name", "direction": "up"}}},
			wantErrors: []string{paramValidators[ParamSort].message},
		},
		{
			name:       "sort field required",
			params:     Params{"sort": []any{map[string]any{"direction": "asc"}}},
			wantErrors: []string{paramValidators[ParamSort].message},
		},
		{
			name:       "cell format",
			params:     Params{"cellFormat": "xml"},
			wantErrors: []string{"the value for `cellFormat` should be \"json\" or \"string\""},
		},
		{
			name:        "mixed",
			params:      Params{"view": 1, "pageSize": 5, "unknown": true},
			wantValid:   []string{"pageSize"},
			wantIgnored: []string{"unknown"},
			wantErrors:  []string{"the value for `view` should be a string"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateParams(tt.params)

			valid := make([]string, 0, len(result.ValidParams))
			for _, key := range sortedKeys(result.ValidParams) {
				valid = append(valid, key)
				assert.Equal(t, tt.params[key], result.ValidParams[key])
			}
			assert.ElementsMatch(t, tt.wantValid, valid)
			assert.ElementsMatch(t, tt.wantIgnored, result.IgnoredKeys)
			assert.Equal(t, append([]string{}, tt.wantErrors...), result.Errors)
			assert.Equal(t, len(tt.wantErrors) == 0, result.Ok())
		})
	}
}

func TestValidateParams_Idempotent(t *testing.T) {
	params := Params{
		"fields":   []string{"Name"},
		"pageSize": 50,
		"sort":     []any{map[string]any{"field": "Name"}},
		"view":     "Grid view",
	}
	first := ValidateParams(params)
	second := ValidateParams(first.ValidParams)

	assert.Equal(t, params, second.ValidParams)
	assert.Empty(t, second.IgnoredKeys)
	assert.Empty(t, second.Errors)
}

func TestValidateParams_DoesNotMutateInput(t *testing.T) {
	params := Params{"view": "Grid view", "bogus": 1}
	_ = ValidateParams(params)
	assert.Equal(t, Params{"view": "Grid view", "bogus": 1}, params)
}

func TestKnownParams(t *testing.T) {
	known := KnownParams()
	assert.Len(t, known, 12)
	assert.Contains(t, known, ParamOffset)
	assert.IsNonDecreasing(t, known)
}
