package core

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_ToQuery(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{"empty", Params{}, ""},
		{"nil params", nil, ""},
		{"scalar", Params{"pageSize": 10}, "pageSize=10"},
		{"float", Params{"maxRecords": 2.5}, "maxRecords=2.5"},
		{"bool", Params{"returnFieldsByFieldId": true}, "returnFieldsByFieldId=true"},
		{"spaces become plus", Params{"view": "Grid view"}, "view=Grid+view"},
		{"nil becomes empty", Params{"offset": nil}, "offset="},
		{"string array", Params{"fields": []string{"Name", "Notes"}}, "fields%5B%5D=Name&fields%5B%5D=Notes"},
		{
			"array of objects",
			Params{"sort": []map[string]string{{"field": "Name"}, {"field": "Age", "direction": "desc"}}},
			"sort%5B0%5D%5Bfield%5D=Name&sort%5B1%5D%5Bdirection%5D=desc&sort%5B1%5D%5Bfield%5D=Age",
		},
		{
			"array of structs",
			Params{"sort": []sortSpec{{Field: "Name", Direction: "desc"}, {Field: "Age"}}},
			"sort%5B0%5D%5Bdirection%5D=desc&sort%5B0%5D%5Bfield%5D=Name&sort%5B1%5D%5Bfield%5D=Age",
		},
		{"struct value", Params{"a": sortSpec{Field: "Name"}}, "a%5Bfield%5D=Name"},
		{"bytes", Params{"offset": []byte("itr1")}, "offset=itr1"},
		{"nested map", Params{"a": map[string]any{"b": map[string]any{"c": 1}}}, "a%5Bb%5D%5Bc%5D=1"},
		{"keys sorted", Params{"view": "v", "fields": []any{"x"}}, "fields%5B%5D=x&view=v"},
		{"formula escaping", Params{"filterByFormula": "{Name}='Ada & Bob'"}, "filterByFormula=%7BName%7D%3D%27Ada+%26+Bob%27"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.ToQuery())
		})
	}
}

type sortSpec struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"`
}

func TestParams_ValidatedStructSortEncodes(t *testing.T) {
	validation := ValidateParams(Params{"sort": []sortSpec{{Field: "Name", Direction: "desc"}}})
	require.True(t, validation.Ok())

	values, err := url.ParseQuery(validation.ValidParams.ToQuery())
	require.NoError(t, err)
	assert.Equal(t, "Name", values.Get("sort[0][field]"))
	assert.Equal(t, "desc", values.Get("sort[0][direction]"))
	assert.NotContains(t, values, "sort[0]")
}

func TestParams_ToQueryRoundTrip(t *testing.T) {
	q := Params{
		"fields": []string{"Name"},
		"sort":   []any{map[string]any{"field": "Name", "direction": "asc"}},
	}.ToQuery()
	values, err := url.ParseQuery(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name"}, values["fields[]"])
	assert.Equal(t, "Name", values.Get("sort[0][field]"))
	assert.Equal(t, "asc", values.Get("sort[0][direction]"))
}

func TestParams_CloneUpdateWithout(t *testing.T) {
	original := Params{"view": "Grid", "pageSize": 10}
	clone := original.Clone()
	clone["offset"] = "itr1"
	assert.NotContains(t, original, "offset")

	clone.Update(Params{"view": "Other", "maxRecords": 3}, false)
	assert.Equal(t, "Grid", clone["view"])
	assert.Equal(t, 3, clone["maxRecords"])

	clone.Update(Params{"view": "Other"}, true)
	assert.Equal(t, "Other", clone["view"])

	clone.Without("view", "offset", "missing")
	assert.Equal(t, Params{"pageSize": 10, "maxRecords": 3}, clone)
}

func TestRecord_Objects(t *testing.T) {
	rec := Record{
		"records": []any{map[string]any{"id": "rec1"}, map[string]any{"id": "rec2"}},
		"bad":     []any{"rec1"},
		"scalar":  "x",
		"offset":  "itr1",
	}
	set, err := rec.Objects("records")
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, "rec2", set[1].GetString("id"))

	set, err = rec.Objects("missing")
	require.NoError(t, err)
	assert.True(t, set.Empty())

	_, err = rec.Objects("bad")
	assert.Error(t, err)
	_, err = rec.Objects("scalar")
	assert.Error(t, err)

	assert.Equal(t, "itr1", rec.GetString("offset"))
	assert.Equal(t, "", rec.GetString("records"))
	_, ok := rec.Object("scalar")
	assert.False(t, ok)
}

func TestRecordSet_PrettyTable(t *testing.T) {
	set := RecordSet{
		{"id": "rec123", "Name": "Ada", "Tags": []any{"a", "b"}},
		{"id": "rec456", "Notes": "hello"},
	}
	table := set.PrettyTable()
	var header string
	for _, line := range strings.Split(table, "\n") {
		if strings.Contains(line, "Notes") {
			header = line
			break
		}
	}
	require.NotEmpty(t, header)
	assert.Less(t, strings.Index(header, "id"), strings.Index(header, "Name"))
	assert.Less(t, strings.Index(header, "Name"), strings.Index(header, "Notes"))
	assert.Contains(t, table, "rec456")
	assert.Contains(t, table, `["a","b"]`)

	assert.Equal(t, "[]", RecordSet{}.PrettyTable())
	assert.Equal(t, "<>", Record{}.PrettyTable())
	assert.Contains(t, Record{"id": "rec123"}.PrettyTable(), "rec123")
	assert.JSONEq(t, `[{"id":"rec123"}]`, RecordSet{{"id": "rec123"}}.PrettyJson())
}
