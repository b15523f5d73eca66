package types

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected int64
	}{
		{name: "int64", input: int64(42), expected: 42},
		{name: "int", input: 100, expected: 100},
		{name: "int8", input: int8(-128), expected: -128},
		{name: "uint32", input: uint32(2000), expected: 2000},
		{name: "float64 truncates", input: float64(-50.5), expected: -50},
		{name: "json.Number integer", input: json.Number("16384"), expected: 16384},
		{name: "json.Number float", input: json.Number("12.9"), expected: 12},
		{name: "decimal string", input: "1259", expected: 1259},
		{name: "non-numeric string", input: "pg_class", expected: 0},
		{name: "nil", input: nil, expected: 0},
		{name: "bool", input: true, expected: 0},
		{name: "slice", input: []int{1, 2}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToInt64(tt.input))
		})
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		want   string
		wantOK bool
	}{
		{name: "json.Number", input: json.Number("2615"), want: "2615", wantOK: true},
		{name: "json.Number with exponent", input: json.Number("2.615e3"), want: "2615", wantOK: true},
		{name: "decimal string", input: "2615", want: "2615", wantOK: true},
		{name: "plain string", input: "public", want: "public", wantOK: true},
		{name: "float64", input: float64(11), want: "11", wantOK: true},
		{name: "int", input: 7, want: "7", wantOK: true},
		{name: "bool", input: false, want: "false", wantOK: true},
		{name: "nil", input: nil, wantOK: false},
		{name: "object", input: map[string]interface{}{"a": 1}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Key(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestKey_NumberAndStringAgree(t *testing.T) {
	fromRow, _ := Key(json.Number("1259"))
	fromCatalogMap, _ := Key("1259")
	assert.Equal(t, fromRow, fromCatalogMap)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want int
	}{
		{name: "numbers numerically", a: json.Number("9"), b: json.Number("10"), want: -1},
		{name: "equal numbers", a: json.Number("42"), b: json.Number("42.0"), want: 0},
		{name: "mixed number kinds", a: json.Number("3"), b: float64(2.5), want: 1},
		{name: "strings bytewise", a: "Zebra", b: "apple", want: -1},
		{name: "underscore after uppercase", a: "a_b", b: "aB", want: 1},
		{name: "equal strings", a: "public", b: "public", want: 0},
		{name: "null first", a: nil, b: json.Number("0"), want: -1},
		{name: "null equals null", a: nil, b: nil, want: 0},
		{name: "false before true", a: false, b: true, want: -1},
		{name: "number before string", a: json.Number("1"), b: "1", want: -1},
		{name: "arrays by encoding", a: []interface{}{"a"}, b: []interface{}{"b"}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
			assert.Equal(t, -tt.want, Compare(tt.b, tt.a), "Compare must be antisymmetric")
		})
	}
}

func TestCompare_SortsIndependentOfInputOrder(t *testing.T) {
	values := []interface{}{"b", json.Number("10"), nil, "B", json.Number("2"), true}
	reversed := make([]interface{}, len(values))
	for i, v := range values {
		reversed[len(values)-1-i] = v
	}

	sortValues := func(vs []interface{}) {
		sort.SliceStable(vs, func(i, j int) bool { return Compare(vs[i], vs[j]) < 0 })
	}
	sortValues(values)
	sortValues(reversed)

	assert.Equal(t, values, reversed)
	assert.Equal(t, []interface{}{nil, true, json.Number("2"), json.Number("10"), "B", "b"}, values)
}
