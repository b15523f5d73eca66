package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToInt64 converts an interface{} to int64.
// Supports the Go integer and float kinds, json.Number and decimal strings.
// Anything else converts to 0.
func ToInt64(v interface{}) int64 {
	switch i := v.(type) {
	case int64:
		return i
	case int:
		return int64(i)
	case int32:
		return int64(i)
	case int16:
		return int64(i)
	case int8:
		return int64(i)
	case uint:
		return int64(i)
	case uint64:
		return int64(i)
	case uint32:
		return int64(i)
	case uint16:
		return int64(i)
	case uint8:
		return int64(i)
	case float64:
		return int64(i)
	case float32:
		return int64(i)
	case json.Number:
		if n, err := i.Int64(); err == nil {
			return n
		}
		if f, err := i.Float64(); err == nil {
			return int64(f)
		}
		return 0
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(i), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Key returns the canonical identity of a scalar JSON value, used for set
// membership. Integral numbers and decimal strings share a key, so the oid
// 1259 and the catalog_by_oid key "1259" match. Returns false for null and
// for values that cannot identify an object.
func Key(v interface{}) (string, bool) {
	switch i := v.(type) {
	case nil:
		return "", false
	case string:
		if n, err := strconv.ParseInt(i, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), true
		}
		return i, true
	case json.Number:
		if n, err := i.Int64(); err == nil {
			return strconv.FormatInt(n, 10), true
		}
		if f, err := i.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return strconv.FormatInt(int64(f), 10), true
		}
		return i.String(), true
	case bool:
		return strconv.FormatBool(i), true
	case float64:
		if i == math.Trunc(i) && math.Abs(i) < 1<<63 {
			return strconv.FormatInt(int64(i), 10), true
		}
		return strconv.FormatFloat(i, 'g', -1, 64), true
	case float32:
		return Key(float64(i))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return strconv.FormatInt(ToInt64(i), 10), true
	default:
		return "", false
	}
}

// Value ranks used when two values of different kinds are compared.
const (
	rankNull = iota
	rankBool
	rankNumber
	rankString
	rankOther
)

func rank(v interface{}) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case json.Number, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return rankNumber
	case string:
		return rankString
	default:
		return rankOther
	}
}

// Compare orders two decoded JSON values and returns -1, 0 or +1.
// Numbers compare numerically, strings compare bytewise (independent of any
// collation), false sorts before true, and null sorts before everything.
// Values of different kinds order by kind. Arrays and objects compare by
// their JSON encoding.
func Compare(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(int64(ra), int64(rb))
	}

	switch ra {
	case rankNull:
		return 0
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		return compareNumbers(a, b)
	case rankString:
		return strings.Compare(a.(string), b.(string))
	default:
		return strings.Compare(encode(a), encode(b))
	}
}

func compareNumbers(a, b interface{}) int {
	ai, aok := asInt(a)
	bi, bok := asInt(b)
	if aok && bok {
		return cmpInt(ai, bi)
	}
	af, bf := asFloat(a), asFloat(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func asInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64, float32:
		return 0, false
	default:
		return ToInt64(n), true
	}
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return float64(ToInt64(n))
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func encode(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
