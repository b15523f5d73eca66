package verifier

import (
	"encoding/json"
	"strings"
)

// Parsed is the result of parsing a raw service response. It is one of
// ParsedOK, ParsedError or Unparseable.
type Parsed interface {
	parsed()
}

// ParsedOK is a "<STATUS>:<message>" response.
type ParsedOK struct {
	Status  Status
	Message string
	Raw     string
}

// ParsedError is a structured error object with a non-empty error value.
type ParsedError struct {
	Message string
	Raw     string
}

// Unparseable is a response that has neither shape.
type Unparseable struct {
	Raw string
}

func (ParsedOK) parsed()    {}
func (ParsedError) parsed() {}
func (Unparseable) parsed() {}

// ParseResponse classifies a raw response body. A body starting with "{" is
// decoded as an object first; a truthy "error" value wins over any status
// tag. Otherwise the text before the first ':' is the status tag.
func ParseResponse(text string) Parsed {
	if strings.HasPrefix(text, "{") {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return Unparseable{Raw: text}
		}
		if msg, ok := errorMessage(obj["error"]); ok {
			return ParsedError{Message: msg, Raw: text}
		}
	}

	idx := strings.IndexByte(text, ':')
	if idx < 0 {
		return Unparseable{Raw: text}
	}
	return ParsedOK{
		Status:  Status(text[:idx]),
		Message: text[idx+1:],
		Raw:     text,
	}
}

// errorMessage renders a truthy error value. Empty strings, false, zero and
// null are not errors.
func errorMessage(v interface{}) (string, bool) {
	switch e := v.(type) {
	case nil:
		return "", false
	case string:
		return e, e != ""
	case bool:
		if !e {
			return "", false
		}
	case float64:
		if e == 0 {
			return "", false
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(data), true
}
