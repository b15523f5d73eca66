package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Parsed
	}{
		{"status and message", "PASS:all good",
			ParsedOK{Status: StatusPass, Message: "all good", Raw: "PASS:all good"}},
		{"first colon splits", "FAIL:a:b:c",
			ParsedOK{Status: StatusFail, Message: "a:b:c", Raw: "FAIL:a:b:c"}},
		{"empty message", "TIMEOUT:",
			ParsedOK{Status: StatusTimeout, Message: "", Raw: "TIMEOUT:"}},
		{"no colon", "all good", Unparseable{Raw: "all good"}},
		{"empty body", "", Unparseable{Raw: ""}},
		{"error object", `{"error":"Invalid token"}`,
			ParsedError{Message: "Invalid token", Raw: `{"error":"Invalid token"}`}},
		{"error object value", `{"error":{"code":7}}`,
			ParsedError{Message: `{"code":7}`, Raw: `{"error":{"code":7}}`}},
		{"error true", `{"error":true}`,
			ParsedError{Message: "true", Raw: `{"error":true}`}},
		{"empty error falls through to tag", `{"error":""}`,
			ParsedOK{Status: `{"error"`, Message: `""}`, Raw: `{"error":""}`}},
		{"null error falls through to tag", `{"error":null}`,
			ParsedOK{Status: `{"error"`, Message: `null}`, Raw: `{"error":null}`}},
		{"invalid json", `{not json`, Unparseable{Raw: `{not json`}},
		{"leading space is not an object", ` {"error":"x"}`,
			ParsedOK{Status: ` {"error"`, Message: `"x"}`, Raw: ` {"error":"x"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseResponse(tt.text))
		})
	}
}
