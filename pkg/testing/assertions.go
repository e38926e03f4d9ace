package testing

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// RequestLog is one logged control-API request for assertions.
type RequestLog struct {
	// Method is the HTTP method.
	Method string
	// Path is the request URL path.
	Path string
	// Headers are the request headers, single value per key.
	Headers map[string]string
	// Body is the request body content.
	Body string
}

// AssertBody asserts that the request body exactly matches.
func (r *RequestLog) AssertBody(t testing.TB, expected string) {
	t.Helper()
	if r.Body != expected {
		t.Errorf("request body does not match\nexpected: %q\nactual: %q", expected, r.Body)
	}
}

// AssertBodyContains asserts that the request body contains the
// expected substring.
func (r *RequestLog) AssertBodyContains(t testing.TB, substr string) {
	t.Helper()
	if !strings.Contains(r.Body, substr) {
		t.Errorf("request body does not contain %q\nbody: %s", substr, r.Body)
	}
}

// AssertHeader asserts that the request carried the header with the
// expected value. Key matching is case-insensitive.
func (r *RequestLog) AssertHeader(t testing.TB, key, expected string) {
	t.Helper()

	actual, ok := r.Headers[key]
	if !ok {
		for k, v := range r.Headers {
			if strings.EqualFold(k, key) {
				actual = v
				ok = true
				break
			}
		}
	}
	if !ok {
		t.Errorf("request does not have header %q", key)
		return
	}
	if actual != expected {
		t.Errorf("header %q value mismatch\nexpected: %q\nactual: %q", key, expected, actual)
	}
}

// JSONField extracts a field from the request body JSON, with dot
// notation for nesting. Returns nil when the body is not valid JSON or
// the field doesn't exist.
func (r *RequestLog) JSONField(field string) any {
	var data map[string]any
	if err := json.Unmarshal([]byte(r.Body), &data); err != nil {
		return nil
	}

	var current any = data
	for _, part := range strings.Split(field, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// AssertJSONField asserts that a JSON field in the request body has the
// expected value. Numbers decode as float64, so expect float64(5)
// rather than 5.
func (r *RequestLog) AssertJSONField(t testing.TB, field string, expected any) {
	t.Helper()

	actual := r.JSONField(field)
	if actual == nil {
		t.Errorf("JSON field %q not found in request body: %s", field, r.Body)
		return
	}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("JSON field %q mismatch\nexpected: %v (%T)\nactual: %v (%T)",
			field, expected, expected, actual, actual)
	}
}
