package fetcher

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/minio/simdjson-go"
)

var simdSupported = simdjson.SupportedCPU()

// isJSONArray reports whether body is a valid JSON document whose root is an
// array. A body that is not valid JSON returns an error.
func isJSONArray(body []byte) (bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false, fmt.Errorf("json input is empty")
	}
	// simdjson only parses object and array roots
	if simdSupported && (trimmed[0] == '[' || trimmed[0] == '{') {
		return isJSONArraySIMD(trimmed)
	}
	return isJSONArrayStd(trimmed)
}

func isJSONArraySIMD(body []byte) (bool, error) {
	parsed, err := simdjson.Parse(body, nil)
	if err != nil {
		return false, err
	}
	it := parsed.Iter()
	if it.Advance() != simdjson.TypeRoot {
		return false, fmt.Errorf("json root not found")
	}
	typ, _, err := it.Root(nil)
	if err != nil {
		return false, err
	}
	return typ == simdjson.TypeArray, nil
}

func isJSONArrayStd(body []byte) (bool, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		// Unmarshal again to surface a descriptive syntax error
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return false, err
		}
		return false, fmt.Errorf("invalid json")
	}
	return body[0] == '[', nil
}
