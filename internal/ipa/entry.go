package ipa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a single attribute value. Binary values arrive as {"__base64__": "..."}.
type Value struct {
	Text   string
	Base64 string
	Binary bool
}

// String returns the textual form, or the base64 payload for binary values.
func (v Value) String() string {
	if v.Binary {
		return v.Base64
	}
	return v.Text
}

// Entry holds the attributes of one object returned by a show or find command.
// Keys are stored lower-cased; raw mode returns names such as employeeNumber and
// ipaSshPubKey.
type Entry map[string][]Value

// UnmarshalJSON decodes an attribute map, accepting scalar or list values.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	entry := make(Entry, len(raw))
	for name, msg := range raw {
		values, err := decodeValues(msg)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		key := strings.ToLower(name)
		entry[key] = append(entry[key], values...)
	}

	*e = entry
	return nil
}

func decodeValues(msg json.RawMessage) ([]Value, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		values := make([]Value, 0, len(items))
		for _, item := range items {
			value, ok, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			if ok {
				values = append(values, value)
			}
		}
		return values, nil
	}

	value, ok, err := decodeValue(trimmed)
	if err != nil || !ok {
		return nil, err
	}
	return []Value{value}, nil
}

func decodeValue(msg json.RawMessage) (Value, bool, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Value{}, false, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Value{}, false, err
		}
		return Value{Text: s}, true, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return Value{}, false, err
		}
		if b64, ok := obj["__base64__"]; ok {
			var s string
			if err := json.Unmarshal(b64, &s); err != nil {
				return Value{}, false, err
			}
			return Value{Base64: s, Binary: true}, true, nil
		}
		return Value{Text: string(trimmed)}, true, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return Value{}, false, err
		}
		return Value{Text: strings.ToUpper(strconv.FormatBool(b))}, true, nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return Value{}, false, err
		}
		return Value{Text: n.String()}, true, nil
	}
}

// HasAttribute reports whether the attribute is present with at least one value.
func (e Entry) HasAttribute(name string) bool {
	return len(e[strings.ToLower(name)]) > 0
}

// GetValues returns the decoded values of an attribute.
func (e Entry) GetValues(name string) []Value {
	return e[strings.ToLower(name)]
}

// GetAttributeValue returns the first value of an attribute, or "".
func (e Entry) GetAttributeValue(name string) string {
	values := e[strings.ToLower(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0].String()
}

// GetAttributeValues returns every value of an attribute.
func (e Entry) GetAttributeValues(name string) []string {
	values := e[strings.ToLower(name)]
	if len(values) == 0 {
		return nil
	}

	result := make([]string, len(values))
	for i, v := range values {
		result[i] = v.String()
	}
	return result
}

// GetAttributeInt parses the first value of an attribute as an int.
func (e Entry) GetAttributeInt(name string) (int, error) {
	value := e.GetAttributeValue(name)
	if value == "" {
		return 0, fmt.Errorf("attribute %s not present", name)
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("attribute %s is not an integer: %w", name, err)
	}
	return n, nil
}

// GetAttributeBase64Values returns the base64 payloads of an attribute. Positions
// holding plain text values are returned as "" so indexes stay aligned with
// companion attributes.
func (e Entry) GetAttributeBase64Values(name string) []string {
	values := e[strings.ToLower(name)]
	if len(values) == 0 {
		return nil
	}

	result := make([]string, len(values))
	for i, v := range values {
		if v.Binary {
			result[i] = v.Base64
		}
	}
	return result
}
