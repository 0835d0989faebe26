package validate

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Parse checks that body is well-formed JSON and returns its root value.
func Parse(body []byte) (gjson.Result, error) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return gjson.Result{}, ErrInvalidJSON
	}
	return gjson.ParseBytes(body), nil
}

// TypeOf names the JSON type of v the way PropertyError reports it.
func TypeOf(v gjson.Result) string {
	if !v.Exists() {
		return "undefined"
	}
	switch v.Type {
	case gjson.Null:
		return "null"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	case gjson.JSON:
		if v.IsArray() {
			return "array"
		}
		return "object"
	}
	return "unknown"
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func fail(name, property, expected string, v gjson.Result) *PropertyError {
	err := &PropertyError{
		ObjectName:   name,
		Property:     property,
		ExpectedType: expected,
		ActualType:   TypeOf(v),
	}
	if v.Exists() {
		err.ActualValue = truncate(v.Raw)
	}
	return err
}

// AssertObject requires v to be a JSON object.
func AssertObject(v gjson.Result, name, property string) error {
	if !v.IsObject() {
		return fail(name, property, "object", v)
	}
	return nil
}

// AssertString requires v to be a JSON string.
func AssertString(v gjson.Result, name, property string) error {
	if v.Type != gjson.String {
		return fail(name, property, "string", v)
	}
	return nil
}

// AssertNonEmptyString requires v to be a non-empty JSON string.
func AssertNonEmptyString(v gjson.Result, name, property string) error {
	if v.Type != gjson.String || v.Str == "" {
		return fail(name, property, "non-empty string", v)
	}
	return nil
}

// AssertOptionalString accepts a missing property or a JSON string.
func AssertOptionalString(v gjson.Result, name, property string) error {
	if !v.Exists() {
		return nil
	}
	return AssertString(v, name, property)
}

// AssertBool requires v to be a JSON boolean.
func AssertBool(v gjson.Result, name, property string) error {
	if !v.IsBool() {
		return fail(name, property, "boolean", v)
	}
	return nil
}

// AssertStringEnum requires v to be a string drawn from allowed. Values outside the
// list are rejected, never passed through.
func AssertStringEnum(v gjson.Result, name, property string, allowed []string) error {
	if v.Type == gjson.String {
		for _, a := range allowed {
			if v.Str == a {
				return nil
			}
		}
	}
	err := fail(name, property, "string", v)
	err.ExpectedValues = append([]string(nil), allowed...)
	return err
}

// AssertHex requires a 0x-prefixed, even-length hex string. When size is positive the
// decoded length must equal size bytes.
func AssertHex(v gjson.Result, name, property string, size int) error {
	expected := "hex string"
	if size > 0 {
		expected = "hex string of " + strconv.Itoa(size) + " bytes"
	}
	if v.Type != gjson.String || !isHex(v.Str) {
		return fail(name, property, expected, v)
	}
	if size > 0 && (len(v.Str)-2)/2 != size {
		return fail(name, property, expected, v)
	}
	return nil
}

// AssertArrayOf requires v to be an array and runs elem on every element. Element
// properties are reported as property[i].
func AssertArrayOf(v gjson.Result, name, property string, elem func(item gjson.Result, property string) error) error {
	if !v.IsArray() {
		return fail(name, property, "array", v)
	}
	var err error
	i := 0
	v.ForEach(func(_, item gjson.Result) bool {
		err = elem(item, property+"["+strconv.Itoa(i)+"]")
		i++
		return err == nil
	})
	return err
}

// AssertNonEmptyArrayOf is AssertArrayOf with at least one element.
func AssertNonEmptyArrayOf(v gjson.Result, name, property string, elem func(item gjson.Result, property string) error) error {
	if !v.IsArray() || len(v.Array()) == 0 {
		return fail(name, property, "non-empty array", v)
	}
	return AssertArrayOf(v, name, property, elem)
}

// AssertHexArray requires an array of hex strings, each size bytes when size > 0.
func AssertHexArray(v gjson.Result, name, property string, size int) error {
	return AssertArrayOf(v, name, property, func(item gjson.Result, p string) error {
		return AssertHex(item, name, p, size)
	})
}

func isHex(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	digits := s[2:]
	if len(digits)%2 != 0 {
		return false
	}
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
