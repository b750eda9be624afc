// Package datatransform converts payload keys between snake and camel case and
// unpacks values out of lists and maps.
package datatransform

import (
	"encoding/json"
	"strings"
	"unicode"
)

// ToSnakeCase converts `helloWorld` to `hello_world`.
func ToSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ToCamelCase converts `hello_world` to `helloWorld`.
func ToCamelCase(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// KeysToCamel rewrites every map key in data, descending into nested maps.
// Maps inside lists are rewritten only when includeLists is set.
func KeysToCamel(data map[string]interface{}, includeLists bool) map[string]interface{} {
	return transformKeys(data, ToCamelCase, includeLists)
}

// KeysToSnake is the inverse of KeysToCamel.
func KeysToSnake(data map[string]interface{}, includeLists bool) map[string]interface{} {
	return transformKeys(data, ToSnakeCase, includeLists)
}

// CamelJSON re-encodes any JSON-serialisable value with camelCase object keys.
func CamelJSON(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return transformValue(decoded, ToCamelCase, true), nil
}

func transformKeys(data map[string]interface{}, fn func(string) string, includeLists bool) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		out[fn(key)] = transformValue(value, fn, includeLists)
	}
	return out
}

func transformValue(value interface{}, fn func(string) string, includeLists bool) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return transformKeys(v, fn, includeLists)
	case []interface{}:
		if !includeLists {
			return v
		}
		items := make([]interface{}, len(v))
		for i, item := range v {
			items[i] = transformValue(item, fn, includeLists)
		}
		return items
	default:
		return v
	}
}

// ToLabel turns a field name such as `range_number` into `Range Number`.
// All upper-case names are kept as they are.
func ToLabel(name string) string {
	if strings.ToUpper(name) == name {
		return name
	}
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
