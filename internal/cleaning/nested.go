package cleaning

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gmx-edge-lab/internal/domain"
)

// ParseNested decodes a string-encoded nested field.
// JSON is tried first, then Python literal syntax (pandas writes dicts and lists with repr).
// Empty, "nan" and "None" cells decode as absent.
func ParseNested(raw string) domain.Nested {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "nan", "NaN", "None", "null":
		return domain.Nested{Status: domain.NestedAbsent}
	}

	if v, err := decodeJSON(s); err == nil {
		return domain.Nested{Status: domain.NestedParsed, Value: v}
	}

	v, err := parsePyLiteral(s)
	if err != nil {
		return domain.Nested{Status: domain.NestedMalformed, Err: err}
	}
	if v == nil {
		return domain.Nested{Status: domain.NestedAbsent}
	}
	return domain.Nested{Status: domain.NestedParsed, Value: v}
}

func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// fieldString returns a scalar element field as a string.
// Missing keys and nil values report ok=false.
func fieldString(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		if x {
			return "true", true
		}
		return "false", true
	default:
		return fmt.Sprint(x), true
	}
}
