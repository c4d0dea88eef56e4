package domain

// NestedStatus is the outcome of decoding a string-encoded nested field.
type NestedStatus int

// Nested decode outcomes.
const (
	NestedAbsent    NestedStatus = iota // empty cell, nan, None
	NestedParsed                        // decoded into Value
	NestedMalformed                     // decode failed, see Err
)

func (s NestedStatus) String() string {
	switch s {
	case NestedParsed:
		return "parsed"
	case NestedMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Nested holds a decoded nested field.
// Value is one of: map[string]any, []any, string, bool, json.Number, nil.
type Nested struct {
	Status NestedStatus
	Value  any
	Err    error
}

// Object returns the value as an object, or nil.
func (n Nested) Object() map[string]any {
	if n.Status != NestedParsed {
		return nil
	}
	m, _ := n.Value.(map[string]any)
	return m
}

// List returns the object elements of a list value. Non-object elements are skipped.
// A single object is treated as a one-element list.
func (n Nested) List() []map[string]any {
	if n.Status != NestedParsed {
		return nil
	}
	switch v := n.Value.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{v}
	}
	return nil
}
