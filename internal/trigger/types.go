package trigger

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator compares one event field against a condition value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpMatches     Operator = "matches"
	OpGreaterThan Operator = "gt"
	OpLessThan    Operator = "lt"
)

var operators = map[Operator]bool{
	OpEquals:      true,
	OpNotEquals:   true,
	OpContains:    true,
	OpNotContains: true,
	OpStartsWith:  true,
	OpEndsWith:    true,
	OpMatches:     true,
	OpGreaterThan: true,
	OpLessThan:    true,
}

// ParseOperator validates an operator string at a configuration boundary.
// Evaluation itself never sees an unknown operator from a parsed rule; raw
// strings that bypass parsing fail their condition instead.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !operators[op] {
		return "", fmt.Errorf("ParseOperator: unknown operator %q", s)
	}
	return op, nil
}

// Logic selects how per-condition results combine into a rule result.
type Logic string

const (
	LogicAll Logic = "all"
	LogicAny Logic = "any"
)

// ParseLogic validates a combination-logic string. The empty string is
// accepted and means LogicAll.
func ParseLogic(s string) (Logic, error) {
	switch Logic(s) {
	case LogicAll, LogicAny:
		return Logic(s), nil
	case "":
		return LogicAll, nil
	}
	return "", fmt.Errorf("ParseLogic: unknown logic %q", s)
}

// Condition is one field-level predicate in an automation rule.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Event is a platform event flattened into a scalar field map, keyed by the
// field names conditions and templates refer to.
type Event struct {
	ID     string
	Fields map[string]any
}

// Field returns the named field wrapped as a Value. A field that is absent
// or null reports ok=false; conditions on such fields fail and templates
// render them empty.
func (e Event) Field(name string) (Value, bool) {
	raw, ok := e.Fields[name]
	if !ok || raw == nil {
		return Value{}, false
	}
	return Value{raw: raw}, true
}

// Value wraps one scalar field value (string, number or boolean, as produced
// by JSON decoding) and carries the coercions evaluation needs.
type Value struct {
	raw any
}

// AsString renders the value for string predicates and template output.
// Numbers render without a trailing ".0" so a JSON 5 prints as "5".
func (v Value) AsString() string {
	switch t := v.raw.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// AsFloat coerces the value for numeric predicates. Strings parse after
// whitespace trimming; anything non-numeric reports ok=false so the
// comparison fails closed.
func (v Value) AsFloat() (float64, bool) {
	switch t := v.raw.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
