package trigger

import (
	"regexp"
	"strings"
)

// EvaluateConditions reports whether the event satisfies the rule's
// conditions under the given combination logic. An empty condition list
// always matches. Every predicate fails closed: a missing or null field, a
// non-numeric operand under gt/lt, an invalid matches pattern and an unknown
// operator all make their condition false rather than erroring.
func EvaluateConditions(ev Event, conditions []Condition, logic Logic) bool {
	if len(conditions) == 0 {
		return true
	}
	if logic == LogicAny {
		for _, c := range conditions {
			if evaluateCondition(ev, c) {
				return true
			}
		}
		return false
	}
	for _, c := range conditions {
		if !evaluateCondition(ev, c) {
			return false
		}
	}
	return true
}

func evaluateCondition(ev Event, c Condition) bool {
	field, ok := ev.Field(c.Field)
	if !ok {
		return false
	}
	want := Value{raw: c.Value}

	switch c.Operator {
	case OpEquals:
		return strings.EqualFold(field.AsString(), want.AsString())
	case OpNotEquals:
		return !strings.EqualFold(field.AsString(), want.AsString())
	case OpContains:
		return containsFold(field.AsString(), want.AsString())
	case OpNotContains:
		return !containsFold(field.AsString(), want.AsString())
	case OpStartsWith:
		return hasPrefixFold(field.AsString(), want.AsString())
	case OpEndsWith:
		return hasSuffixFold(field.AsString(), want.AsString())
	case OpMatches:
		re, err := regexp.Compile("(?i)" + want.AsString())
		if err != nil {
			return false
		}
		return re.MatchString(field.AsString())
	case OpGreaterThan:
		f, fok := field.AsFloat()
		w, wok := want.AsFloat()
		return fok && wok && f > w
	case OpLessThan:
		f, fok := field.AsFloat()
		w, wok := want.AsFloat()
		return fok && wok && f < w
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}

func hasSuffixFold(s, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(s), strings.ToLower(suffix))
}
