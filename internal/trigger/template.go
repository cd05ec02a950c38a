package trigger

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{event\.([^{}]+)\}\}`)

// SubstituteEventVariables renders a rule's action template against the
// event. Each {{event.<field>}} placeholder is replaced with the field's
// string form, or with the empty string when the field is absent or null.
// Substitution is a single pass: placeholder-shaped text inside a field
// value is emitted literally, never re-expanded.
func SubstituteEventVariables(template string, ev Event) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(m, "{{event."), "}}")
		field, ok := ev.Field(name)
		if !ok {
			return ""
		}
		return field.AsString()
	})
}
