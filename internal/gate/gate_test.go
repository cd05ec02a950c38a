package gate

import (
	"testing"

	"github.com/CoWork-OS/warden/internal/risk"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		level      risk.Level
		isMutating bool
		want       Decision
	}{
		{
			"off ignores level and mutation",
			PolicyOff, risk.LevelHigh, true,
			Decision{},
		},
		{
			"balanced low non-mutating",
			PolicyBalanced, risk.LevelLow, false,
			Decision{},
		},
		{
			"balanced low mutating",
			PolicyBalanced, risk.LevelLow, true,
			Decision{RunQualityPass: true},
		},
		{
			"balanced medium non-mutating",
			PolicyBalanced, risk.LevelMedium, false,
			Decision{StrictCompletionContract: true},
		},
		{
			"balanced medium mutating",
			PolicyBalanced, risk.LevelMedium, true,
			Decision{RunQualityPass: true, StrictCompletionContract: true},
		},
		{
			"balanced high non-mutating",
			PolicyBalanced, risk.LevelHigh, false,
			Decision{StrictCompletionContract: true, RunVerificationAgent: true, ExplicitEvidenceRequired: true},
		},
		{
			"balanced high mutating",
			PolicyBalanced, risk.LevelHigh, true,
			Decision{RunQualityPass: true, StrictCompletionContract: true, RunVerificationAgent: true, ExplicitEvidenceRequired: true},
		},
		{
			"strict low non-mutating",
			PolicyStrict, risk.LevelLow, false,
			Decision{RunQualityPass: true},
		},
		{
			"strict low mutating",
			PolicyStrict, risk.LevelLow, true,
			Decision{RunQualityPass: true},
		},
		{
			"strict medium non-mutating",
			PolicyStrict, risk.LevelMedium, false,
			Decision{RunQualityPass: true, StrictCompletionContract: true, RunVerificationAgent: true, ExplicitEvidenceRequired: true},
		},
		{
			"strict high mutating",
			PolicyStrict, risk.LevelHigh, true,
			Decision{RunQualityPass: true, StrictCompletionContract: true, RunVerificationAgent: true, ExplicitEvidenceRequired: true},
		},
		{
			"unknown policy derives nothing",
			Policy("aggressive"), risk.LevelHigh, true,
			Decision{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.policy, tt.level, tt.isMutating)
			if got != tt.want {
				t.Errorf("Derive(%q, %q, %v) = %+v, want %+v", tt.policy, tt.level, tt.isMutating, got, tt.want)
			}
		})
	}
}

func TestDeriveDeterministic(t *testing.T) {
	first := Derive(PolicyBalanced, risk.LevelMedium, true)
	second := Derive(PolicyBalanced, risk.LevelMedium, true)
	if first != second {
		t.Errorf("repeated derivation diverged: %+v vs %+v", first, second)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, s := range []string{"off", "balanced", "strict"} {
		if _, err := ParsePolicy(s); err != nil {
			t.Errorf("ParsePolicy(%q) returned error: %v", s, err)
		}
	}
	for _, s := range []string{"", "Balanced", "none", "paranoid"} {
		if _, err := ParsePolicy(s); err == nil {
			t.Errorf("ParsePolicy(%q) should fail", s)
		}
	}
}
