package gate

import (
	"fmt"

	"github.com/CoWork-OS/warden/internal/risk"
)

// Policy selects how much independent verification completed tasks receive.
type Policy string

const (
	// PolicyOff disables every verification step.
	PolicyOff Policy = "off"
	// PolicyBalanced scales verification with risk: quality passes for
	// mutating work, stricter contracts from medium risk, independent
	// verification only at high risk.
	PolicyBalanced Policy = "balanced"
	// PolicyStrict always runs a quality pass and escalates everything
	// else from medium risk upward.
	PolicyStrict Policy = "strict"
)

// DefaultPolicy applies when a project has no stored policy.
const DefaultPolicy = PolicyBalanced

// ParsePolicy validates a policy string at a configuration boundary.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyOff, PolicyBalanced, PolicyStrict:
		return Policy(s), nil
	}
	return "", fmt.Errorf("ParsePolicy: unknown review policy %q", s)
}

// Decision lists the verification steps the completion pipeline runs before
// a task may be marked done.
type Decision struct {
	// RunQualityPass reviews the produced diff for defects.
	RunQualityPass bool `json:"run_quality_pass"`
	// StrictCompletionContract makes the completion claim checkable
	// against the original intent.
	StrictCompletionContract bool `json:"strict_completion_contract"`
	// RunVerificationAgent replays the task outcome in an isolated
	// checker.
	RunVerificationAgent bool `json:"run_verification_agent"`
	// ExplicitEvidenceRequired demands proof artifacts (test output,
	// logs) attached to the completion.
	ExplicitEvidenceRequired bool `json:"explicit_evidence_required"`
}

// Derive maps policy, risk level and mutation classification onto the
// verification steps to run. It is pure and total: unknown policies derive
// the zero Decision, the same as PolicyOff. Callers that need to reject
// unknown policies validate with ParsePolicy first.
func Derive(policy Policy, level risk.Level, isMutatingTask bool) Decision {
	switch policy {
	case PolicyBalanced:
		return Decision{
			RunQualityPass:           isMutatingTask,
			StrictCompletionContract: level.AtLeast(risk.LevelMedium),
			RunVerificationAgent:     level == risk.LevelHigh,
			ExplicitEvidenceRequired: level == risk.LevelHigh,
		}
	case PolicyStrict:
		escalate := level.AtLeast(risk.LevelMedium)
		return Decision{
			RunQualityPass:           true,
			StrictCompletionContract: escalate,
			RunVerificationAgent:     escalate,
			ExplicitEvidenceRequired: escalate,
		}
	default:
		return Decision{}
	}
}
