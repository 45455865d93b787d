// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

// Package policy implements the three-dimensional access policy guarding
// the graph: role rank, project scope, and sensitivity clearance. All
// checks are pure; the one store-backed rule (RACI decision authority)
// lives with the store and is composed by the service layer.
package policy

import (
	"slices"
	"strings"

	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

const (
	RoleMember = "member"
	RoleGM     = "gm"
	RoleCEO    = "ceo"
)

const (
	SensitivityInternal   = "internal"
	SensitivityRestricted = "restricted"
	SensitivityFinance    = "finance"
	SensitivityHR         = "hr"
	SensitivityContract   = "contract"
)

var roleRanks = map[string]int{
	RoleMember: 1,
	RoleGM:     2,
	RoleCEO:    3,
}

var sensitivities = []string{
	SensitivityInternal,
	SensitivityRestricted,
	SensitivityFinance,
	SensitivityHR,
	SensitivityContract,
}

// highSensitivities are the tiers whose rows must carry a role_min of at
// least gm, regardless of the writing caller's own rank.
var highSensitivities = []string{
	SensitivityFinance,
	SensitivityHR,
	SensitivityContract,
}

// UniversalDecisionRole is the RACI role code granting decision authority
// over every domain.
const UniversalDecisionRole = "decision:最終決裁"

const decisionRolePrefix = "decision:"

// AccessContext is the request-scoped caller identity the policy
// evaluates. It is derived once at the boundary and never persisted.
type AccessContext struct {
	Role         string
	ProjectCodes []string
	Clearance    []string
}

// HasProject reports whether the caller is scoped to the project code.
func (a AccessContext) HasProject(code string) bool {
	return slices.Contains(a.ProjectCodes, code)
}

// HasClearance reports whether the caller is cleared for the sensitivity.
func (a AccessContext) HasClearance(sensitivity string) bool {
	return slices.Contains(a.Clearance, sensitivity)
}

// NormalizeRole lowercases a role value; non-strings become "".
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// NormalizeSensitivity lowercases a sensitivity value.
func NormalizeSensitivity(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// RoleRank returns member=1, gm=2, ceo=3, unknown=0.
func RoleRank(role string) int {
	return roleRanks[NormalizeRole(role)]
}

// ValidateRole fails unless role is one of the fixed role values.
func ValidateRole(role string) error {
	if _, ok := roleRanks[NormalizeRole(role)]; !ok {
		return bberr.Errorf(bberr.CodePolicyRoleInvalid, "invalid role: %s", role)
	}
	return nil
}

// ValidateSensitivity fails unless value is one of the fixed tags.
func ValidateSensitivity(value string) error {
	if !slices.Contains(sensitivities, NormalizeSensitivity(value)) {
		return bberr.Errorf(bberr.CodePolicySensitivityInvalid, "invalid sensitivity: %s", value)
	}
	return nil
}

// IsHighSensitivity reports whether the tag sits in the elevated tier.
func IsHighSensitivity(value string) bool {
	return slices.Contains(highSensitivities, NormalizeSensitivity(value))
}

// WriteRequest describes the target of a write for access checking.
type WriteRequest struct {
	ProjectCode string
	RoleMin     string
	Sensitivity string
}

// CheckWriteAccess enforces the write policy. Checks run in a fixed
// order so the most specific failure always surfaces: enum validity,
// project scope, clearance, high-sensitivity role floor, caller rank.
func CheckWriteAccess(access AccessContext, req WriteRequest) error {
	if err := ValidateRole(access.Role); err != nil {
		return err
	}
	if err := ValidateRole(req.RoleMin); err != nil {
		return err
	}
	if err := ValidateSensitivity(req.Sensitivity); err != nil {
		return err
	}

	if !access.HasProject(req.ProjectCode) {
		return bberr.Errorf(bberr.CodePolicyProjectDenied,
			"access denied for project: %s", req.ProjectCode)
	}
	if !access.HasClearance(req.Sensitivity) {
		return bberr.Errorf(bberr.CodePolicyClearanceDenied,
			"access denied for sensitivity: %s", req.Sensitivity)
	}
	if IsHighSensitivity(req.Sensitivity) && RoleRank(req.RoleMin) < RoleRank(RoleGM) {
		return bberr.New(bberr.CodePolicyRoleFloorInvalid,
			"sensitive data requires role_min gm or ceo")
	}
	if RoleRank(access.Role) < RoleRank(req.RoleMin) {
		return bberr.New(bberr.CodePolicyRoleDenied, "access denied for role")
	}
	return nil
}

// NormalizeDecisionDomain trims a domain value and strips a leading
// "decision:" prefix if present.
func NormalizeDecisionDomain(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	return strings.TrimPrefix(trimmed, decisionRolePrefix)
}

// DomainInput carries the fields a decision domain may be resolved from.
// DecisionType and the context keys are legacy spellings still accepted
// from older writers.
type DomainInput struct {
	DecisionDomain string
	DecisionType   string
	Context        map[string]any
}

// ResolveDecisionDomain picks the first populated domain source and
// normalizes it; "" means no domain was supplied.
func ResolveDecisionDomain(input DomainInput) string {
	candidates := []string{input.DecisionDomain, input.DecisionType}
	if input.Context != nil {
		for _, key := range []string{"decision_domain", "decision_type"} {
			if v, ok := input.Context[key].(string); ok {
				candidates = append(candidates, v)
			}
		}
	}
	for _, c := range candidates {
		if domain := NormalizeDecisionDomain(c); domain != "" {
			return domain
		}
	}
	return ""
}

// DecisionRoleCodes returns the RACI role codes that authorize a
// decision in the given domain.
func DecisionRoleCodes(domain string) []string {
	return []string{decisionRolePrefix + domain, UniversalDecisionRole}
}
