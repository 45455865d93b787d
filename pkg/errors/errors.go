// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. The HTTP status
// of a failure is derived from its code at the boundary, never from
// matching message text.
type Code string

const (
	CodePolicyRoleInvalid        Code = "policy.role.invalid"
	CodePolicySensitivityInvalid Code = "policy.sensitivity.invalid"
	CodePolicyProjectDenied      Code = "policy.project.denied"
	CodePolicyClearanceDenied    Code = "policy.clearance.denied"
	CodePolicyRoleDenied         Code = "policy.role.denied"
	CodePolicyRoleFloorInvalid   Code = "policy.role_floor.invalid"

	CodeDecisionDomainRequired  Code = "ssot.decision.domain_required"
	CodeDecisionAuthorityDenied Code = "ssot.decision.authority.denied"
	CodeExpandSeedDenied        Code = "ssot.expand.seed.denied"
	CodeQueryTypeInvalid        Code = "ssot.query.type.invalid"
	CodeEntityTypeInvalid       Code = "ssot.entity_type.invalid"
	CodeRelTypeInvalid          Code = "ssot.rel_type.invalid"

	CodeProjectUnknown           Code = "store.project.unknown"
	CodePersonIdentifierRequired Code = "store.person.identifier_required"
	CodeStoreDatabaseFailure     Code = "store.database.failure"
	CodeStoreInvalidInput        Code = "store.invalid_input"

	CodeRequestInvalid      Code = "server.request.invalid"
	CodeAuthUnauthenticated Code = "server.auth.unauthorized"
	CodeServerFailure       Code = "server.internal.failure"

	CodeConfigInvalid Code = "config.validate.invalid_value"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldProject(code string) Attr {
	return Field("project_code", code)
}

func FieldPerson(id string) Attr {
	return Field("person_id", id)
}

func FieldEntity(id string) Attr {
	return Field("entity_id", id)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsDenied reports whether the error is a policy or authority denial.
func IsDenied(err error) bool {
	return reason(CodeOf(err)) == "denied"
}

// IsInvalidInput reports whether the error is a validation failure.
func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" ||
		r == "unknown" || r == "domain_required" || r == "identifier_required"
}

func IsUnauthenticated(err error) bool {
	return reason(CodeOf(err)) == "unauthorized"
}

// HTTPStatus maps an error to the HTTP status the boundary should emit.
// The high-sensitivity floor violation is a 400, not a 403: the caller's
// own access is fine, the requested role_min is malformed for the tier.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsUnauthenticated(err):
		return http.StatusUnauthorized
	case IsDenied(err):
		return http.StatusForbidden
	case IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
