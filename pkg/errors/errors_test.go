// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

func TestCodeOf(t *testing.T) {
	err := bberr.New(bberr.CodePolicyProjectDenied, "nope")
	assert.Equal(t, bberr.CodePolicyProjectDenied, bberr.CodeOf(err))
	assert.True(t, bberr.HasCode(err, bberr.CodePolicyProjectDenied))
	assert.False(t, bberr.HasCode(err, bberr.CodePolicyRoleDenied))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, bberr.Code(""), bberr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, bberr.Code(""), bberr.CodeOf(nil))
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.NoError(t, bberr.Wrap(nil, bberr.CodeServerFailure, "ignored"))
	assert.NoError(t, bberr.Wrapf(nil, bberr.CodeServerFailure, "ignored %d", 1))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := bberr.Wrap(cause, bberr.CodeStoreDatabaseFailure, "inserting event")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, bberr.CodeStoreDatabaseFailure, bberr.CodeOf(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unauthenticated", bberr.New(bberr.CodeAuthUnauthenticated, "x"), http.StatusUnauthorized},
		{"project denied", bberr.New(bberr.CodePolicyProjectDenied, "x"), http.StatusForbidden},
		{"clearance denied", bberr.New(bberr.CodePolicyClearanceDenied, "x"), http.StatusForbidden},
		{"role denied", bberr.New(bberr.CodePolicyRoleDenied, "x"), http.StatusForbidden},
		{"authority denied", bberr.New(bberr.CodeDecisionAuthorityDenied, "x"), http.StatusForbidden},
		{"seed denied", bberr.New(bberr.CodeExpandSeedDenied, "x"), http.StatusForbidden},
		{"role floor", bberr.New(bberr.CodePolicyRoleFloorInvalid, "x"), http.StatusBadRequest},
		{"domain required", bberr.New(bberr.CodeDecisionDomainRequired, "x"), http.StatusBadRequest},
		{"unknown project", bberr.New(bberr.CodeProjectUnknown, "x"), http.StatusBadRequest},
		{"person identifier", bberr.New(bberr.CodePersonIdentifierRequired, "x"), http.StatusBadRequest},
		{"bad query type", bberr.New(bberr.CodeQueryTypeInvalid, "x"), http.StatusBadRequest},
		{"bad request", bberr.New(bberr.CodeRequestInvalid, "x"), http.StatusBadRequest},
		{"db failure", bberr.New(bberr.CodeStoreDatabaseFailure, "x"), http.StatusInternalServerError},
		{"plain error", stderrors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bberr.HTTPStatus(tt.err))
		})
	}
}

func TestFields(t *testing.T) {
	err := bberr.New(bberr.CodePolicyProjectDenied, "denied",
		bberr.FieldProject("acme"), bberr.Field("", "dropped"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}
