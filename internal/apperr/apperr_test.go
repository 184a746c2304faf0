package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"contractorvet/pkg/rbac"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   Kind
	}{
		{Unauthorized("no token"), http.StatusUnauthorized, KindUnauthorized},
		{Forbidden("nope"), http.StatusForbidden, KindForbidden},
		{Validation("bad body"), http.StatusBadRequest, KindValidation},
		{DuplicateReferral(), http.StatusConflict, KindDuplicateReferral},
		{ReferralNotFound(), http.StatusNotFound, KindReferralNotFound},
		{NotFound("project"), http.StatusNotFound, KindNotFound},
		{Store("list projects", errors.New("conn reset")), http.StatusInternalServerError, KindStore},
		{errors.New("plain"), http.StatusInternalServerError, KindStore},
		{&rbac.PermissionDeniedError{UserID: "u1"}, http.StatusForbidden, KindForbidden},
		{&rbac.UserIDMismatchError{}, http.StatusForbidden, KindForbidden},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, HTTPStatus(c.err), c.err.Error())
		assert.Equal(t, c.kind, KindOf(c.err))
	}
}

func TestWrappedErrorKeepsKind(t *testing.T) {
	err := fmt.Errorf("handler: %w", ReferralNotFound())
	assert.Equal(t, KindReferralNotFound, KindOf(err))
}

func TestStoreErrorMessage(t *testing.T) {
	cause := errors.New("relation does not exist")
	err := Store("fetch referrals", cause)

	assert.Equal(t, "fetch referrals failed: relation does not exist", err.Error())
	assert.ErrorIs(t, err, cause)
}
