package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "consents/pkg/domain-errors"
)

func details(t *testing.T, err error) []string {
	t.Helper()
	var domainErr *dErrors.Error
	require.True(t, errors.As(err, &domainErr), "expected domain error, got %v", err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	return domainErr.Details
}

func TestParseConsentID(t *testing.T) {
	id, err := ParseConsentID("consent-42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"consent-", "consent-abc", "42", "user-42", "consent-1x", " consent-1"} {
		_, err := ParseConsentID(raw)
		assert.Equal(t, []string{MessageInvalidConsentIDPath}, details(t, err), raw)
	}

	_, err = ParseConsentID("")
	assert.Equal(t, []string{MessageConsentIDRequired}, details(t, err))
}

func TestFormattedID(t *testing.T) {
	c := &Consent{ID: 7}
	assert.Equal(t, "consent-7", c.FormattedID())
}

func TestFormatTime(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	ts := time.Date(2026, 5, 1, 9, 30, 15, 999_000_000, loc)
	assert.Equal(t, "2026-05-01T12:30:15Z", FormatTime(ts))
}

func TestClone(t *testing.T) {
	orig := &Consent{ID: 1, Permissions: []Permission{PermissionReadData}}
	cp := orig.Clone()
	cp.Permissions[0] = PermissionDeleteData
	assert.Equal(t, PermissionReadData, orig.Permissions[0])
	assert.Nil(t, (*Consent)(nil).Clone())
}

func TestEnums(t *testing.T) {
	assert.True(t, PermissionWriteData.IsValid())
	assert.False(t, Permission("EXECUTE").IsValid())
	assert.True(t, StatusRejected.IsValid())
	assert.False(t, Status("REJECTED").IsValid())
}

func TestCreateRequestValidate(t *testing.T) {
	valid := func() *CreateRequest {
		return &CreateRequest{
			UserID:      "user-1",
			Permissions: []Permission{PermissionReadData, PermissionWriteData},
			Status:      StatusAwaitingAuthorisation,
		}
	}

	tests := []struct {
		name   string
		mutate func(r *CreateRequest)
		want   []string
	}{
		{"valid", func(*CreateRequest) {}, nil},
		{"missing userId", func(r *CreateRequest) { r.UserID = "" }, []string{"Field userId is required"}},
		{"bad userId", func(r *CreateRequest) { r.UserID = "usr-1" },
			[]string{"Field userId must have the pattern 'user-N' (N = number)"}},
		{"missing permissions", func(r *CreateRequest) { r.Permissions = nil }, []string{"Field permissions is required"}},
		{"empty permissions", func(r *CreateRequest) { r.Permissions = []Permission{} },
			[]string{"Field permissions must have at least one permission in the list"}},
		{"too many permissions", func(r *CreateRequest) {
			r.Permissions = []Permission{PermissionReadData, PermissionWriteData, PermissionDeleteData, PermissionReadData}
		}, []string{"Field permissions must have at most three permissions in the list"}},
		{"unknown permission", func(r *CreateRequest) { r.Permissions = []Permission{"EXECUTE", "ADMIN"} },
			[]string{"Field permissions must be one of the values in the list [READ_DATA, WRITE_DATA, DELETE_DATA]"}},
		{"unknown status", func(r *CreateRequest) { r.Status = "PENDING" },
			[]string{"Field status must be one of the values in the list [AWAITING_AUTHORISATION, AUTHORISED, REJECT]"}},
		{"duplicate permissions", func(r *CreateRequest) {
			r.Permissions = []Permission{PermissionReadData, PermissionReadData}
		}, []string{MessageDuplicatePermissions}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			err := req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, details(t, err))
		})
	}
}

func TestUpdateRequestValidate(t *testing.T) {
	req := &UpdateRequest{Permissions: []Permission{PermissionDeleteData}, Status: StatusAuthorised}
	assert.NoError(t, req.Validate())

	req = &UpdateRequest{}
	assert.ElementsMatch(t, []string{"Field permissions is required", "Field status is required"}, details(t, req.Validate()))

	req = &UpdateRequest{Permissions: []Permission{PermissionWriteData, PermissionWriteData}, Status: StatusRejected}
	assert.Equal(t, []string{MessageDuplicatePermissions}, details(t, req.Validate()))

	var nilReq *UpdateRequest
	assert.True(t, dErrors.HasCode(nilReq.Validate(), dErrors.CodeBadRequest))
}
