package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "consents/pkg/domain-errors"
)

type sampleRequest struct {
	UserID      string   `json:"userId" validate:"required,userid"`
	Permissions []string `json:"permissions" validate:"required,min=1,max=3,unique,dive,oneof=READ_DATA WRITE_DATA"`
	Status      string   `json:"status" validate:"required"`
}

func details(t *testing.T, err error) []string {
	t.Helper()
	var domainErr *dErrors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, dErrors.CodeValidation, domainErr.Code)
	assert.Equal(t, MessageInvalidInput, domainErr.Message)
	return domainErr.Details
}

func TestValidate(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		err := Validate(&sampleRequest{UserID: "user-1", Permissions: []string{"READ_DATA"}, Status: "X"})
		assert.NoError(t, err)
	})

	t.Run("missing fields report each field by json name", func(t *testing.T) {
		err := Validate(&sampleRequest{})
		assert.ElementsMatch(t, []string{
			"Field userId is required",
			"Field permissions is required",
			"Field status is required",
		}, details(t, err))
	})

	t.Run("pattern mismatch", func(t *testing.T) {
		err := Validate(&sampleRequest{UserID: "bob", Permissions: []string{"READ_DATA"}, Status: "X"})
		assert.Equal(t, []string{"Field userId must have the pattern 'user-N' (N = number)"}, details(t, err))
	})

	t.Run("empty list", func(t *testing.T) {
		err := Validate(&sampleRequest{UserID: "user-1", Permissions: []string{}, Status: "X"})
		assert.Equal(t, []string{"Field permissions must have at least one permission in the list"}, details(t, err))
	})

	t.Run("too many items", func(t *testing.T) {
		err := Validate(&sampleRequest{UserID: "user-1", Permissions: []string{"A", "B", "C", "D"}, Status: "X"})
		assert.Equal(t, []string{"Field permissions must have at most three permissions in the list"}, details(t, err))
	})

	t.Run("duplicates", func(t *testing.T) {
		err := Validate(&sampleRequest{UserID: "user-1", Permissions: []string{"READ_DATA", "READ_DATA"}, Status: "X"})
		assert.Equal(t, []string{"Duplicate permissions detected"}, details(t, err))
	})

	t.Run("unknown enum value strips the element index", func(t *testing.T) {
		err := Validate(&sampleRequest{UserID: "user-1", Permissions: []string{"FLY"}, Status: "X"})
		assert.Equal(t, []string{"Field permissions must be one of the values in the list [READ_DATA, WRITE_DATA]"}, details(t, err))
	})
}

func TestErrorMessages_NonValidatorError(t *testing.T) {
	assert.Equal(t, []string{"invalid request body"}, ErrorMessages(errors.New("boom")))
}
