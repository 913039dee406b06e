package models

import (
	dErrors "consents/pkg/domain-errors"
	"consents/pkg/validation"
)

// MessageDuplicatePermissions is reported when a permission is listed twice.
const MessageDuplicatePermissions = "Duplicate permissions detected"

// CreateRequest is the body of POST /consents.
type CreateRequest struct {
	UserID      string       `json:"userId" validate:"required,userid"`
	Permissions []Permission `json:"permissions" validate:"required,min=1,max=3,dive,oneof=READ_DATA WRITE_DATA DELETE_DATA"`
	Status      Status       `json:"status" validate:"required,oneof=AWAITING_AUTHORISATION AUTHORISED REJECT"`
}

// Validate checks field constraints, then rejects duplicate permissions.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.WithDetails(dErrors.CodeBadRequest, validation.MessageInvalidInput, "Required request body is missing")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	return checkDuplicates(r.Permissions)
}

// UpdateRequest is the body of PUT /consents/{consentId}.
type UpdateRequest struct {
	Permissions []Permission `json:"permissions" validate:"required,min=1,max=3,dive,oneof=READ_DATA WRITE_DATA DELETE_DATA"`
	Status      Status       `json:"status" validate:"required,oneof=AWAITING_AUTHORISATION AUTHORISED REJECT"`
}

func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.WithDetails(dErrors.CodeBadRequest, validation.MessageInvalidInput, "Required request body is missing")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	return checkDuplicates(r.Permissions)
}

func checkDuplicates(perms []Permission) error {
	if HasDuplicatePermissions(perms) {
		return dErrors.WithDetails(dErrors.CodeValidation, validation.MessageInvalidInput, MessageDuplicatePermissions)
	}
	return nil
}
