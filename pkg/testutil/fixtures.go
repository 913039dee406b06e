package testutil

import (
	"time"

	"consents/internal/consent/models"
)

// FixedTime is a deterministic timestamp for test data.
var FixedTime = time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

// ConsentBuilder provides a fluent interface for building test consents.
type ConsentBuilder struct {
	consent *models.Consent
}

// NewConsentBuilder creates a ConsentBuilder with sensible defaults: a
// READ_DATA consent awaiting authorisation for user-1.
func NewConsentBuilder() *ConsentBuilder {
	return &ConsentBuilder{
		consent: &models.Consent{
			UserID:      "user-1",
			Permissions: []models.Permission{models.PermissionReadData},
			Status:      models.StatusAwaitingAuthorisation,
			CreatedAt:   FixedTime,
			UpdatedAt:   FixedTime,
		},
	}
}

func (b *ConsentBuilder) WithID(id int64) *ConsentBuilder {
	b.consent.ID = id
	return b
}

func (b *ConsentBuilder) WithUserID(userID string) *ConsentBuilder {
	b.consent.UserID = userID
	return b
}

func (b *ConsentBuilder) WithPermissions(perms ...models.Permission) *ConsentBuilder {
	b.consent.Permissions = perms
	return b
}

func (b *ConsentBuilder) WithStatus(status models.Status) *ConsentBuilder {
	b.consent.Status = status
	return b
}

func (b *ConsentBuilder) CreatedAt(t time.Time) *ConsentBuilder {
	b.consent.CreatedAt = t
	b.consent.UpdatedAt = t
	return b
}

func (b *ConsentBuilder) Build() *models.Consent {
	return b.consent.Clone()
}
