package handler

import "consents/internal/consent/models"

// ConsentResponse is the JSON representation of a consent.
type ConsentResponse struct {
	ConsentID   string              `json:"consentId"`
	UserID      string              `json:"userId"`
	Permissions []models.Permission `json:"permissions"`
	Status      models.Status       `json:"status"`
	CreatedAt   string              `json:"createdAt"`
	UpdatedAt   string              `json:"updatedAt"`
	Meta        Meta                `json:"meta"`
}

type Meta struct {
	RequestDateTime string `json:"requestDateTime"`
}

func toResponse(res *models.Result) ConsentResponse {
	c := res.Consent
	return ConsentResponse{
		ConsentID:   c.FormattedID(),
		UserID:      c.UserID,
		Permissions: c.Permissions,
		Status:      c.Status,
		CreatedAt:   models.FormatTime(c.CreatedAt),
		UpdatedAt:   models.FormatTime(c.UpdatedAt),
		Meta:        Meta{RequestDateTime: models.FormatTime(res.RequestedAt)},
	}
}
