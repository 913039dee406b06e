package models

// Audit event actions
const (
	AuditActionConsentCreated = "consent_created"
	AuditActionConsentUpdated = "consent_updated"
	AuditActionConsentRevoked = "consent_revoked"
)
