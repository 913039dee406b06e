package models

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	dErrors "consents/pkg/domain-errors"
	"consents/pkg/validation"
)

// TimeFormat renders timestamps as RFC3339 UTC with second precision.
const TimeFormat = "2006-01-02T15:04:05Z"

const consentIDPrefix = "consent-"

// Client-facing messages.
const (
	MessageConsentNotFound      = "Consent not found"
	MessageInvalidInitialStatus = "Initial status of consent must be AWAITING_AUTHORISATION"
	MessageInvalidUpdateStatus  = "Status AWAITING_AUTHORISATION is not allowed for update consent"
	MessageInvalidConsentIDPath = "Path parameter consentId must have the pattern 'consent-N' (N = number)"
	MessageConsentIDRequired    = "Path parameter consentId is required"
)

var consentIDPattern = regexp.MustCompile(`^consent-\d+$`)

// Permission is a data access right granted by a consent.
type Permission string

const (
	PermissionReadData   Permission = "READ_DATA"
	PermissionWriteData  Permission = "WRITE_DATA"
	PermissionDeleteData Permission = "DELETE_DATA"
)

func (p Permission) IsValid() bool {
	switch p {
	case PermissionReadData, PermissionWriteData, PermissionDeleteData:
		return true
	}
	return false
}

func (p Permission) String() string {
	return string(p)
}

// Status is the authorisation state of a consent.
type Status string

const (
	StatusAwaitingAuthorisation Status = "AWAITING_AUTHORISATION"
	StatusAuthorised            Status = "AUTHORISED"
	StatusRejected              Status = "REJECT"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAwaitingAuthorisation, StatusAuthorised, StatusRejected:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Consent is a user's grant of data permissions.
type Consent struct {
	ID          int64
	UserID      string
	Permissions []Permission
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FormattedID returns the external identifier, e.g. "consent-42".
func (c *Consent) FormattedID() string {
	return FormatConsentID(c.ID)
}

// Clone returns a deep copy so stores never share slices with callers.
func (c *Consent) Clone() *Consent {
	if c == nil {
		return nil
	}
	out := *c
	out.Permissions = slices.Clone(c.Permissions)
	return &out
}

// PermissionStrings returns the permissions as plain strings.
func (c *Consent) PermissionStrings() []string {
	out := make([]string, len(c.Permissions))
	for i, p := range c.Permissions {
		out[i] = string(p)
	}
	return out
}

func FormatConsentID(id int64) string {
	return consentIDPrefix + strconv.FormatInt(id, 10)
}

// ParseConsentID converts an external "consent-N" identifier to its numeric id.
func ParseConsentID(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, dErrors.WithDetails(dErrors.CodeValidation, validation.MessageInvalidInput, MessageConsentIDRequired)
	}
	if !consentIDPattern.MatchString(raw) {
		return 0, dErrors.WithDetails(dErrors.CodeValidation, validation.MessageInvalidInput, MessageInvalidConsentIDPath)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, consentIDPrefix), 10, 64)
	if err != nil {
		return 0, dErrors.WithDetails(dErrors.CodeValidation, validation.MessageInvalidInput, MessageInvalidConsentIDPath)
	}
	return id, nil
}

// FormatTime renders t in TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// HasDuplicatePermissions reports whether any permission appears twice.
func HasDuplicatePermissions(perms []Permission) bool {
	seen := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			return true
		}
		seen[p] = struct{}{}
	}
	return false
}

// ErrNotFound is the domain error for a missing consent.
func ErrNotFound(id int64) error {
	return dErrors.Wrap(fmt.Errorf("consent %s", FormatConsentID(id)), dErrors.CodeNotFound, MessageConsentNotFound)
}

// Result is a consent together with the instant the request was served.
type Result struct {
	Consent     *Consent
	RequestedAt time.Time
}
