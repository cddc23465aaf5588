// Package domain holds identifier primitives shared across modules.
//
// IDs are distinct named types so a subscription ID can never be passed where
// a user ID is expected. Construct them with the Parse* functions at trust
// boundaries (handlers, CLI, store scans); direct casts skip validation.
package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "kycgate/pkg/domain-errors"
)

// UserID identifies a portal user. It is the subject claim of access tokens.
type UserID uuid.UUID

// SubscriptionID identifies one subscription grant.
type SubscriptionID uuid.UUID

// VerificationID identifies one stored verification outcome.
type VerificationID uuid.UUID

// ServiceID is the opaque catalog identifier of a verification service.
// Catalog owners choose the format, so it is not required to be a UUID.
type ServiceID string

const maxServiceIDLength = 64

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

// ParseUserID validates a user identifier from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseSubscriptionID validates a subscription identifier from external input.
func ParseSubscriptionID(s string) (SubscriptionID, error) {
	u, err := parseUUID(s, "subscription_id")
	return SubscriptionID(u), err
}

// ParseVerificationID validates a verification identifier from external input.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseUUID(s, "verification_id")
	return VerificationID(u), err
}

// ParseServiceID validates a catalog service identifier. Any printable,
// whitespace-free string up to 64 characters is accepted.
func ParseServiceID(s string) (ServiceID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "service_id cannot be empty")
	}
	if len(s) > maxServiceIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "service_id is too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid service_id")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid service_id")
		}
	}
	return ServiceID(s), nil
}

// NewServiceID mints a catalog identifier for services created through the API.
func NewServiceID() ServiceID {
	return ServiceID(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id SubscriptionID) String() string { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }
func (id ServiceID) String() string      { return string(id) }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id SubscriptionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ServiceID) IsNil() bool      { return id == "" }

// MarshalText lets typed IDs appear as plain strings in JSON and logs.
func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id SubscriptionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id VerificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SubscriptionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSubscriptionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *VerificationID) UnmarshalText(b []byte) error {
	parsed, err := ParseVerificationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
