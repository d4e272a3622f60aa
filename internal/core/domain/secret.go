package domain

import "time"

// SecretPurpose distinguishes the two rotating secrets a principal may hold.
type SecretPurpose string

const (
	PurposeRefresh SecretPurpose = "refresh"
	PurposeReset   SecretPurpose = "reset"
)

// SecretRecord is a server-tracked, owner-scoped secret: a refresh token or a
// password reset code. At most one record exists per owner in a given store.
type SecretRecord struct {
	Secret     string    `json:"secret" bson:"secret"`
	OwnerID    string    `json:"owner_id" bson:"owner_id"`
	OwnerEmail string    `json:"owner_email" bson:"owner_email"`
	ExpiresAt  time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// LiveAt reports whether the record's expiry is strictly after now.
func (r SecretRecord) LiveAt(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// Session is the result of a successful login or refresh.
type Session struct {
	AccessToken      string
	RefreshToken     string
	ExpiresInSeconds int64
}

// Identity is what the request authentication filter attaches to a request.
type Identity struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
}

// HasRole reports whether the identity carries role.
func (i Identity) HasRole(role Role) bool {
	for _, r := range i.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

// PrimaryRole returns the first recognised role the identity carries.
func (i Identity) PrimaryRole() (Role, bool) {
	for _, r := range i.Roles {
		if role, ok := ParseRole(r); ok {
			return role, true
		}
	}
	return "", false
}
