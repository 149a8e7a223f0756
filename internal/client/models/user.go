// Package models defines the client-side data model: the authenticated
// user, the avatar record, ephemeral photo assets, and verification
// requests.
package models

import "encoding/json"

// VerifiedStatus is the account verification state reported by the server.
type VerifiedStatus string

const (
	VerifiedNone    VerifiedStatus = "unverified"
	VerifiedPending VerifiedStatus = "pending"
	VerifiedYes     VerifiedStatus = "verified"
)

// User is the authenticated account record. It is owned exclusively by the
// session store and persisted as one JSON document under the user key.
// Token is the bearer credential; its absence means logged out.
type User struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Token    string         `json:"token"`
	DID      *string        `json:"did,omitempty"`
	Verified VerifiedStatus `json:"verified"`
}

// userEnvelope tolerates the two response shapes the backend has used over
// time: a bare user object, or the user wrapped as {"user": {...}}. The
// wrapped shape may carry a sibling "message" field which is ignored.
type userEnvelope struct {
	User *User `json:"user"`
}

// DecodeUser normalizes a server response into a canonical User. Ambiguous
// shapes are resolved here, at the boundary, so stores only ever see one
// shape. Returns nil when the payload decodes but contains no user.
func DecodeUser(data []byte) (*User, error) {
	var env userEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.User != nil {
		return normalizeUser(env.User), nil
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	if u.ID == "" && u.Email == "" && u.Token == "" {
		return nil, nil
	}
	return normalizeUser(&u), nil
}

// Encode serializes the user for persistence under the session user key.
func (u *User) Encode() ([]byte, error) {
	return json.Marshal(u)
}

func normalizeUser(u *User) *User {
	if u.Verified == "" {
		u.Verified = VerifiedNone
	}
	return u
}
