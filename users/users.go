package users

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// User is the profile of the signed-in user as returned by GET /users/me/.
// A User is an immutable snapshot; a newer fetch replaces it wholesale.
type User struct {
	ID           int64     `json:"id,omitempty"`            // Backend primary key
	Email        string    `json:"email,omitempty"`         // Login email address
	FirstName    string    `json:"first_name,omitempty"`    // Given name
	LastName     string    `json:"last_name,omitempty"`     // Family name
	ProfileImage string    `json:"profile_image,omitempty"` // Absolute or backend-relative image URL
	CreatedAt    time.Time `json:"created_at,omitempty"`    // Account creation time

	// IsAuthenticated is set by the client once a session is established; the
	// backend never sends it.
	IsAuthenticated bool `json:"-"`
}

// Parse decodes a profile body and marks the result authenticated.
func Parse(body []byte) (*User, error) {
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("[users.Parse] %w", err)
	}
	u.IsAuthenticated = true
	return &u, nil
}

// UnmarshalJSON accepts a null or empty created_at, which the backend sends for
// accounts migrated from the old schema.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		CreatedAt *string `json:"created_at"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	u.CreatedAt = time.Time{}
	if aux.CreatedAt != nil && *aux.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, *aux.CreatedAt)
		if err != nil {
			return fmt.Errorf("created_at: %w", err)
		}
		u.CreatedAt = t
	}
	return nil
}

// FullName joins first and last name, falling back to the email address.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Initials returns up to two upper-case initials for avatar placeholders.
func (u *User) Initials() string {
	if u == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range []string{u.FirstName, u.LastName} {
		part = strings.TrimSpace(part)
		if part != "" {
			b.WriteString(strings.ToUpper(string([]rune(part)[0])))
		}
	}
	if b.Len() == 0 && u.Email != "" {
		b.WriteString(strings.ToUpper(string([]rune(u.Email)[0])))
	}
	return b.String()
}
