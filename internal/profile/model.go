package profile

import (
	"time"

	"github.com/safecity/dispatch/internal/shared/types"
)

// Profile represents a registered user's profile
type Profile struct {
	ID       types.ID `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone,omitempty"`
	IsAdmin  bool     `json:"is_admin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertRequest is the request to create or update a profile.
// The admin flag is never writable through this request.
type UpsertRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

// Validate returns per-field problems for an upsert request
func (r UpsertRequest) Validate() map[string]string {
	problems := make(map[string]string)
	if r.FullName == "" {
		problems["full_name"] = "full_name is required"
	}
	if r.Email == "" {
		problems["email"] = "email is required"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}
