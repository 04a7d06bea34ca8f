package users

import "time"

// User is an identity seen by the API. Credentials live with the token
// issuer; only the display name and role are kept here.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const RoleUser = "user"
