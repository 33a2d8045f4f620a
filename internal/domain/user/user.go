package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrIDRequired = errors.New("user: id is required")
	ErrNotFound   = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleIDP       Role = "IDP"
	RoleLandlord  Role = "Landlord"
	RoleModerator Role = "Moderator"
	RoleAdmin     Role = "Admin"
)

// User is the slice of the profile the chat service needs: identity plus the
// display fields embedded into outgoing message events.
type User struct {
	ID        ID
	FirstName string
	LastName  string
	Avatar    string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the public shape broadcast with chat messages.
type Profile struct {
	ID        ID     `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Avatar: u.Avatar}
}

// Repository reads profiles from the user directory. Account management lives
// in the identity service; this service only looks users up.
type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
}
