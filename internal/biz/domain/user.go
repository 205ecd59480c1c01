package domain

import "time"

// User represents a household member known by phone number
type User struct {
	ID              string
	PhoneNumber     string // Channel address, e.g. whatsapp:+14155550100
	DisplayName     string
	LinkedAccountID string // Empty for ghost users created from chat alone
	CreatedAt       time.Time
}

// IsGhost checks if the user has no linked account
func (u *User) IsGhost() bool {
	return u.LinkedAccountID == ""
}

// Collaboration lets an invitee act inside the inviter's data scope
type Collaboration struct {
	ID           string
	InviterID    string
	InviteePhone string
	InviteeEmail string
	InviteeName  string
	Active       bool
	CreatedAt    time.Time
}

// Label returns the best human label for the invitee
func (c *Collaboration) Label() string {
	switch {
	case c.InviteeName != "":
		return c.InviteeName
	case c.InviteeEmail != "":
		return c.InviteeEmail
	default:
		return c.InviteePhone
	}
}

// UserContext is the resolved identity threaded through every tool call.
// ActingID owns the data; Address and DisplayName belong to the person chatting.
type UserContext struct {
	ActingID       string
	DisplayName    string
	Address        string
	IsCollaborator bool
}
