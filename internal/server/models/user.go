package models

import "time"

// PasswordRecord is the stored output of the credential hasher.
type PasswordRecord struct {
	Algorithm  string
	Iterations int
	Salt       string
	Hash       string
}

// User is an account. Password is nil for purely federated accounts and
// GoogleSub is empty until a Google identity is linked.
type User struct {
	ID        string
	Email     string
	Password  *PasswordRecord
	GoogleSub string
	Roles     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.Password != nil && u.Password.Algorithm != ""
}

// HasRole reports whether role is among the user's roles.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// WithoutPassword returns a shallow copy with the password record removed.
func (u *User) WithoutPassword() *User {
	c := *u
	c.Password = nil
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}

// PublicUser is the minimal identity returned by register and login.
type PublicUser struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// Profile is the account as returned by /me; it never carries password fields.
type Profile struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	GoogleSub *string  `json:"google_sub"`
	Roles     []string `json:"roles"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Roles: rolesOrEmpty(u.Roles)}
}

func (u *User) Profile() Profile {
	p := Profile{
		ID:        u.ID,
		Email:     u.Email,
		Roles:     rolesOrEmpty(u.Roles),
		CreatedAt: u.CreatedAt.Unix(),
		UpdatedAt: u.UpdatedAt.Unix(),
	}
	if u.GoogleSub != "" {
		sub := u.GoogleSub
		p.GoogleSub = &sub
	}
	return p
}

func rolesOrEmpty(r []string) []string {
	if r == nil {
		return []string{}
	}
	return r
}
