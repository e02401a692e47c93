package model

import "time"

// User is a signed-in identity as reported by the account service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session ties one browser session to a remote account session.
// The remote access token is only ever stored sealed.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// User returns the session's identity.
func (s *Session) User() User {
	return User{ID: s.UserID, Email: s.Email}
}
