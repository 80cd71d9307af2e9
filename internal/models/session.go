package models

// Session is the public view of an authenticated session
type Session struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}

// SessionResponse is returned by verify, exchange and session endpoints
type SessionResponse struct {
	Success bool     `json:"success"`
	Session *Session `json:"session,omitempty"`
}

// LogoutResponse is returned after logout
type LogoutResponse struct {
	Success bool `json:"success"`
}
