package models

import "time"

// TokenPurpose says what a magic link grants
type TokenPurpose string

const (
	PurposeLogin             TokenPurpose = "login"
	PurposeEmailVerification TokenPurpose = "email-verification"
)

// Valid reports whether p is a known purpose
func (p TokenPurpose) Valid() bool {
	return p == PurposeLogin || p == PurposeEmailVerification
}

// TokenState is the lifecycle position of a login token
type TokenState string

const (
	TokenPending  TokenState = "pending"
	TokenExpired  TokenState = "expired"
	TokenConsumed TokenState = "consumed"
)

// LoginToken is a single-use magic link credential
type LoginToken struct {
	ID          string       `json:"id"`
	Token       string       `json:"-"`
	Email       string       `json:"email"`
	RequestID   string       `json:"requestId"`
	UserID      *string      `json:"userId,omitempty"`
	Purpose     TokenPurpose `json:"purpose"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	UsedAt      *time.Time   `json:"usedAt,omitempty"`
	ExchangedAt *time.Time   `json:"exchangedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// State classifies the token at now. Consumed and expired are both terminal.
func (t *LoginToken) State(now time.Time) TokenState {
	if t.UsedAt != nil {
		return TokenConsumed
	}
	if t.IsExpired(now) {
		return TokenExpired
	}
	return TokenPending
}

// IsExpired reports whether the deadline has passed at now
func (t *LoginToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RequestLinkRequest is the payload for requesting a magic link
type RequestLinkRequest struct {
	Email          string `json:"email" binding:"required,email,max=255"`
	Purpose        string `json:"purpose" binding:"omitempty,oneof=login email-verification"`
	RequestID      string `json:"requestId" binding:"omitempty,max=128,printascii"`
	CallbackURL    string `json:"callbackUrl" binding:"omitempty,max=2048"`
	RecaptchaToken string `json:"recaptchaToken"`
}

// RequestLinkResponse is returned after a link was issued
type RequestLinkResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
}

// PollResponse is the body of a successful poll. Exactly one of Pending or
// Success is set.
type PollResponse struct {
	Pending bool   `json:"pending,omitempty"`
	Success bool   `json:"success,omitempty"`
	Token   string `json:"token,omitempty"`
}

// ExchangeRequest trades a consumed token for a session on the polling device
type ExchangeRequest struct {
	Token string `json:"token" binding:"required,max=200"`
}
