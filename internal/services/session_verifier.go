package services

import (
	"context"

	"github.com/pantrykit/pantry-api/pkg/jwt"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"go.uber.org/zap"
)

// TokenValidator checks the signature and lifetime of a session token
type TokenValidator interface {
	ValidateToken(raw string) (*jwt.SessionClaims, error)
}

// AccountChecker reports whether an account still exists
type AccountChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// AccountSessionVerifier validates session tokens and flags sessions whose
// account has been deleted
type AccountSessionVerifier struct {
	tokens   TokenValidator
	accounts AccountChecker
}

// NewAccountSessionVerifier creates a verifier. accounts may be nil to skip the
// existence check.
func NewAccountSessionVerifier(tokens TokenValidator, accounts AccountChecker) *AccountSessionVerifier {
	return &AccountSessionVerifier{tokens: tokens, accounts: accounts}
}

// Verify returns the claims of a valid token. Claims.Invalid is set when the
// account is gone. A failed lookup keeps the session alive.
func (v *AccountSessionVerifier) Verify(ctx context.Context, raw string) (*jwt.SessionClaims, error) {
	claims, err := v.tokens.ValidateToken(raw)
	if err != nil {
		return nil, err
	}

	if v.accounts == nil {
		return claims, nil
	}

	exists, err := v.accounts.Exists(ctx, claims.UserID)
	if err != nil {
		logger.Warn("Account lookup failed during session verification",
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		return claims, nil
	}

	claims.Invalid = !exists
	return claims, nil
}
