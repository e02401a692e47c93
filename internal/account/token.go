package account

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/tryon/internal/model"
)

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserFromAccessToken reads the subject and email out of a remote access
// token without verifying it. The service is the only party that can verify
// its tokens; callers use this only on tokens received directly from it.
func UserFromAccessToken(token string) (model.User, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return model.User{}, fmt.Errorf("parsing access token: %w", err)
	}
	if claims.Subject == "" {
		return model.User{}, fmt.Errorf("parsing access token: missing subject")
	}
	return model.User{ID: claims.Subject, Email: claims.Email}, nil
}
