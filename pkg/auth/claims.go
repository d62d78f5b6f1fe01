package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims is the bearer token the identity provider issues. The
// subject carries the user id.
type AccessTokenClaims struct {
	Role enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c AccessTokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// IsAdmin reports whether the token carries the admin role.
func (c AccessTokenClaims) IsAdmin() bool {
	return c.Role == enums.UserRoleAdmin
}
