package auth

import "github.com/golang-jwt/jwt/v5"

type Role string

const (
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleOperator || r == RoleAdmin
}

// AccessTokenPayload carries the caller identity minted into a token.
type AccessTokenPayload struct {
	Subject string
	Role    Role
	JTI     string
}

type AccessTokenClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}
