package middleware

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
)

// JWTValidator validates HS256 session tokens issued by the portal's auth
// service. It only checks signature and expiry and extracts the subject and
// organization claims; everything else about sessions is out of scope here.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

type sessionClaims struct {
	OrgID string `json:"org_id"`
	jwt.RegisteredClaims
}

func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	orgID, err := id.ParseOrgID(claims.OrgID)
	if err != nil {
		return nil, fmt.Errorf("invalid org_id claim: %w", err)
	}

	return &Claims{UserID: userID, OrgID: orgID}, nil
}
