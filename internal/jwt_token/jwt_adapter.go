package jwttoken

import (
	authmw "regulus/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *authmw.SessionClaims {
	return &authmw.SessionClaims{
		ActorID:   claims.Subject,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		JTI:       claims.ID,
	}
}

// JWTServiceAdapter satisfies the auth middleware's SessionValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.SessionClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
