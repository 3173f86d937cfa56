// Package token issues and validates the HS256 access tokens that identify
// donors and hospitals to the API. Registration and login live in an
// external identity collaborator; this service only needs to know who is
// calling and in which role.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "bloodlink/pkg/domain-errors"
)

// ActorType distinguishes the two caller roles.
type ActorType string

const (
	ActorDonor    ActorType = "donor"
	ActorHospital ActorType = "hospital"
)

// Claims are the JWT claims for access tokens.
type Claims struct {
	ActorID   string    `json:"actor_id"`
	ActorType ActorType `json:"actor_type"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Generate signs a token identifying the actor for the given duration.
func (s *Service) Generate(actorID uuid.UUID, actorType ActorType, expiresIn time.Duration) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ActorID:   actorID.String(),
		ActorType: actorType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return t.SignedString(s.signingKey)
}

// Validate parses and verifies a token string.
// Errors: CodeUnauthorized for expired, malformed, or forged tokens.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
