package streamtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid stream token")
	ErrExpiredToken  = errors.New("stream token expired")
	ErrTokenMismatch = errors.New("stream token issued for a different call")
	ErrMissingSecret = errors.New("stream token secret is required")
	ErrMissingToken  = errors.New("stream token is required")
)

const (
	// ParameterName is the <Parameter> name the token travels under in the TwiML stream.
	ParameterName = "token"
	issuer        = "voice-relay"
	audience      = "media-stream"
)

// Claims binds a media stream to the call it was issued for.
type Claims struct {
	Caller string `json:"caller,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and verifies short-lived HS256 tokens that tie a media stream to a call.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for callSID.
func (s *Signer) Issue(callSID, caller string) (string, error) {
	now := s.now()
	claims := Claims{
		Caller: caller,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   callSID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign stream token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry, and that it was issued for callSID when
// callSID is known. It returns the verified claims.
func (s *Signer) Verify(token, callSID string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	if callSID != "" && claims.Subject != callSID {
		return Claims{}, ErrTokenMismatch
	}
	return claims, nil
}
