// Package token signs and verifies the HS256 credentials used by the API.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default lifetimes for the credential pair.
const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 365 * 24 * time.Hour
)

// DefaultIssuer is stamped into every credential this service signs.
const DefaultIssuer = "clipshare-api"

// Claims are the identity claims carried by access and refresh credentials.
// Access credentials carry Email only; refresh credentials also carry UserID.
type Claims struct {
	Email  string `json:"email"`
	UserID string `json:"_id,omitempty"`
	jwt.RegisteredClaims
}

// IdentityClaims are the profile claims read from a federated id_token.
type IdentityClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Locale  string `json:"locale"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// Service signs and verifies credentials with a single shared secret.
type Service struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the time source used for signing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIssuer overrides DefaultIssuer.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithTTL overrides AccessTTL and RefreshTTL. Non-positive values keep the default.
func WithTTL(access, refresh time.Duration) Option {
	return func(s *Service) {
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// NewService returns a Service signing with secret.
func NewService(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token secret not configured")
	}
	s := &Service{
		secret:     []byte(secret),
		issuer:     DefaultIssuer,
		accessTTL:  AccessTTL,
		refreshTTL: RefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.accessTTL >= s.refreshTTL {
		return nil, errors.New("access credential must expire before refresh credential")
	}
	return s, nil
}

// Sign returns a credential for claims that expires ttl from now.
// Registered claims on the input are ignored and replaced.
func (s *Service) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   claims.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// SignAccess signs a short-lived access credential for email.
func (s *Service) SignAccess(email string) (string, error) {
	return s.Sign(Claims{Email: email}, s.accessTTL)
}

// SignRefresh signs a long-lived refresh credential carrying email and the stable user id.
func (s *Service) SignRefresh(email, userID string) (string, error) {
	return s.Sign(Claims{Email: email, UserID: userID}, s.refreshTTL)
}

// Verify checks signature, algorithm, issuer and expiry.
// It never returns an error: any failure yields (nil, false).
func (s *Service) Verify(credential string) (*Claims, bool) {
	if credential == "" {
		return nil, false
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if claims.Email == "" {
		return nil, false
	}
	return claims, true
}

// DecodeUnverified extracts identity claims without checking the signature.
// Only for id_tokens obtained directly from the identity provider's token
// exchange; never use the result to authorize access.
func DecodeUnverified(credential string) (*IdentityClaims, bool) {
	if credential == "" {
		return nil, false
	}
	claims := &IdentityClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return nil, false
	}
	if claims.Email == "" {
		return nil, false
	}
	return claims, true
}
