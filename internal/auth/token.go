package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds token configuration.
type Config struct {
	// SigningKey must be at least 32 bytes for HMAC-SHA256.
	SigningKey string        `env:"AUTH_SIGNING_KEY,required"`
	TokenTTL   time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"720h"`
}

// AccessClaims is the payload of an API access token.
type AccessClaims struct {
	Subject   string `json:"sub"`
	Name      string `json:"name,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

// Valid checks the temporal claims. A zero expiry means the token never
// expires, which only test fixtures use.
func (c AccessClaims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return ErrExpiredToken
	}
	return nil
}

// UserID parses the subject claim.
func (c AccessClaims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject claim", ErrInvalidToken)
	}
	return id, nil
}

type tokenHeader struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// TokenService signs and verifies access tokens with HMAC-SHA256.
type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenService creates a TokenService from config.
func NewTokenService(cfg Config) (*TokenService, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 720 * time.Hour
	}
	return &TokenService{
		key: []byte(cfg.SigningKey),
		ttl: ttl,
		now: time.Now,
	}, nil
}

// Issue creates a signed access token for the given user.
func (s *TokenService) Issue(userID uuid.UUID, name string) (string, error) {
	now := s.now().UTC()
	claims := AccessClaims{
		Subject:   userID.String(),
		Name:      name,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	headerJSON, err := json.Marshal(tokenHeader{Type: "JWT", Algorithm: "HS256"})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token claims: %w", err)
	}

	payload := base64URLEncode(headerJSON) + "." + base64URLEncode(claimsJSON)
	return payload + "." + s.sign(payload), nil
}

// Verify checks the token signature and temporal claims.
func (s *TokenService) Verify(token string) (AccessClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return AccessClaims{}, ErrInvalidToken
	}

	// Constant-time signature check before touching the payload.
	payload := parts[0] + "." + parts[1]
	expected := s.sign(payload)
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(expected)) != 1 {
		return AccessClaims{}, ErrInvalidSignature
	}

	headerJSON, err := base64URLDecode(parts[0])
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	var header tokenHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	// Reject algorithm confusion: only HS256 tokens are ever issued.
	if header.Algorithm != "HS256" {
		return AccessClaims{}, ErrInvalidSignature
	}

	claimsJSON, err := base64URLDecode(parts[1])
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	var claims AccessClaims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	if err := claims.Valid(); err != nil {
		return AccessClaims{}, err
	}
	return claims, nil
}

func (s *TokenService) sign(payload string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(payload))
	return base64URLEncode(h.Sum(nil))
}

func base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func base64URLDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
