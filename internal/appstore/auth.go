package appstore

import (
	"crypto/ecdsa"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	ierr "github.com/playforge/asc-pricer/internal/errors"
)

const (
	tokenAudience = "appstoreconnect-v1"
	tokenLifetime = 20 * time.Minute
	// refreshMargin keeps us from sending a token that expires mid-request.
	refreshMargin = time.Minute
)

// TokenProvider mints short-lived ES256 bearer tokens for the App Store
// Connect API and caches them until shortly before expiry.
type TokenProvider struct {
	keyID      string
	issuerID   string
	privateKey *ecdsa.PrivateKey

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenProvider parses the .p8 private key and returns a provider.
func NewTokenProvider(keyID, issuerID string, privateKeyPEM []byte) (*TokenProvider, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Private key is not a valid App Store Connect .p8 key").
			Mark(ierr.ErrValidation)
	}
	return &TokenProvider{
		keyID:      keyID,
		issuerID:   issuerID,
		privateKey: key,
	}, nil
}

// Token returns a valid bearer token, minting a new one when the cached
// token is absent or close to expiry.
func (p *TokenProvider) Token() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.token != "" && now.Before(p.expiresAt.Add(-refreshMargin)) {
		return p.token, nil
	}

	expiresAt := now.Add(tokenLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    p.issuerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Audience:  jwt.ClaimStrings{tokenAudience},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = p.keyID

	signed, err := token.SignedString(p.privateKey)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Unable to sign App Store Connect API token").
			Mark(ierr.ErrInternal)
	}

	p.token = signed
	p.expiresAt = expiresAt
	return signed, nil
}
