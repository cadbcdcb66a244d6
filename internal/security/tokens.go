package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, carries
	// the wrong issuer/audience, or fails signature verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the signed payload shared by access and refresh tokens: the
// registered claims (iat, exp, iss, aud) plus the user and session identity.
// Both tokens of a pair carry the same session id.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// KeyPair is one asymmetric signing key pair (RSA or ECDSA).
type KeyPair struct {
	Private crypto.Signer
	Public  crypto.PublicKey
}

// TokenPair is an access/refresh token pair minted together. AccessExpiresAt
// is the access token's expiry; the refresh token expires refreshTTL later.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// TokenProvider issues and validates JWT access and refresh tokens. Each
// token class signs with its own key pair, so an access token can never be
// presented where a refresh token is expected and vice versa.
//
// Cryptographic validity alone does not make a token usable: the session
// record in the session store is the authority, checked by callers.
type TokenProvider struct {
	accessKeys  KeyPair
	refreshKeys KeyPair
	issuer      string
	audience    string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
}

// NewTokenProvider returns a TokenProvider signing access tokens with
// accessKeys and refresh tokens with refreshKeys (RS256 or ES256, decided by
// the key type). issuer and audience are set on claims and validated on decode.
func NewTokenProvider(accessKeys, refreshKeys KeyPair, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		accessKeys:  accessKeys,
		refreshKeys: refreshKeys,
		issuer:      issuer,
		audience:    audience,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssuePair mints an access and a refresh token for (userID, sessionID).
// Both tokens share the session id; exp-iat equals the configured TTL exactly.
func (p *TokenProvider) IssuePair(userID, sessionID string) (*TokenPair, error) {
	now := p.now()

	accessExp := now.Add(p.accessTTL)
	access, err := p.sign(p.accessKeys, p.claims(userID, sessionID, now, accessExp))
	if err != nil {
		return nil, err
	}
	refresh, err := p.sign(p.refreshKeys, p.claims(userID, sessionID, now, now.Add(p.refreshTTL)))
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: accessExp,
	}, nil
}

// ValidateAccess parses and validates an access token (signature, exp, iss, aud).
// Returns the claims, or ErrInvalidToken.
func (p *TokenProvider) ValidateAccess(tokenString string) (*Claims, error) {
	return p.validate(tokenString, p.accessKeys.Public)
}

// ValidateRefresh parses and validates a refresh token (signature, exp, iss, aud).
// Returns the claims, or ErrInvalidToken.
func (p *TokenProvider) ValidateRefresh(tokenString string) (*Claims, error) {
	return p.validate(tokenString, p.refreshKeys.Public)
}

func (p *TokenProvider) claims(userID, sessionID string, issuedAt, expiresAt time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    userID,
		SessionID: sessionID,
	}
}

func (p *TokenProvider) sign(keys KeyPair, claims Claims) (string, error) {
	var method jwt.SigningMethod
	switch keys.Private.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	return jwt.NewWithClaims(method, claims).SignedString(keys.Private)
}

func (p *TokenProvider) validate(tokenString string, public crypto.PublicKey) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return public, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithIssuer(p.issuer), jwt.WithAudience(p.audience))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
