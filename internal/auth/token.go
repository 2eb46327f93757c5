package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"knowledge-hub/internal/common/clock"
	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/observability/metrics"
)

// Claims is the verified identity carried by an access token. Workspace
// membership is deliberately absent: it changes after issuance and must be
// re-derived from the store on every join.
type Claims struct {
	UserID    string
	Email     string
	Admin     bool
	ExpiresAt time.Time
}

// Authenticator issues and verifies HS256 access tokens. Both the REST
// middleware and the websocket handshake go through Verify; there is no
// second parsing path.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewAuthenticator(secret string, ttl time.Duration, clk clock.Clock) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clk,
	}
}

func (a *Authenticator) Issue(userID, email string, admin bool) (string, error) {
	now := a.clock.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"eml": email,
		"adm": admin,
		"exp": now.Add(a.ttl).Unix(),
		"iat": now.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := t.SignedString(a.secret)
	if err != nil {
		return "", err
	}

	metrics.AccessTokensIssued.Inc()
	return tokenString, nil
}

func (a *Authenticator) Verify(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, commonerrors.ErrTokenMissing
	}

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.clock.Now))
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	if !parsed.Valid {
		return Claims{}, commonerrors.ErrTokenMalformed
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, commonerrors.ErrTokenMalformed
	}

	sub, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["eml"].(string)
	admin, _ := mapClaims["adm"].(bool)
	if sub == "" {
		return Claims{}, commonerrors.ErrTokenMalformed
	}

	var expiresAt time.Time
	if exp, ok := mapClaims["exp"].(float64); ok {
		expiresAt = time.Unix(int64(exp), 0)
	}

	return Claims{
		UserID:    sub,
		Email:     email,
		Admin:     admin,
		ExpiresAt: expiresAt,
	}, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return commonerrors.ErrTokenExpired.WithCause(err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return commonerrors.ErrTokenSignature.WithCause(err)
	default:
		return commonerrors.ErrTokenMalformed.WithCause(err)
	}
}
