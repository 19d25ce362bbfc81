// Package jwt emite y valida los access tokens del portal.
// Firma simétrica HS256: emisor y validador son el mismo proceso,
// no hay JWKS ni rotación de claves públicas.
package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongType    = errors.New("wrong token type")
)

// Claims es el payload del access token. token_type discrimina contra
// cualquier otro JWT que pudiera llegar por el mismo header.
type Claims struct {
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwtv5.RegisteredClaims
}

// Issuer firma y valida access tokens con un secreto compartido.
type Issuer struct {
	secret    []byte
	iss       string
	accessTTL time.Duration
}

func NewIssuer(secret, iss string, accessTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Issuer{secret: []byte(secret), iss: iss, accessTTL: accessTTL}
}

// AccessTTL expone el TTL vigente (para expires_in en respuestas).
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// IssueAccess firma un access token para el usuario. Devuelve el JWT y su
// instante de expiración.
func (i *Issuer) IssueAccess(userID, email string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(i.accessTTL)
	claims := Claims{
		Email:     email,
		TokenType: "access",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.iss,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tk.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess valida firma, exp y token_type. Cualquier fallo colapsa en
// ErrInvalidToken: el caller no distingue causas, solo autentica o no.
func (i *Issuer) VerifyAccess(raw string) (*Claims, error) {
	var claims Claims
	tok, err := jwtv5.ParseWithClaims(raw, &claims, func(t *jwtv5.Token) (any, error) {
		return i.secret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "access" {
		return nil, ErrWrongType
	}
	if i.iss != "" && claims.Issuer != i.iss {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
